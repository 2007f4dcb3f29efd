package hub

import (
	"collegemate/backend/internal/models"
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InvalidationSource yields the Redis subscription carrying invalidations
// published by other gateway instances.
type InvalidationSource interface {
	SubscribeInvalidations() *redis.PubSub
}

// StartPubSubListener applies remote invalidations to the local sessions
// until ctx is cancelled. Applying happens on the listener goroutine, never
// on the Run loop, since invalidation feeds events back into the loop.
func (m *Manager) StartPubSubListener(ctx context.Context, src InvalidationSource) {
	pubsub := src.SubscribeInvalidations()
	ch := pubsub.Channel()
	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	go func() {
		for msg := range ch {
			m.applyRemote(msg.Payload)
		}
	}()
}

func (m *Manager) applyRemote(payload string) {
	var ev models.InvalidationEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		m.logger.Warn("bad invalidation payload", zap.Error(err))
		return
	}
	m.registry.ApplyRemote(ev)
}
