package telegram

import (
	"collegemate/backend/internal/config"
	"collegemate/backend/internal/models"
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// WatchStorage persists which chats watch which domains.
type WatchStorage interface {
	SaveWatch(w *models.TelegramWatch) error
	DeleteWatch(chatID int64) error
	ListWatches() ([]models.TelegramWatch, error)
}

// domainOf maps a stored tag type back to its domain name.
func domainOf(tag string) (string, bool) {
	for d, t := range config.DomainTags {
		if t == tag {
			return d, true
		}
	}
	return "", false
}

func domainNames() string {
	names := make([]string, 0, len(config.DomainTags))
	for d := range config.DomainTags {
		names = append(names, d)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// client returns the chat's watch client, registering a new one with the hub
// when the chat has none or the hub dropped the old one. A replacement keeps
// the old client's domains.
func (s *BotService) client(chatID int64, lang string) *Client {
	s.mu.Lock()
	old, ok := s.clients[chatID]
	if ok && !old.isClosed() {
		s.mu.Unlock()
		return old
	}
	c := newClient(chatID, s.Session, lang, s.notifyChange)
	if ok {
		for _, d := range old.watched() {
			c.watch(d)
		}
	}
	s.clients[chatID] = c
	s.mu.Unlock()

	if ok {
		s.Logger.Warn("watch client was dropped, registering again", zap.Int64("chat_id", chatID))
	}
	s.Hub.Register(c)
	return c
}

func (s *BotService) handleWatchCommand(chatID int64, args string) {
	domain := strings.ToLower(strings.TrimSpace(args))
	if _, ok := config.DomainTags[domain]; !ok {
		s.reply(chatID, s.text(chatID, "watch_usage"))
		return
	}

	c := s.client(chatID, s.language(chatID))
	c.watch(domain)
	if err := s.Storage.SaveWatch(c.record()); err != nil {
		s.Logger.Error("save watch failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.Logger.Info("watch started", zap.Int64("chat_id", chatID), zap.String("domain", domain))
	s.reply(chatID, s.text(chatID, "watch_started", s.text(chatID, "domain_"+domain)))
}

func (s *BotService) handleUnwatchCommand(chatID int64) {
	s.mu.Lock()
	c, ok := s.clients[chatID]
	delete(s.clients, chatID)
	s.mu.Unlock()

	if !ok {
		s.reply(chatID, s.text(chatID, "watch_none"))
		return
	}
	s.Hub.Unregister(c)
	if err := s.Storage.DeleteWatch(chatID); err != nil {
		s.Logger.Error("delete watch failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	s.reply(chatID, s.text(chatID, "watch_stopped"))
}

// notifyChange runs on the client's pump after an invalidation of domain.
func (s *BotService) notifyChange(chatID int64, lang, domain string) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	n, err := s.count(ctx, domain)
	if err != nil {
		s.Logger.Warn("refresh after change failed", zap.Int64("chat_id", chatID), zap.String("domain", domain), zap.Error(err))
		return
	}
	s.reply(chatID, s.Localizer.Format(lang, "watch_changed", s.Localizer.GetString(lang, "domain_"+domain), n))
}

// RestoreWatches re-registers the persisted watches. Tags that no longer name
// a domain are skipped.
func (s *BotService) RestoreWatches() error {
	watches, err := s.Storage.ListWatches()
	if err != nil {
		return err
	}
	for _, w := range watches {
		lang := w.Language
		if !s.Localizer.Has(lang) {
			lang = s.language(w.ChatID)
		}
		s.mu.Lock()
		s.languages[w.ChatID] = lang
		s.mu.Unlock()

		c := s.client(w.ChatID, lang)
		for _, tag := range w.Tags {
			if d, ok := domainOf(tag); ok {
				c.watch(d)
			} else {
				s.Logger.Warn("dropping unknown watch tag", zap.Int64("chat_id", w.ChatID), zap.String("tag", tag))
			}
		}
	}
	s.Logger.Info("watches restored", zap.Int("count", len(watches)), zap.String("domains", domainNames()))
	return nil
}
