// Package endpoint holds the glue every domain API slice shares: binding a
// request to the query cache, normalizing the response, and indexing read
// endpoints by name for the live stream.
package endpoint

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/querycache"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Doer is the transport a slice needs; *apiclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, r apiclient.Request) ([]byte, error)
}

// Base is embedded by each domain slice.
type Base struct {
	Client Doer
	Cache  *querycache.Cache
}

func (b Base) logger() *zap.Logger {
	if l, ok := b.Client.(interface{ Logger() *zap.Logger }); ok && l.Logger() != nil {
		return l.Logger()
	}
	return zap.NewNop()
}

// Provide returns a Provides func yielding fixed tags.
func Provide(tags ...querycache.Tag) func(any) []querycache.Tag {
	return func(any) []querycache.Tag { return tags }
}

// ListFetcher fetches req and normalizes the body to a list.
func ListFetcher[T any](b Base, req apiclient.Request) querycache.Fetcher {
	return func(ctx context.Context) (any, error) {
		body, err := b.Client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		list, skipped := apiclient.DecodeList[T](body)
		if skipped > 0 {
			b.logger().Warn("dropped undecodable rows",
				zap.String("path", req.Path), zap.Int("skipped", skipped), zap.Int("kept", len(list)))
		}
		return list, nil
	}
}

// EntityFetcher fetches req and normalizes the body to one entity or nil.
func EntityFetcher[T any](b Base, req apiclient.Request) querycache.Fetcher {
	return func(ctx context.Context) (any, error) {
		body, err := b.Client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		return apiclient.UnwrapEntity[T](body), nil
	}
}

// List runs a cached list read.
func List[T any](ctx context.Context, b Base, def querycache.QueryDef, arg any, req apiclient.Request) ([]T, error) {
	v, err := b.Cache.Query(ctx, def, arg, ListFetcher[T](b, req))
	if err != nil {
		return nil, err
	}
	list, _ := v.([]T)
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// Entity runs a cached single-entity read. A nil result means "not found".
func Entity[T any](ctx context.Context, b Base, def querycache.QueryDef, arg any, req apiclient.Request) (*T, error) {
	v, err := b.Cache.Query(ctx, def, arg, EntityFetcher[T](b, req))
	if err != nil {
		return nil, err
	}
	out, _ := v.(*T)
	return out, nil
}

// Mutate runs a write through the cache so its tags are invalidated on
// success. The response body is normalized to T; a nil result is normal for
// endpoints that only acknowledge.
func Mutate[T any](ctx context.Context, b Base, name string, invalidates []querycache.Tag, req apiclient.Request) (*T, error) {
	v, err := b.Cache.Mutate(ctx, name, invalidates, func(ctx context.Context) (any, error) {
		body, err := b.Client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		return apiclient.UnwrapEntity[T](body), nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.(*T)
	return out, nil
}

// Binding is everything needed to subscribe to one read endpoint.
type Binding struct {
	Def   querycache.QueryDef
	Arg   any
	Fetch querycache.Fetcher
}

// Binder decodes a raw argument into a Binding.
type Binder func(raw json.RawMessage) (Binding, error)

// Index maps read endpoint names to binders.
type Index map[string]Binder

var (
	ErrUnknownEndpoint = errors.New("endpoint: unknown query endpoint")
	ErrBadArgument     = errors.New("endpoint: bad argument")
)

// Bind resolves an endpoint name and raw argument.
func (ix Index) Bind(name string, raw json.RawMessage) (Binding, error) {
	binder, ok := ix[name]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
	}
	return binder(raw)
}

// Names lists the indexed endpoints in sorted order.
func (ix Index) Names() []string {
	names := make([]string, 0, len(ix))
	for n := range ix {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge combines indexes; later entries win.
func Merge(indexes ...Index) Index {
	out := Index{}
	for _, ix := range indexes {
		for k, v := range ix {
			out[k] = v
		}
	}
	return out
}

// NoArg adapts a binding that takes no argument.
func NoArg(bind func() Binding) Binder {
	return func(json.RawMessage) (Binding, error) { return bind(), nil }
}

// StringArg adapts a binding whose argument is one non-empty string.
func StringArg(bind func(string) Binding) Binder {
	return func(raw json.RawMessage) (Binding, error) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return Binding{}, fmt.Errorf("%w: want a non-empty string", ErrBadArgument)
		}
		return bind(s), nil
	}
}
