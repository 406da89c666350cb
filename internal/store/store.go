package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	contentrender "github.com/alnah/go-contentrender"
	"github.com/alnah/go-contentrender/internal/config"
)

// Compile-time interface implementation checks.
var (
	_ contentrender.Store = (*Memory)(nil)
	_ contentrender.Store = (*SQLite)(nil)
	_ contentrender.Store = (*Redis)(nil)
)

// Backend is a Store that holds resources until closed.
type Backend interface {
	contentrender.Store
	io.Closer
}

// Open creates the backend selected by cfg.Backend. An empty backend means
// memory.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendRedis:
		ttl, err := cfg.TTL()
		if err != nil {
			return nil, err
		}
		return DialRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, RedisOptions{Prefix: cfg.RedisPrefix, TTL: ttl})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func notFound(id string) error {
	return fmt.Errorf("document %q: %w", id, contentrender.ErrNotFound)
}

// clone returns a deep copy so callers cannot mutate stored state.
func clone(doc *contentrender.StoredDocument) *contentrender.StoredDocument {
	c := *doc
	if doc.Request.StructuredTree != nil {
		c.Request.StructuredTree = append(json.RawMessage(nil), doc.Request.StructuredTree...)
	}
	c.Request.MarkupText = clonePtr(doc.Request.MarkupText)
	c.HTML = clonePtr(doc.HTML)
	c.PlainText = clonePtr(doc.PlainText)
	c.WordCount = clonePtr(doc.WordCount)
	c.ReadTime = clonePtr(doc.ReadTime)
	if doc.Headings != nil {
		c.Headings = append(make([]contentrender.Heading, 0, len(doc.Headings)), doc.Headings...)
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
