package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	contentrender "github.com/alnah/go-contentrender"
)

// RedisOptions configures key layout and expiry.
type RedisOptions struct {
	Prefix string        // prepended to every document id
	TTL    time.Duration // 0 = keys never expire
}

// Redis stores each document as one JSON value.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
}

// NewRedis wraps an existing client. The client is closed by Close.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	return &Redis{client: client, opts: opts}
}

// DialRedis connects and pings the server before returning.
func DialRedis(ctx context.Context, o *redis.Options, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(o)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", o.Addr, err)
	}
	return NewRedis(client, opts), nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(id string) string {
	return r.opts.Prefix + id
}

func (r *Redis) Get(ctx context.Context, id string) (*contentrender.StoredDocument, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %q: %w", id, err)
	}

	var doc contentrender.StoredDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document %q: %w", id, err)
	}
	doc.ID = id
	return &doc, nil
}

func (r *Redis) Put(ctx context.Context, doc *contentrender.StoredDocument) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document id cannot be empty")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %q: %w", doc.ID, err)
	}
	if err := r.client.Set(ctx, r.key(doc.ID), raw, r.opts.TTL).Err(); err != nil {
		return fmt.Errorf("writing document %q: %w", doc.ID, err)
	}
	return nil
}
