package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRemote implements RemoteStore on a Redis server using one hash per
// collection. Merge semantics are read-merge-write: Redis stores opaque
// values, so field preservation happens client-side.
type RedisRemote struct {
	client *redis.Client
	prefix string
}

// NewRedisRemote constructs a RedisRemote. prefix namespaces the hashes so
// several stores can share one server.
func NewRedisRemote(client *redis.Client, prefix string) *RedisRemote {
	if prefix == "" {
		prefix = "tillpoint"
	}
	return &RedisRemote{client: client, prefix: prefix}
}

func (r *RedisRemote) key(collection string) string {
	return r.prefix + ":" + collection
}

// GetAll returns every document in the collection hash.
func (r *RedisRemote) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	vals, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis remote: get all %s: %w", collection, err)
	}
	docs := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		docs = append(docs, json.RawMessage(v))
	}
	return docs, nil
}

// Set upserts a document into the collection hash. With merge set, fields of
// an existing document absent from doc are preserved.
func (r *RedisRemote) Set(ctx context.Context, collection, id string, doc map[string]any, merge bool) error {
	payload := doc
	if merge {
		existing, err := r.client.HGet(ctx, r.key(collection), id).Result()
		switch {
		case err == redis.Nil:
			// No document to merge with.
		case err != nil:
			return fmt.Errorf("redis remote: read %s/%s: %w", collection, id, err)
		default:
			merged := make(map[string]any)
			if err := json.Unmarshal([]byte(existing), &merged); err == nil {
				for k, v := range doc {
					merged[k] = v
				}
				payload = merged
			}
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis remote: marshal %s/%s: %w", collection, id, err)
	}
	if err := r.client.HSet(ctx, r.key(collection), id, string(data)).Err(); err != nil {
		return fmt.Errorf("redis remote: set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping reports server reachability.
func (r *RedisRemote) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
