package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the payload published on every online-set change.
type Snapshot struct {
	Users []int64 `json:"users"`
}

// RedisMirror publishes online snapshots to a Redis channel and keeps the
// current set under a key of the same name, so other processes can read or
// subscribe to presence without holding a WebSocket.
type RedisMirror struct {
	client  *redis.Client
	channel string
	setKey  string
}

// NewRedisMirror connects to url and verifies the connection.
func NewRedisMirror(ctx context.Context, url, channel string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisMirror{client: client, channel: channel, setKey: channel + ":set"}, nil
}

// PublishOnline replaces the stored set with users and publishes the snapshot.
func (m *RedisMirror) PublishOnline(ctx context.Context, users []int64) error {
	payload, err := json.Marshal(Snapshot{Users: users})
	if err != nil {
		return fmt.Errorf("presence: marshal snapshot: %w", err)
	}

	members := make([]any, 0, len(users))
	for _, id := range users {
		members = append(members, strconv.FormatInt(id, 10))
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, m.setKey)
		if len(members) > 0 {
			pipe.SAdd(ctx, m.setKey, members...)
		}
		pipe.Publish(ctx, m.channel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence: publish: %w", err)
	}
	return nil
}

// Online reads the mirrored online set.
func (m *RedisMirror) Online(ctx context.Context) ([]int64, error) {
	members, err := m.client.SMembers(ctx, m.setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: read set: %w", err)
	}
	users := make([]int64, 0, len(members))
	for _, raw := range members {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("presence: bad member %q: %w", raw, err)
		}
		users = append(users, id)
	}
	return users, nil
}

// Close releases the Redis connection.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
