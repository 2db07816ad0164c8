package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis подключается к Redis и проверяет соединение.
func OpenRedis(addr string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// RedisPublisher публикует события в канал Redis Pub/Sub.
// Канал события: <channel>.<kind>.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher создает RedisPublisher.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish отправляет событие подписчикам.
func (p *RedisPublisher) Publish(ctx context.Context, event Event, data []byte) error {
	channel := fmt.Sprintf("%s.%s", p.channel, event.Kind)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
