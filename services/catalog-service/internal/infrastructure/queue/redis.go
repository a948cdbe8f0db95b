package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStreamSender appends messages to the stream "queue:<name>".
type RedisStreamSender struct {
	client *redis.Client
	maxLen int64
}

func NewRedisStreamSender(client *redis.Client, maxLen int64) *RedisStreamSender {
	return &RedisStreamSender{client: client, maxLen: maxLen}
}

func (s *RedisStreamSender) Send(ctx context.Context, queueName string, message json.RawMessage) (string, error) {
	args := &redis.XAddArgs{
		Stream: "queue:" + queueName,
		Values: map[string]interface{}{"message": string(message)},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", errors.Wrapf(err, "xadd %s", queueName)
	}
	return id, nil
}
