package queue

import (
	"context"
	"fmt"

	"github.com/allendavis-developer/cg-stock-take/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Queue publishes failure records so a run stays auditable after the fact.
// It is optional everywhere: a nil Queue means failures are only logged.
type Queue interface {
	Publish(ctx context.Context, t task.Task) (string, error) // Returns message ID
}

type RedisQueue struct {
	redisClient  *redis.Client
	streamPrefix string
}

func NewRedisQueue(redisClient *redis.Client) *RedisQueue {
	return &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: "stocktake:failures:",
	}
}

// Publish appends the task to the stream named after its type. Nothing in
// this process consumes the streams; they exist for inspection and manual
// replay.
func (q *RedisQueue) Publish(ctx context.Context, t task.Task) (string, error) {
	taskType := t.TaskType()
	streamName := q.streamPrefix + taskType

	taskValue, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Published %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

func (q *RedisQueue) Close() error {
	if q.redisClient != nil {
		return q.redisClient.Close()
	}
	return nil
}
