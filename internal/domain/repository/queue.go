package repository

import (
	"context"

	"github.com/google/uuid"
)

// WarmupItem is a catalog record to enrich ahead of time.
type WarmupItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// WarmupTask is a cache warm-up job message.
type WarmupTask struct {
	TaskID     uuid.UUID    `json:"task_id"`
	Items      []WarmupItem `json:"items"`
	RetryCount int          `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishWarmupTask sends a warm-up task to the queue.
	// Used by the API server to enrich catalog pages asynchronously.
	PublishWarmupTask(ctx context.Context, task WarmupTask) error

	// ConsumeWarmupTasks starts consuming warm-up tasks from the queue.
	// The handler function is called for each received task.
	// Used by the worker service.
	ConsumeWarmupTasks(ctx context.Context, handler func(task WarmupTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
