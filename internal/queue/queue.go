// Package queue wraps the asynq-backed job queue. Delivery is
// at-least-once; the pipeline handler is idempotent, so duplicate
// deliveries are harmless.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueLogProcessing is the queue name for run ingestion jobs.
	QueueLogProcessing = "log-processing"
	// TypeLogProcessing is the task type for run ingestion jobs.
	TypeLogProcessing = "log-processing"
)

// LogProcessingPayload is the wire format of a run ingestion job.
type LogProcessingPayload struct {
	RepoFullName   string `json:"repoFullName"`
	RunID          int64  `json:"runId"`
	InstallationID int64  `json:"installationId"`
}

// Settings carries the job tuning knobs.
type Settings struct {
	Lock           time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
}

// Client enqueues log-processing jobs.
type Client struct {
	inner    *asynq.Client
	settings Settings
}

func NewClient(redisAddr string, settings Settings) *Client {
	return &Client{
		inner:    asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		settings: settings,
	}
}

// EnqueueLogProcessing submits one run for end-to-end processing. The task
// timeout doubles as the job lock: a worker holds the job at most this long
// before the queue may hand it to another worker.
func (c *Client) EnqueueLogProcessing(ctx context.Context, payload LogProcessingPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	task := asynq.NewTask(TypeLogProcessing, data)
	_, err = c.inner.EnqueueContext(ctx, task,
		asynq.Queue(QueueLogProcessing),
		asynq.MaxRetry(c.settings.MaxRetries),
		asynq.Timeout(c.settings.Lock),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue log-processing job: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// NewServer builds the worker-side asynq server. Backoff is exponential
// from BackoffInitial; only that field of Settings is read here. Retry
// count and lock duration are set per task by EnqueueLogProcessing.
func NewServer(redisAddr string, concurrency int, settings Settings) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueLogProcessing: 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return settings.BackoffInitial << uint(n)
			},
		},
	)
}
