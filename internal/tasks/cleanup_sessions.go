package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// SessionCleaner provides the ability to delete expired and idle sessions.
type SessionCleaner interface {
	Cleanup() (int64, error)
}

// CleanupSessionsTask reaps sessions past their expiry or idle beyond the
// inactivity horizon. Lazy reaping during validation keeps correctness; this
// task is storage hygiene and safe to re-run.
type CleanupSessionsTask struct{}

// Config returns the queue configuration for session cleanup tasks.
func (t CleanupSessionsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_sessions",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupSessionsProcessor creates a processor function for CleanupSessionsTask.
func CleanupSessionsProcessor(cleaner SessionCleaner) backlite.QueueProcessor[CleanupSessionsTask] {
	return func(ctx context.Context, task CleanupSessionsTask) error {
		if cleaner == nil {
			return fmt.Errorf("session cleaner not configured")
		}

		deleted, err := cleaner.Cleanup()
		if err != nil {
			return fmt.Errorf("cleanup sessions: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d expired or idle sessions", deleted)
		return nil
	}
}

// NewCleanupSessionsQueue creates a backlite queue for session cleanup tasks.
func NewCleanupSessionsQueue(cleaner SessionCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupSessionsProcessor(cleaner))
}
