package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// TokenPurger provides the ability to hard-delete long-dead API tokens.
type TokenPurger interface {
	PurgeStale(olderThan time.Duration) (int64, error)
}

// PurgeTokensTask hard-deletes tokens that have been revoked or expired for
// longer than the retention window. Revocation alone keeps denying; this
// only reclaims storage.
type PurgeTokensTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for token purge tasks.
func (t PurgeTokensTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_tokens",
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

// PurgeTokensProcessor creates a processor function for PurgeTokensTask.
func PurgeTokensProcessor(purger TokenPurger) backlite.QueueProcessor[PurgeTokensTask] {
	return func(ctx context.Context, task PurgeTokensTask) error {
		if purger == nil {
			return fmt.Errorf("token purger not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = 30
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		deleted, err := purger.PurgeStale(retention)
		if err != nil {
			return fmt.Errorf("purge tokens: %w", err)
		}

		log.Printf("[TASK] Purged %d tokens revoked or expired for over %d days", deleted, retentionDays)
		return nil
	}
}

// NewPurgeTokensQueue creates a backlite queue for token purge tasks.
func NewPurgeTokensQueue(purger TokenPurger) backlite.Queue {
	return backlite.NewQueue(PurgeTokensProcessor(purger))
}
