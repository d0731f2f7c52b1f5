package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCleaner struct {
	deleted int64
	err     error
	calls   int
}

func (s *stubCleaner) Cleanup() (int64, error) {
	s.calls++
	return s.deleted, s.err
}

type stubPurger struct {
	deleted   int64
	err       error
	olderThan time.Duration
}

func (s *stubPurger) PurgeStale(olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return s.deleted, s.err
}

func TestCleanupSessionsProcessor(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cleaner := &stubCleaner{deleted: 7}
		processor := CleanupSessionsProcessor(cleaner)

		err := processor(context.Background(), CleanupSessionsTask{})
		require.NoError(t, err)
		assert.Equal(t, 1, cleaner.calls)
	})

	t.Run("error propagates for retry", func(t *testing.T) {
		cleaner := &stubCleaner{err: errors.New("database locked")}
		processor := CleanupSessionsProcessor(cleaner)

		err := processor(context.Background(), CleanupSessionsTask{})
		assert.Error(t, err)
	})

	t.Run("nil cleaner", func(t *testing.T) {
		processor := CleanupSessionsProcessor(nil)
		err := processor(context.Background(), CleanupSessionsTask{})
		assert.Error(t, err)
	})
}

func TestPurgeTokensProcessor(t *testing.T) {
	t.Run("uses configured retention", func(t *testing.T) {
		purger := &stubPurger{deleted: 3}
		processor := PurgeTokensProcessor(purger)

		err := processor(context.Background(), PurgeTokensTask{RetentionDays: 14})
		require.NoError(t, err)
		assert.Equal(t, 14*24*time.Hour, purger.olderThan)
	})

	t.Run("defaults to 30 days", func(t *testing.T) {
		purger := &stubPurger{}
		processor := PurgeTokensProcessor(purger)

		err := processor(context.Background(), PurgeTokensTask{})
		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, purger.olderThan)
	})

	t.Run("error propagates for retry", func(t *testing.T) {
		purger := &stubPurger{err: errors.New("database locked")}
		processor := PurgeTokensProcessor(purger)

		err := processor(context.Background(), PurgeTokensTask{})
		assert.Error(t, err)
	})
}

func TestQueueConfigs(t *testing.T) {
	assert.Equal(t, "cleanup_sessions", CleanupSessionsTask{}.Config().Name)
	assert.Equal(t, "purge_tokens", PurgeTokensTask{}.Config().Name)
}
