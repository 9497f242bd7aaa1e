package services

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageJanitor_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves deleted objects", func(t *testing.T) {
		orphans := newFakeOrphanRepo()
		require.NoError(t, orphans.Record(ctx, "events/a/1.jpg", orphanReasonEdit, "timeout"))
		require.NoError(t, orphans.Record(ctx, "events/a/2.jpg", orphanReasonDelete, "timeout"))
		storage := newFakeStorage("events/a/1.jpg", "events/a/2.jpg")

		resolved, failed, err := NewStorageJanitor(orphans, storage, discardLogger(), time.Second).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, resolved)
		assert.Equal(t, 0, failed)
		assert.Empty(t, orphans.pending)
		assert.ElementsMatch(t, []string{"events/a/1.jpg", "events/a/2.jpg"}, storage.deleted)
	})

	t.Run("failed retries bump attempts until the limit", func(t *testing.T) {
		orphans := newFakeOrphanRepo()
		require.NoError(t, orphans.Record(ctx, "events/a/1.jpg", orphanReasonEdit, "timeout"))
		storage := newFakeStorage()
		storage.deleteErr = errBoom
		janitor := NewStorageJanitor(orphans, storage, discardLogger(), time.Second)

		for i := 0; i < janitorMaxAttempts; i++ {
			_, failed, err := janitor.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, failed)
		}
		_, failed, err := janitor.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, failed, "given up after the attempt limit")
		require.Len(t, orphans.pending, 1)
		for _, o := range orphans.pending {
			assert.Equal(t, janitorMaxAttempts, o.Attempts)
			assert.Equal(t, "boom", o.LastError)
		}
	})

	t.Run("list failure", func(t *testing.T) {
		orphans := newFakeOrphanRepo()
		orphans.listErr = errBoom
		_, _, err := NewStorageJanitor(orphans, newFakeStorage(), discardLogger(), time.Second).Run(ctx)
		require.ErrorIs(t, err, errBoom)
	})
}

func TestStorageJanitor_Schedule(t *testing.T) {
	c := cron.New()
	janitor := NewStorageJanitor(newFakeOrphanRepo(), newFakeStorage(), discardLogger(), time.Second)

	id, err := janitor.Schedule(c, "@every 1h")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = janitor.Schedule(c, "not a schedule")
	require.Error(t, err)
}
