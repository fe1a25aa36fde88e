package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/storage"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(t.TempDir(), testKey)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func testEvent(id string, ts time.Time) model.SecurityEvent {
	return model.SecurityEvent{
		ID:          id,
		Type:        model.EventCommandExecuted,
		Timestamp:   ts,
		Description: "test event " + id,
	}
}

func TestEventRepositoryRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_a", base)))
	require.NoError(t, repo.Record(ctx, testEvent("evt_b", base.Add(time.Minute))))
	require.NoError(t, repo.Record(ctx, testEvent("evt_c", base.Add(2*time.Minute))))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most recent first
	assert.Equal(t, "evt_c", all[0].ID)
	assert.Equal(t, "evt_b", all[1].ID)
	assert.Equal(t, "evt_a", all[2].ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEventRepositoryPersistence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	repo, err := NewEventRepository(store, 1000)
	require.NoError(t, err)
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_persisted", ts)))

	// A fresh repository over the same store sees the event
	reopened, err := NewEventRepository(store, 1000)
	require.NoError(t, err)
	ev, err := reopened.ByID(ctx, "evt_persisted")
	require.NoError(t, err)
	assert.Equal(t, "evt_persisted", ev.ID)
	assert.True(t, ev.Timestamp.Equal(ts))
}

func TestEventRepositoryByType(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	executed := testEvent("evt_exec", base)
	rejected := testEvent("evt_rej", base.Add(time.Minute))
	rejected.Type = model.EventCommandRejected
	require.NoError(t, repo.Record(ctx, executed))
	require.NoError(t, repo.Record(ctx, rejected))

	got, err := repo.ByType(ctx, model.EventCommandRejected)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt_rej", got[0].ID)

	count, err := repo.CountByType(ctx, model.EventCommandExecuted)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEventRepositoryByDateRange(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, testEvent(fmt.Sprintf("evt_%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	// Bounds are inclusive on both ends
	got, err := repo.ByDateRange(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "evt_3", got[0].ID)
	assert.Equal(t, "evt_1", got[2].ID)

	got, err = repo.ByDateRange(ctx, base.Add(10*time.Hour), base.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventRepositoryByTypeAndDateRange(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inRange := testEvent("evt_in", base.Add(time.Hour))
	wrongType := testEvent("evt_type", base.Add(time.Hour))
	wrongType.Type = model.EventAuthFailure
	outOfRange := testEvent("evt_out", base.Add(48*time.Hour))
	for _, ev := range []model.SecurityEvent{inRange, wrongType, outOfRange} {
		require.NoError(t, repo.Record(ctx, ev))
	}

	got, err := repo.ByTypeAndDateRange(ctx, model.EventCommandExecuted, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt_in", got[0].ID)
}

func TestEventRepositoryByIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	_, err = repo.ByID(ctx, "evt_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepositoryRecent(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, testEvent(fmt.Sprintf("evt_%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "evt_4", got[0].ID)
	assert.Equal(t, "evt_3", got[1].ID)

	got, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	_, err = repo.Recent(ctx, -1)
	assert.Error(t, err)
}

func TestEventRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_a", ts)))

	deleted, err := repo.Delete(ctx, "evt_a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "evt_a")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestEventRepositoryDeleteAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo, err := NewEventRepository(store, 1000)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_a", ts)))
	require.NoError(t, repo.Record(ctx, testEvent("evt_b", ts.Add(time.Minute))))

	require.NoError(t, repo.DeleteAll(ctx))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The cleared state is persisted too
	reopened, err := NewEventRepository(store, 1000)
	require.NoError(t, err)
	count, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestEventRepositoryFlushFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo, err := NewEventRepository(store, 1000)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_a", ts)))

	// With the store closed every flush fails; the in-memory view must
	// keep matching what is on disk
	store.Close()

	err = repo.Record(ctx, testEvent("evt_b", ts.Add(time.Minute)))
	require.Error(t, err)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = repo.ByID(ctx, "evt_b")
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.Delete(ctx, "evt_a")
	require.Error(t, err)
	assert.False(t, deleted)
	got, err := repo.ByID(ctx, "evt_a")
	require.NoError(t, err)
	assert.Equal(t, "evt_a", got.ID)

	require.Error(t, repo.DeleteAll(ctx))
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	inserted, err := repo.Import(ctx, []model.SecurityEvent{testEvent("evt_c", ts)})
	require.Error(t, err)
	assert.Equal(t, 0, inserted)
	_, err = repo.ByID(ctx, "evt_c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepositoryRotation(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 10)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, repo.Record(ctx, testEvent(fmt.Sprintf("evt_%03d", i), base.Add(time.Duration(i)*time.Second))))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, count, 10, "count must never exceed the cap")
	}

	// The survivors are exactly the 10 most recent
	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, "evt_024", all[0].ID)
	assert.Equal(t, "evt_015", all[9].ID)

	_, err = repo.ByID(ctx, "evt_000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepositoryRotationTieBreak(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 2)
	require.NoError(t, err)

	// Identical timestamps: eviction falls back to id order
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, testEvent("evt_a", ts)))
	require.NoError(t, repo.Record(ctx, testEvent("evt_b", ts)))
	require.NoError(t, repo.Record(ctx, testEvent("evt_c", ts)))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "evt_c", all[0].ID)
	assert.Equal(t, "evt_b", all[1].ID)
}

func TestEventRepositoryImport(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 1000)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	existing := testEvent("evt_existing", ts)
	existing.Description = "original description"
	require.NoError(t, repo.Record(ctx, existing))

	conflicting := testEvent("evt_existing", ts.Add(time.Hour))
	conflicting.Description = "imported description"
	inserted, err := repo.Import(ctx, []model.SecurityEvent{
		conflicting,
		testEvent("evt_new_1", ts.Add(time.Minute)),
		testEvent("evt_new_2", ts.Add(2*time.Minute)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// The existing record wins the id conflict
	ev, err := repo.ByID(ctx, "evt_existing")
	require.NoError(t, err)
	assert.Equal(t, "original description", ev.Description)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEventRepositoryImportRotates(t *testing.T) {
	ctx := context.Background()
	repo, err := NewEventRepository(newTestStore(t), 3)
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var batch []model.SecurityEvent
	for i := 0; i < 8; i++ {
		batch = append(batch, testEvent(fmt.Sprintf("evt_%d", i), ts.Add(time.Duration(i)*time.Minute)))
	}
	_, err = repo.Import(ctx, batch)
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
