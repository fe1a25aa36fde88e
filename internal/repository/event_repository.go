package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/storage"
)

// EventRepository handles security event persistence and rotation. The
// whole event set is held in memory (it is bounded by the rotation cap)
// and flushed to the sealed events collection on every mutation.
type EventRepository struct {
	col *storage.Collection
	cap int

	mu     sync.RWMutex
	events map[string]model.SecurityEvent
}

// NewEventRepository opens the events collection and loads the current
// event set. A missing collection yields an empty log; an unreadable one
// is a storage error the caller must surface, never silently discard.
func NewEventRepository(store *storage.Store, rotationCap int) (*EventRepository, error) {
	r := &EventRepository{
		col:    store.Collection("events"),
		cap:    rotationCap,
		events: make(map[string]model.SecurityEvent),
	}

	var persisted []model.SecurityEvent
	if err := r.col.Load(&persisted); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load events: %w", err)
		}
	}
	for _, ev := range persisted {
		r.events[ev.ID] = ev
	}
	return r, nil
}

// Record appends the event (replacing any record with the same id) and
// applies rotation before returning: once Record returns, the log holds
// at most the rotation cap of most recent events.
func (r *EventRepository) Record(ctx context.Context, event model.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.snapshotLocked()
	r.events[event.ID] = event
	r.rotateLocked()
	if err := r.flushLocked(); err != nil {
		r.events = before
		return err
	}
	return nil
}

// Import inserts events with conflict policy "ignore existing id", then
// re-applies rotation. Returns the number of newly inserted events.
func (r *EventRepository) Import(ctx context.Context, events []model.SecurityEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.snapshotLocked()
	inserted := 0
	for _, ev := range events {
		if _, exists := r.events[ev.ID]; exists {
			continue
		}
		r.events[ev.ID] = ev
		inserted++
	}
	r.rotateLocked()
	if err := r.flushLocked(); err != nil {
		r.events = before
		return 0, err
	}
	return inserted, nil
}

// All returns every event ordered by timestamp descending.
func (r *EventRepository) All(ctx context.Context) ([]model.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(nil), nil
}

// ByType returns events of the given type, most recent first.
func (r *EventRepository) ByType(ctx context.Context, eventType model.EventType) ([]model.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(ev model.SecurityEvent) bool {
		return ev.Type == eventType
	}), nil
}

// ByDateRange returns events with start <= timestamp <= end, most recent first.
func (r *EventRepository) ByDateRange(ctx context.Context, start, end time.Time) ([]model.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(ev model.SecurityEvent) bool {
		return !ev.Timestamp.Before(start) && !ev.Timestamp.After(end)
	}), nil
}

// ByTypeAndDateRange combines the type and date-range filters.
func (r *EventRepository) ByTypeAndDateRange(ctx context.Context, eventType model.EventType, start, end time.Time) ([]model.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(ev model.SecurityEvent) bool {
		return ev.Type == eventType && !ev.Timestamp.Before(start) && !ev.Timestamp.After(end)
	}), nil
}

// ByID retrieves an event by id, returning ErrNotFound when absent.
func (r *EventRepository) ByID(ctx context.Context, id string) (*model.SecurityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

// Count returns the total number of events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events), nil
}

// CountByType returns the number of events of the given type.
func (r *EventRepository) CountByType(ctx context.Context, eventType model.EventType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			count++
		}
	}
	return count, nil
}

// Recent returns the limit most recent events; limit 0 returns an empty slice.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]model.SecurityEvent, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", limit)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedLocked(nil)
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Delete removes an event by id, reporting whether a record existed.
func (r *EventRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return false, nil
	}
	delete(r.events, id)
	if err := r.flushLocked(); err != nil {
		r.events[id] = ev
		return false, err
	}
	return true, nil
}

// DeleteAll removes every event.
func (r *EventRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.events
	r.events = make(map[string]model.SecurityEvent)
	if err := r.flushLocked(); err != nil {
		r.events = before
		return err
	}
	return nil
}

// snapshotLocked copies the event set so a failed flush can restore the
// in-memory view to match what is still on disk.
func (r *EventRepository) snapshotLocked() map[string]model.SecurityEvent {
	snapshot := make(map[string]model.SecurityEvent, len(r.events))
	for id, ev := range r.events {
		snapshot[id] = ev
	}
	return snapshot
}

// rotateLocked evicts the oldest events until the count is within the
// cap. Eviction order is timestamp ascending, ties broken by id so the
// outcome is deterministic.
func (r *EventRepository) rotateLocked() {
	excess := len(r.events) - r.cap
	if excess <= 0 {
		return
	}

	oldest := make([]model.SecurityEvent, 0, len(r.events))
	for _, ev := range r.events {
		oldest = append(oldest, ev)
	}
	sort.Slice(oldest, func(i, j int) bool {
		if !oldest[i].Timestamp.Equal(oldest[j].Timestamp) {
			return oldest[i].Timestamp.Before(oldest[j].Timestamp)
		}
		return oldest[i].ID < oldest[j].ID
	})
	for _, ev := range oldest[:excess] {
		delete(r.events, ev.ID)
	}
}

// sortedLocked returns events matching the filter ordered by timestamp
// descending, ties broken by id descending for stable repeated queries.
func (r *EventRepository) sortedLocked(match func(model.SecurityEvent) bool) []model.SecurityEvent {
	result := make([]model.SecurityEvent, 0, len(r.events))
	for _, ev := range r.events {
		if match == nil || match(ev) {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (r *EventRepository) flushLocked() error {
	persisted := make([]model.SecurityEvent, 0, len(r.events))
	for _, ev := range r.events {
		persisted = append(persisted, ev)
	}
	if err := r.col.Save(persisted); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	return nil
}
