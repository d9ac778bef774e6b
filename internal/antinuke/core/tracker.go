package core

import (
	"time"

	"discord-antinuke-bot/internal/models"
)

type bucketKey struct {
	actor  models.ActorID
	bucket models.Bucket
}

// ActorEventTracker keeps a sliding window of event timestamps per actor and bucket.
// It is not safe for concurrent use; the event loop is its only writer.
type ActorEventTracker struct {
	buckets   map[bucketKey][]time.Time
	maxActors int
}

// NewActorEventTracker creates a tracker. maxActors <= 0 disables the cap.
func NewActorEventTracker(maxActors int) *ActorEventTracker {
	return &ActorEventTracker{
		buckets:   make(map[bucketKey][]time.Time),
		maxActors: maxActors,
	}
}

// Record appends now to the actor's bucket, purges entries older than the window
// and returns the number of events left in the window.
func (t *ActorEventTracker) Record(actor models.ActorID, category models.EventCategory, now time.Time, window time.Duration) int {
	key := bucketKey{actor: actor, bucket: category.Bucket()}

	events, ok := t.buckets[key]
	if !ok && t.maxActors > 0 && len(t.buckets) >= t.maxActors {
		t.Sweep(now, window)
		if len(t.buckets) >= t.maxActors {
			t.evictOldest()
		}
	}

	events = purge(append(events, now), now, window)
	t.buckets[key] = events
	return len(events)
}

// Count returns the number of events inside the window without recording anything
func (t *ActorEventTracker) Count(actor models.ActorID, category models.EventCategory, now time.Time, window time.Duration) int {
	n := 0
	for _, ts := range t.buckets[bucketKey{actor: actor, bucket: category.Bucket()}] {
		if now.Sub(ts) < window {
			n++
		}
	}
	return n
}

// Len returns the raw bucket length, stale entries included
func (t *ActorEventTracker) Len(actor models.ActorID, category models.EventCategory) int {
	return len(t.buckets[bucketKey{actor: actor, bucket: category.Bucket()}])
}

// Sweep drops buckets with no events inside the window and returns how many were removed
func (t *ActorEventTracker) Sweep(now time.Time, window time.Duration) int {
	removed := 0
	for key, events := range t.buckets {
		events = purge(events, now, window)
		if len(events) == 0 {
			delete(t.buckets, key)
			removed++
			continue
		}
		t.buckets[key] = events
	}
	return removed
}

// evictOldest removes the bucket whose most recent event is the oldest
func (t *ActorEventTracker) evictOldest() {
	var (
		oldestKey  bucketKey
		oldestSeen time.Time
		found      bool
	)
	for key, events := range t.buckets {
		if len(events) == 0 {
			delete(t.buckets, key)
			return
		}
		last := events[len(events)-1]
		if !found || last.Before(oldestSeen) {
			oldestKey, oldestSeen, found = key, last, true
		}
	}
	if found {
		delete(t.buckets, oldestKey)
	}
}

// purge filters events in place, keeping those with now - ts < window
func purge(events []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := events[:0]
	for _, ts := range events {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	// Release references held past the new length
	for i := len(kept); i < len(events); i++ {
		events[i] = time.Time{}
	}
	return kept
}

// TrackerStats summarizes tracker memory use
type TrackerStats struct {
	ActiveBuckets int
	TotalEvents   int
}

// GetStats returns current statistics
func (t *ActorEventTracker) GetStats() TrackerStats {
	stats := TrackerStats{ActiveBuckets: len(t.buckets)}
	for _, events := range t.buckets {
		stats.TotalEvents += len(events)
	}
	return stats
}
