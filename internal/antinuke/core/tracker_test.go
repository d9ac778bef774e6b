package core

import (
	"testing"
	"time"

	"discord-antinuke-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return epoch.Add(time.Duration(sec) * time.Second)
}

func TestTracker_Basic(t *testing.T) {
	tracker := NewActorEventTracker(0)

	for i := 1; i <= 5; i++ {
		count := tracker.Record(1, models.CategoryBan, at(i), time.Minute)
		assert.Equal(t, i, count)
	}
}

func TestTracker_CountMatchesWindow(t *testing.T) {
	tracker := NewActorEventTracker(0)
	window := 10 * time.Second
	times := []int{0, 3, 4, 9, 12, 13, 25, 26, 34}

	for i, sec := range times {
		now := at(sec)
		got := tracker.Record(7, models.CategoryBan, now, window)

		want := 0
		for _, prev := range times[:i+1] {
			if now.Sub(at(prev)) < window {
				want++
			}
		}
		assert.Equal(t, want, got, "event at t=%d", sec)
	}
}

func TestTracker_WindowBoundaryExcluded(t *testing.T) {
	tracker := NewActorEventTracker(0)

	tracker.Record(1, models.CategoryBan, at(0), 60*time.Second)
	count := tracker.Record(1, models.CategoryBan, at(60), 60*time.Second)

	assert.Equal(t, 1, count, "an event exactly one window old must not be counted")
	assert.Equal(t, 1, tracker.Len(1, models.CategoryBan))
}

func TestTracker_SlidingWindowScenario(t *testing.T) {
	tracker := NewActorEventTracker(0)
	window := 60 * time.Second

	assert.Equal(t, 1, tracker.Record(1, models.CategoryBan, at(0), window))
	assert.Equal(t, 2, tracker.Record(1, models.CategoryBan, at(20), window))
	assert.Equal(t, 3, tracker.Record(1, models.CategoryBan, at(40), window))
	assert.Equal(t, 3, tracker.Record(1, models.CategoryBan, at(65), window))
}

func TestTracker_MultipleActors(t *testing.T) {
	tracker := NewActorEventTracker(0)

	for i := 0; i < 3; i++ {
		tracker.Record(1, models.CategoryBan, at(i), time.Minute)
	}
	for i := 0; i < 4; i++ {
		tracker.Record(2, models.CategoryBan, at(i), time.Minute)
	}

	assert.Equal(t, 4, tracker.Record(1, models.CategoryBan, at(5), time.Minute))
	assert.Equal(t, 5, tracker.Record(2, models.CategoryBan, at(5), time.Minute))
}

func TestTracker_DeletionsShareBucket(t *testing.T) {
	tracker := NewActorEventTracker(0)

	tracker.Record(1, models.CategoryChannelDeletion, at(0), time.Minute)
	tracker.Record(1, models.CategoryRoleDeletion, at(1), time.Minute)
	count := tracker.Record(1, models.CategoryChannelDeletion, at(2), time.Minute)

	assert.Equal(t, 3, count)
	assert.Equal(t, 0, tracker.Len(1, models.CategoryBan), "bans are a separate bucket")
}

func TestTracker_CountDoesNotMutate(t *testing.T) {
	tracker := NewActorEventTracker(0)
	tracker.Record(1, models.CategoryBan, at(0), time.Minute)
	tracker.Record(1, models.CategoryBan, at(30), time.Minute)

	assert.Equal(t, 1, tracker.Count(1, models.CategoryBan, at(70), time.Minute))
	assert.Equal(t, 2, tracker.Len(1, models.CategoryBan))
}

func TestTracker_Sweep(t *testing.T) {
	tracker := NewActorEventTracker(0)
	tracker.Record(1, models.CategoryBan, at(0), time.Minute)
	tracker.Record(2, models.CategoryBan, at(50), time.Minute)
	tracker.Record(2, models.CategoryRoleDeletion, at(10), time.Minute)

	removed := tracker.Sweep(at(90), time.Minute)

	assert.Equal(t, 2, removed)
	stats := tracker.GetStats()
	assert.Equal(t, 1, stats.ActiveBuckets)
	assert.Equal(t, 1, stats.TotalEvents)
}

func TestTracker_MaxActorsEvictsOldest(t *testing.T) {
	tracker := NewActorEventTracker(2)
	window := time.Hour

	tracker.Record(1, models.CategoryBan, at(0), window)
	tracker.Record(2, models.CategoryBan, at(10), window)
	tracker.Record(3, models.CategoryBan, at(20), window)

	require.Equal(t, 2, tracker.GetStats().ActiveBuckets)
	assert.Equal(t, 0, tracker.Len(1, models.CategoryBan))
	assert.Equal(t, 1, tracker.Len(2, models.CategoryBan))
	assert.Equal(t, 1, tracker.Len(3, models.CategoryBan))
}

func TestTracker_MaxActorsPrefersSweep(t *testing.T) {
	tracker := NewActorEventTracker(2)
	window := 30 * time.Second

	tracker.Record(1, models.CategoryBan, at(0), window)
	tracker.Record(2, models.CategoryBan, at(40), window)
	tracker.Record(3, models.CategoryBan, at(45), window)

	assert.Equal(t, 0, tracker.Len(1, models.CategoryBan), "stale actor swept")
	assert.Equal(t, 1, tracker.Len(2, models.CategoryBan))
	assert.Equal(t, 1, tracker.Len(3, models.CategoryBan))
}

func BenchmarkTracker_Record(b *testing.B) {
	tracker := NewActorEventTracker(0)
	now := epoch

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		now = now.Add(time.Second)
		tracker.Record(1, models.CategoryBan, now, time.Minute)
	}
}
