package detector

import (
	"sync/atomic"
	"time"

	"discord-antinuke-bot/internal/antinuke/core"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/models"
)

// ViolationDetector decides whether an attributed event pushes its actor over a threshold.
// Evaluate must be called from the event loop; SetSelf may be called from anywhere.
type ViolationDetector struct {
	tracker *core.ActorEventTracker
	self    atomic.Uint64
}

// NewViolationDetector creates a detector counting into tracker
func NewViolationDetector(tracker *core.ActorEventTracker) *ViolationDetector {
	return &ViolationDetector{tracker: tracker}
}

// SetSelf records the bot's own identity so its punishments are never counted
func (d *ViolationDetector) SetSelf(id models.ActorID) {
	d.self.Store(uint64(id))
}

// Self returns the identity set by SetSelf, or 0
func (d *ViolationDetector) Self() models.ActorID {
	return models.ActorID(d.self.Load())
}

// Tracker exposes the underlying tracker for sweeps and status output
func (d *ViolationDetector) Tracker() *core.ActorEventTracker {
	return d.tracker
}

// Evaluate records the event and returns a report when the actor's count within the
// window reaches the category's threshold. Whitelisted actors and the bot itself return
// nil before anything is recorded.
func (d *ViolationDetector) Evaluate(actor models.ActorID, category models.EventCategory, now time.Time, settings config.Settings) *models.ViolationReport {
	if self := d.Self(); self != 0 && actor == self {
		metrics.EventsSkipped.WithLabelValues("self").Inc()
		return nil
	}
	if settings.IsWhitelisted(actor) {
		metrics.EventsSkipped.WithLabelValues("whitelisted").Inc()
		return nil
	}

	window := settings.Window()
	count := d.tracker.Record(actor, category, now, window)
	threshold := settings.ThresholdFor(category)

	if count < threshold {
		return nil
	}

	metrics.Violations.WithLabelValues(category.String()).Inc()
	return &models.ViolationReport{
		Actor:     actor,
		Category:  category,
		Count:     count,
		Threshold: threshold,
		Window:    window,
	}
}
