package antinuke

import (
	"context"
	"errors"
	"time"

	"discord-antinuke-bot/internal/antinuke/core"
	"discord-antinuke-bot/internal/antinuke/detector"
	"discord-antinuke-bot/internal/antinuke/mitigation"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/engine/loop"
	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/models"

	"go.uber.org/zap"
)

// ErrCommandRegistration is returned when the platform rejects the command sync
var ErrCommandRegistration = errors.New("command registration rejected")

// Resolver attributes a gateway event to the actor that caused it
type Resolver interface {
	Resolve(ctx context.Context, guildID, targetID string, category models.EventCategory) (models.ActorID, error)
	Remember(ctx context.Context, guildID, targetID string, category models.EventCategory, actor models.ActorID)
}

// Mitigator punishes a violator
type Mitigator interface {
	Apply(ctx context.Context, report *models.ViolationReport, guildID, logChannelID string) error
}

// Service wires the event source to the detector and mitigation.
// Everything that touches the tracker or the settings runs as a loop job.
type Service struct {
	guildID   string
	settings  *config.Manager
	detector  *detector.ViolationDetector
	mitigator Mitigator
	resolver  Resolver
	loop      *loop.Loop
	logger    *zap.Logger
	mode      string
	now       func() time.Time
}

// Options bundles the collaborators of a Service
type Options struct {
	GuildID   string
	Settings  *config.Manager
	Detector  *detector.ViolationDetector
	Mitigator Mitigator
	Resolver  Resolver
	Loop      *loop.Loop
	Logger    *zap.Logger

	// Attribution is the configured attribution mode, reported by Status
	Attribution string
}

// New creates the anti-nuke service
func New(opts Options) *Service {
	return &Service{
		guildID:   opts.GuildID,
		settings:  opts.Settings,
		detector:  opts.Detector,
		mitigator: opts.Mitigator,
		resolver:  opts.Resolver,
		loop:      opts.Loop,
		logger:    opts.Logger.Named("antinuke"),
		mode:      opts.Attribution,
		now:       time.Now,
	}
}

// GuildID returns the protected guild
func (s *Service) GuildID() string {
	return s.guildID
}

// Settings returns the settings manager
func (s *Service) Settings() *config.Manager {
	return s.settings
}

// Detector returns the violation detector
func (s *Service) Detector() *detector.ViolationDetector {
	return s.detector
}

// Submit queues work on the event loop
func (s *Service) Submit(ctx context.Context, name string, run func(ctx context.Context)) error {
	return s.loop.Submit(ctx, loop.Job{Name: name, Run: run})
}

// Observe queues an unattributed gateway event. receivedAt is the moment the gateway
// delivered it; the actor is looked up in the audit log when the job runs.
func (s *Service) Observe(ctx context.Context, guildID, targetID string, category models.EventCategory, receivedAt time.Time) error {
	if !s.accept(guildID, category) {
		return nil
	}
	return s.Submit(ctx, "observe:"+category.String(), func(ctx context.Context) {
		actor, err := s.resolver.Resolve(ctx, guildID, targetID, category)
		if err != nil {
			s.logger.Warn("could not attribute event",
				zap.String("category", category.String()),
				zap.String("target", targetID),
				zap.Error(err),
			)
			return
		}
		s.Process(ctx, models.EventRecord{
			GuildID:   guildID,
			Actor:     actor,
			Category:  category,
			TargetID:  targetID,
			Timestamp: receivedAt,
		})
	})
}

// ObserveAttributed queues an event whose actor is already known (audit stream)
func (s *Service) ObserveAttributed(ctx context.Context, rec models.EventRecord) error {
	if !s.accept(rec.GuildID, rec.Category) {
		return nil
	}
	return s.Submit(ctx, "stream:"+rec.Category.String(), func(ctx context.Context) {
		if s.resolver != nil {
			s.resolver.Remember(ctx, rec.GuildID, rec.TargetID, rec.Category, rec.Actor)
		}
		s.Process(ctx, rec)
	})
}

func (s *Service) accept(guildID string, category models.EventCategory) bool {
	if guildID != s.guildID {
		metrics.EventsSkipped.WithLabelValues("other_guild").Inc()
		return false
	}
	metrics.EventsReceived.WithLabelValues(category.String()).Inc()
	return true
}

// Process evaluates one attributed event and mitigates a violation. Must run on the loop.
// It returns the report that triggered mitigation, or nil.
func (s *Service) Process(ctx context.Context, rec models.EventRecord) *models.ViolationReport {
	settings := s.settings.Current()

	report := s.detector.Evaluate(rec.Actor, rec.Category, rec.Timestamp, settings)
	metrics.TrackedBuckets.Set(float64(s.detector.Tracker().GetStats().ActiveBuckets))
	if report == nil {
		return nil
	}

	s.logger.Warn("violation detected",
		zap.String("actor", rec.Actor.String()),
		zap.String("category", rec.Category.String()),
		zap.Int("count", report.Count),
		zap.Int("threshold", report.Threshold),
		zap.Duration("window", report.Window),
	)

	err := s.mitigator.Apply(ctx, report, rec.GuildID, settings.LogChannel())
	switch {
	case err == nil:
	case errors.Is(err, mitigation.ErrInsufficientPermission):
		s.logger.Error("violation report discarded: bot cannot ban", zap.String("actor", rec.Actor.String()))
	case errors.Is(err, mitigation.ErrDestinationUnavailable):
		s.logger.Warn("ban applied but not logged", zap.String("actor", rec.Actor.String()), zap.Error(err))
	default:
		s.logger.Error("mitigation failed", zap.String("actor", rec.Actor.String()), zap.Error(err))
	}
	return report
}

// Sweep drops idle tracker buckets. Must run on the loop.
func (s *Service) Sweep() int {
	tracker := s.detector.Tracker()
	removed := tracker.Sweep(s.now(), s.settings.Current().Window())
	stats := tracker.GetStats()
	metrics.TrackedBuckets.Set(float64(stats.ActiveBuckets))
	if removed > 0 {
		s.logger.Debug("tracker swept", zap.Int("removed", removed), zap.Int("remaining", stats.ActiveBuckets))
	}
	return removed
}

// RunSweeper queues a sweep every interval until ctx is cancelled
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Submit(ctx, "sweep", func(context.Context) { s.Sweep() }); err != nil {
				return
			}
		}
	}
}

// Status is a snapshot for the status command
type Status struct {
	Settings     config.Settings
	Tracker      core.TrackerStats
	PendingJobs  int
	Attribution  string
	SelfIdentity models.ActorID
}

// Status returns a snapshot. Must run on the loop.
func (s *Service) Status() Status {
	return Status{
		Settings:     s.settings.Current(),
		Tracker:      s.detector.Tracker().GetStats(),
		PendingJobs:  s.loop.Pending(),
		Attribution:  s.mode,
		SelfIdentity: s.detector.Self(),
	}
}
