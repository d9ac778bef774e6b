package config

import (
	"context"
	"errors"
	"slices"

	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/models"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Manager
type State int

const (
	StateUnloaded State = iota
	StateLoaded
)

// ChannelResolver checks channel IDs against the live platform state
type ChannelResolver interface {
	ChannelExists(channelID string) bool
}

// Manager owns the in-memory settings and writes every mutation through to the store.
// Methods must be called from the event loop.
type Manager struct {
	store   Store
	logger  *zap.Logger
	current Settings
	state   State
}

// NewManager creates an unloaded manager
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		logger:  logger.Named("settings"),
		current: DefaultSettings(),
	}
}

// Load reads the settings, falling back to defaults (and persisting them) when the
// store is empty or malformed. When the store itself cannot be reached the defaults
// are used in memory only and the stored settings are left untouched. The manager
// is Loaded afterwards even if an error is returned.
func (m *Manager) Load(ctx context.Context) error {
	s, err := m.store.Load(ctx)
	switch {
	case err == nil:
		m.current = s
		m.state = StateLoaded
		m.logger.Info("settings loaded",
			zap.Int("threshold_bans", s.BanThreshold),
			zap.Int("threshold_deletions", s.DeletionThreshold),
			zap.Int("time_window", s.TimeWindow),
			zap.String("log_channel_id", s.LogChannel()),
			zap.Int("whitelist", len(s.Whitelist)),
		)
		return nil
	case errors.Is(err, ErrNotFound):
		m.logger.Info("no settings found, creating defaults")
	case errors.Is(err, ErrConfigIO):
		m.logger.Error("settings store unreachable, using defaults without saving", zap.Error(err))
		m.current = DefaultSettings()
		m.state = StateLoaded
		return err
	default:
		m.logger.Warn("failed to load settings, writing defaults", zap.Error(err))
	}

	m.current = DefaultSettings()
	m.state = StateLoaded
	if err := m.store.Save(ctx, m.current); err != nil {
		m.logger.Error("failed to persist default settings", zap.Error(err))
		return err
	}
	return nil
}

// State returns the lifecycle state
func (m *Manager) State() State {
	return m.state
}

// Current returns a copy of the active settings
func (m *Manager) Current() Settings {
	return m.current.Clone()
}

// AddWhitelist adds an actor. It returns false without persisting when already present.
func (m *Manager) AddWhitelist(ctx context.Context, actor models.ActorID) (bool, error) {
	if m.current.IsWhitelisted(actor) {
		return false, nil
	}
	next := m.current.Clone()
	next.Whitelist = append(next.Whitelist, actor)
	return true, m.commit(ctx, next)
}

// RemoveWhitelist removes an actor. It returns false without persisting when absent.
func (m *Manager) RemoveWhitelist(ctx context.Context, actor models.ActorID) (bool, error) {
	if !m.current.IsWhitelisted(actor) {
		return false, nil
	}
	next := m.current.Clone()
	next.Whitelist = slices.DeleteFunc(next.Whitelist, func(id models.ActorID) bool { return id == actor })
	return true, m.commit(ctx, next)
}

// ApplyForm validates a form submission, applies it and persists the result.
// Nothing is changed when validation fails.
func (m *Manager) ApplyForm(ctx context.Context, p Proposal, channels ChannelResolver) (Settings, error) {
	next, err := ParseProposal(p, m.current)
	if err != nil {
		metrics.ConfigMutations.WithLabelValues("rejected").Inc()
		return m.Current(), err
	}
	if channels == nil || !channels.ChannelExists(next.LogChannel()) {
		metrics.ConfigMutations.WithLabelValues("rejected").Inc()
		return m.Current(), &ValidationError{Field: "log_channel_id", Message: "channel does not exist"}
	}

	if err := m.commit(ctx, next); err != nil {
		return m.Current(), err
	}
	return m.Current(), nil
}

// commit swaps the in-memory settings and persists them. The in-memory change is
// kept when persisting fails so the running detector follows what the admin asked for.
func (m *Manager) commit(ctx context.Context, next Settings) error {
	m.current = next.normalize()

	if err := m.store.Save(ctx, m.current); err != nil {
		metrics.ConfigMutations.WithLabelValues("unpersisted").Inc()
		m.logger.Error("failed to persist settings", zap.Error(err))
		return err
	}

	metrics.ConfigMutations.WithLabelValues("applied").Inc()
	m.logger.Info("settings updated",
		zap.Int("threshold_bans", m.current.BanThreshold),
		zap.Int("threshold_deletions", m.current.DeletionThreshold),
		zap.Int("time_window", m.current.TimeWindow),
		zap.String("log_channel_id", m.current.LogChannel()),
		zap.Int("whitelist", len(m.current.Whitelist)),
	)
	return nil
}
