package antinuke

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"discord-antinuke-bot/internal/antinuke/core"
	"discord-antinuke-bot/internal/antinuke/detector"
	"discord-antinuke-bot/internal/antinuke/mitigation"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/engine/loop"
	"discord-antinuke-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memoryStore struct {
	settings *config.Settings
	saves    int
}

func (m *memoryStore) Load(context.Context) (config.Settings, error) {
	if m.settings == nil {
		return config.Settings{}, config.ErrNotFound
	}
	return m.settings.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, s config.Settings) error {
	c := s.Clone()
	m.settings = &c
	m.saves++
	return nil
}

type staticResolver struct {
	actor      models.ActorID
	err        error
	remembered []models.ActorID
}

func (r *staticResolver) Resolve(context.Context, string, string, models.EventCategory) (models.ActorID, error) {
	return r.actor, r.err
}

func (r *staticResolver) Remember(_ context.Context, _, _ string, _ models.EventCategory, actor models.ActorID) {
	r.remembered = append(r.remembered, actor)
}

type recordingMitigator struct {
	mu       sync.Mutex
	reports  []models.ViolationReport
	channels []string
	err      error
	applied  chan struct{}
}

func (m *recordingMitigator) Apply(_ context.Context, report *models.ViolationReport, _ string, logChannelID string) error {
	m.mu.Lock()
	m.reports = append(m.reports, *report)
	m.channels = append(m.channels, logChannelID)
	m.mu.Unlock()
	if m.applied != nil {
		m.applied <- struct{}{}
	}
	return m.err
}

func newService(t *testing.T, resolver Resolver, mitigator Mitigator) (*Service, *loop.Loop) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	manager := config.NewManager(&memoryStore{}, logger)
	require.NoError(t, manager.Load(context.Background()))

	l := loop.New(16, logger)
	svc := New(Options{
		GuildID:     "guild",
		Settings:    manager,
		Detector:    detector.NewViolationDetector(core.NewActorEventTracker(0)),
		Mitigator:   mitigator,
		Resolver:    resolver,
		Loop:        l,
		Logger:      logger,
		Attribution: config.AttributionLookup,
	})
	return svc, l
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func record(actor models.ActorID, category models.EventCategory, sec int) models.EventRecord {
	return models.EventRecord{
		GuildID:   "guild",
		Actor:     actor,
		Category:  category,
		Timestamp: epoch.Add(time.Duration(sec) * time.Second),
	}
}

func TestProcess_MitigatesOnThreshold(t *testing.T) {
	mitigator := &recordingMitigator{}
	svc, _ := newService(t, nil, mitigator)
	ctx := context.Background()

	assert.Nil(t, svc.Process(ctx, record(1, models.CategoryBan, 0)))
	assert.Nil(t, svc.Process(ctx, record(1, models.CategoryBan, 20)))
	assert.Empty(t, mitigator.reports, "below threshold must not mitigate")

	report := svc.Process(ctx, record(1, models.CategoryBan, 40))
	require.NotNil(t, report)
	require.Len(t, mitigator.reports, 1)
	assert.Equal(t, 3, mitigator.reports[0].Count)

	report = svc.Process(ctx, record(1, models.CategoryBan, 65))
	require.NotNil(t, report, "sustained violations trigger again")
	assert.Len(t, mitigator.reports, 2)
}

func TestProcess_MitigationErrorsDoNotPanic(t *testing.T) {
	for _, err := range []error{
		mitigation.ErrInsufficientPermission,
		mitigation.ErrDestinationUnavailable,
		errors.New("other"),
	} {
		mitigator := &recordingMitigator{err: err}
		svc, _ := newService(t, nil, mitigator)
		for i := 0; i < 3; i++ {
			svc.Process(context.Background(), record(2, models.CategoryChannelDeletion, i))
		}
		assert.Len(t, mitigator.reports, 1)
	}
}

func TestProcess_UsesLogChannel(t *testing.T) {
	mitigator := &recordingMitigator{}
	svc, _ := newService(t, nil, mitigator)
	ctx := context.Background()

	_, err := svc.Settings().ApplyForm(ctx, config.Proposal{
		BanThreshold:      "1",
		DeletionThreshold: "3",
		TimeWindow:        "60",
		LogChannel:        "555",
	}, allChannels{})
	require.NoError(t, err)

	require.NotNil(t, svc.Process(ctx, record(3, models.CategoryBan, 0)))
	assert.Equal(t, []string{"555"}, mitigator.channels)
}

type allChannels struct{}

func (allChannels) ChannelExists(string) bool { return true }

func TestObserve_ResolvesOnLoop(t *testing.T) {
	mitigator := &recordingMitigator{applied: make(chan struct{}, 1)}
	svc, l := newService(t, &staticResolver{actor: 9}, mitigator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Observe(ctx, "guild", "target", models.CategoryRoleDeletion, epoch.Add(time.Duration(i)*time.Second)))
	}

	select {
	case <-mitigator.applied:
	case <-time.After(2 * time.Second):
		t.Fatal("violation was not mitigated")
	}
	assert.Equal(t, models.ActorID(9), mitigator.reports[0].Actor)
}

func TestObserve_IgnoresOtherGuilds(t *testing.T) {
	svc, l := newService(t, &staticResolver{actor: 9}, &recordingMitigator{})

	require.NoError(t, svc.Observe(context.Background(), "elsewhere", "t", models.CategoryBan, epoch))
	assert.Zero(t, l.Pending())
}

func TestObserve_AttributionFailure(t *testing.T) {
	mitigator := &recordingMitigator{}
	svc, l := newService(t, &staticResolver{err: errors.New("no entry")}, mitigator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Observe(ctx, "guild", "t", models.CategoryBan, epoch))
	}
	require.NoError(t, svc.Submit(ctx, "barrier", func(context.Context) { close(done) }))
	<-done

	assert.Empty(t, mitigator.reports)
	assert.Zero(t, svc.Status().Tracker.ActiveBuckets)
}

func TestObserveAttributed_RemembersActor(t *testing.T) {
	resolver := &staticResolver{}
	svc, l := newService(t, resolver, &recordingMitigator{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.NoError(t, svc.ObserveAttributed(ctx, record(4, models.CategoryBan, 0)))

	done := make(chan struct{})
	require.NoError(t, svc.Submit(ctx, "barrier", func(context.Context) { close(done) }))
	<-done

	assert.Equal(t, []models.ActorID{4}, resolver.remembered)
	assert.Equal(t, 1, svc.Status().Tracker.TotalEvents)
}

func TestSweep(t *testing.T) {
	svc, _ := newService(t, nil, &recordingMitigator{})
	svc.Process(context.Background(), record(1, models.CategoryBan, 0))
	svc.Process(context.Background(), record(2, models.CategoryBan, 100))

	svc.now = func() time.Time { return epoch.Add(120 * time.Second) }
	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 1, svc.Status().Tracker.ActiveBuckets)
}
