package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	service "discord-antinuke-bot/internal/antinuke"
	"discord-antinuke-bot/internal/commands/antinuke"
	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot owns the gateway session and feeds its events to the anti-nuke service
type Bot struct {
	Session *discordgo.Session
	svc     *service.Service
	handler *antinuke.Handler
	cfg     *config.BotConfig
	logger  *zap.Logger

	// ctx bounds every job submitted from a gateway callback
	ctx context.Context
}

// NewSession creates the Discord session with the pooled REST transport and the
// intents the detector needs. The session is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	s.Client = &http.Client{
		Transport: &RESTTransport{Base: tr},
		Timeout:   20 * time.Second,
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentGuildModeration // bans and audit log entries

	// Handlers run on the gateway goroutine so events reach the loop in arrival order.
	s.SyncEvents = true
	s.StateEnabled = true
	s.State.TrackChannels = true
	s.State.TrackRoles = true
	s.State.TrackMembers = false
	s.State.TrackPresences = false
	s.State.MaxMessageCount = 0

	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3

	return s, nil
}

// New registers the gateway handlers on s
func New(s *discordgo.Session, svc *service.Service, handler *antinuke.Handler, cfg *config.BotConfig, logger *zap.Logger) *Bot {
	b := &Bot{
		Session: s,
		svc:     svc,
		handler: handler,
		cfg:     cfg,
		logger:  logger.Named("bot"),
		ctx:     context.Background(),
	}

	s.AddHandler(b.Ready)
	s.AddHandler(b.InteractionCreate)
	s.AddHandler(b.MessageCreate)

	if cfg.Attribution == config.AttributionStream {
		s.AddHandler(b.AuditLogEntry)
	} else {
		s.AddHandler(b.GuildBanAdd)
		s.AddHandler(b.ChannelDelete)
		s.AddHandler(b.GuildRoleDelete)
	}

	return b
}

// Start opens the gateway. Jobs submitted by handlers are bound to ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	b.logger.Info("connecting to Discord gateway",
		zap.String("guild", b.cfg.GuildID),
		zap.String("attribution", b.cfg.Attribution),
	)
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}

	go b.monitorHeartbeat(ctx)
	return nil
}

// Close closes the gateway connection
func (b *Bot) Close() error {
	b.logger.Info("closing gateway connection")
	return b.Session.Close()
}

// monitorHeartbeat exports the gateway heartbeat latency every 30 seconds
func (b *Bot) monitorHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			latency := b.Session.HeartbeatLatency()
			metrics.GatewayLatency.Set(latency.Seconds())
			if latency > 500*time.Millisecond {
				b.logger.Warn("high gateway latency", zap.Duration("latency", latency))
			}
		}
	}
}
