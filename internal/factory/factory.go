package factory

import (
	"io"
	"log/slog"

	"github.com/lobbyworks/presencehub/internal/config"
	"github.com/lobbyworks/presencehub/internal/dependencies/clock"
	"github.com/lobbyworks/presencehub/internal/dependencies/random"
	"github.com/lobbyworks/presencehub/internal/services/identity"
	"github.com/lobbyworks/presencehub/internal/services/presence"
	"github.com/lobbyworks/presencehub/internal/services/ratelimit"
	"github.com/lobbyworks/presencehub/internal/services/reaper"
	"github.com/lobbyworks/presencehub/internal/storage"
	"github.com/lobbyworks/presencehub/internal/storage/memory"
	redisstorage "github.com/lobbyworks/presencehub/internal/storage/redis"
	"github.com/lobbyworks/presencehub/internal/ws"
)

// App contains all wired application components
type App struct {
	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Core
	Engine    *identity.Engine
	Limiter   *ratelimit.Limiter
	Publisher *presence.Publisher
	Reaper    *reaper.Reaper

	// Transport
	Hub       *ws.Hub
	WSHandler *ws.Handler

	// Collaborator storage
	ChatStore storage.ChatStore
}

// New creates an application with all dependencies wired from cfg. Nothing
// is started: the caller owns the hub loop, the reaper schedule and their
// shutdown order.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	var chatStore storage.ChatStore
	switch cfg.StorageType {
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.HistoryBound = cfg.ChatHistory
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}
		chatStore = store
	default:
		chatStore = memory.New(cfg.ChatHistory)
	}

	return newWithDependencies(cfg, clk, rnd, chatStore, logger), nil
}

// newWithDependencies wires an App from explicit dependencies (useful for testing)
func newWithDependencies(cfg config.Config, clk clock.Clock, rnd random.Random, chatStore storage.ChatStore, logger *slog.Logger) *App {
	engine := identity.NewEngine(identity.Config{
		ConnectionCap: cfg.ConnectionCap,
		ConflictGrace: cfg.ConflictGrace,
		Retention:     cfg.Retention,
	}, clk, rnd, logger)

	limiter := ratelimit.New(cfg.RateLimitAttempts, cfg.RateLimitWindow, cfg.RateLimitBlock, clk)
	hub := ws.NewHub(logger)
	publisher := presence.New(engine, hub, cfg.PresenceCap, logger)
	sweeper := reaper.New(engine, publisher, limiter, cfg.ReaperPeriod, logger)

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		Engine:         engine,
		Publisher:      publisher,
		Limiter:        limiter,
		Hub:            hub,
		Chat:           chatStore,
		Clock:          clk,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		ChatReplay:     cfg.ChatHistory,
	})

	return &App{
		Clock:     clk,
		Random:    rnd,
		Engine:    engine,
		Limiter:   limiter,
		Publisher: publisher,
		Reaper:    sweeper,
		Hub:       hub,
		WSHandler: wsHandler,
		ChatStore: chatStore,
	}
}
