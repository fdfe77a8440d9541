package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ticket-bot/bot"
	"ticket-bot/command"
	"ticket-bot/config"
	"ticket-bot/database"
	"ticket-bot/database/mongodb"
	"ticket-bot/handlers"
	"ticket-bot/observability"
	"ticket-bot/rating"
	"ticket-bot/scanner"
	"ticket-bot/ticket"
	"ticket-bot/transcript"
	"ticket-bot/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// baseLogger writes to stdout only. It exists before the Discord session, so
// the session and the fx event log use it.
type baseLogger struct {
	*zap.Logger
}

func newBaseLogger(cfg *config.Config) (baseLogger, error) {
	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return baseLogger{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return baseLogger{logger}, nil
}

// newLogger adds the admin channel sink when one is configured.
func newLogger(lc fx.Lifecycle, cfg *config.Config, base baseLogger, discord *bot.Discord) *zap.Logger {
	if cfg.Bot.AdminChannelID == "" {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				_ = base.Sync()
				return nil
			},
		})
		return base.Logger
	}

	level := zapcore.WarnLevel
	if err := level.Set(cfg.Log.ChannelLevel); err != nil {
		base.Warn("invalid log.channelLevel, using warn", zap.String("value", cfg.Log.ChannelLevel))
		level = zapcore.WarnLevel
	}
	writer := utils.NewChannelWriter(discord, cfg.Bot.AdminChannelID, base.Logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			writer.Close()
			_ = base.Sync()
			return nil
		},
	})
	return utils.AttachChannel(base.Logger, writer, level)
}

func newBot(cfg *config.Config, base baseLogger) (*bot.Bot, error) {
	return bot.NewBot(cfg, command.DefaultRegistry(), base.Logger)
}

func newDiscord(b *bot.Bot) *bot.Discord {
	return bot.NewDiscord(b.Session)
}

// newStore opens the configured backend and closes it on shutdown.
func newStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (database.Store, error) {
	var (
		store database.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err = mongodb.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	default:
		store, err = database.OpenSQLite(cfg.Storage.SQLitePath)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing storage")
			return store.Close()
		},
	})
	return store, nil
}

func newTranscriptRenderer(discord *bot.Discord) *transcript.Renderer {
	return transcript.NewRenderer(discord)
}

func newRatingService(store database.Store, discord *bot.Discord, metrics *observability.Metrics, logger *zap.Logger) *rating.Service {
	return rating.NewService(rating.Deps{
		Store:    store,
		Channels: discord,
		Direct:   discord,
		Metrics:  metrics,
		Logger:   logger,
	})
}

func newDeleter(cfg *config.Config, store database.Store, discord *bot.Discord, metrics *observability.Metrics, logger *zap.Logger) *bot.Deleter {
	return bot.NewDeleter(store, discord, metrics, logger, bot.DeleterOptions{
		Delay:    cfg.Tickets.DeleteDelay,
		Schedule: cfg.Tickets.SweepSchedule,
		Grace:    cfg.Tickets.SweepGrace,
	})
}

type ticketParams struct {
	fx.In

	Config      *config.Config
	Store       database.Store
	Discord     *bot.Discord
	Transcripts *transcript.Renderer
	Ratings     *rating.Service
	Deleter     *bot.Deleter
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

func newTicketService(p ticketParams) *ticket.Service {
	return ticket.NewService(ticket.Deps{
		Store:           p.Store,
		Channels:        p.Discord,
		Guilds:          p.Discord,
		Transcripts:     p.Transcripts,
		Direct:          p.Discord,
		Ratings:         p.Ratings,
		Deleter:         p.Deleter,
		Metrics:         p.Metrics,
		Logger:          p.Logger,
		DeleteDelay:     p.Config.Tickets.DeleteDelay,
		TranscriptLimit: p.Config.Tickets.TranscriptLimit,
	})
}

func newScanner(store database.Store, discord *bot.Discord, tickets *ticket.Service, logger *zap.Logger) *scanner.Scanner {
	return scanner.New(store, discord, tickets, logger)
}

func newHandler(cfg *config.Config, tickets *ticket.Service, ratings *rating.Service, scan *scanner.Scanner, logger *zap.Logger) *handlers.Handler {
	return handlers.NewHandler(tickets, ratings, scan, cfg.Tickets, logger)
}

func newHealthServer(cfg *config.Config, logger *zap.Logger) *observability.HealthServer {
	return observability.NewHealthServer(cfg.Observability.HealthAddr, logger)
}

// StartObservability runs the metrics and health listeners that are configured.
func StartObservability(lc fx.Lifecycle, cfg *config.Config, metrics *observability.Metrics, health *observability.HealthServer, logger *zap.Logger) {
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := observability.NewMetricsServer(addr, metrics, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				srv.Start()
				return nil
			},
			OnStop: srv.Stop,
		})
	}
	if cfg.Observability.HealthAddr != "" {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return health.Start()
			},
			OnStop: func(ctx context.Context) error {
				health.Stop()
				return nil
			},
		})
	}
}

// StartBot connects to the gateway once storage and the sweep are up.
func StartBot(lc fx.Lifecycle, b *bot.Bot, h *handlers.Handler, deleter *bot.Deleter, health *observability.HealthServer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := deleter.Start(); err != nil {
				return err
			}
			b.OnConnectionChange(health.SetServing)
			return b.Start(func(b *bot.Bot) { handlers.Register(b, h) })
		},
		OnStop: func(ctx context.Context) error {
			health.SetServing(false)
			deleter.Stop()
			return b.Stop()
		},
	})
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			newBaseLogger,
			newBot,
			newDiscord,
			newLogger,
			newStore,
			observability.NewMetrics,
			newHealthServer,
			newTranscriptRenderer,
			newRatingService,
			newDeleter,
			newTicketService,
			newScanner,
			newHandler,
		),
		fx.WithLogger(func(base baseLogger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: base.Logger}
		}),
		fx.Invoke(
			StartObservability,
			StartBot,
		),
	)

	app.Run()
}
