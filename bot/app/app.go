// Package app assembles the bot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tubebot/bot/dispatch"
	"github.com/m3rciful/tubebot/bot/extract"
	"github.com/m3rciful/tubebot/bot/gate"
	"github.com/m3rciful/tubebot/bot/history"
	"github.com/m3rciful/tubebot/bot/session"
	"github.com/m3rciful/tubebot/bot/topics"
	"github.com/m3rciful/tubebot/bot/transport"
	coreconfig "github.com/m3rciful/tubebot/core/config"
	"github.com/m3rciful/tubebot/core/logger"
	tg "github.com/m3rciful/tubebot/core/telegram"
	"github.com/m3rciful/tubebot/core/telegram/router"
	tgsender "github.com/m3rciful/tubebot/core/telegram/sender"
)

const (
	extractionHTTPTimeout = 15 * time.Second
	textNotAdmin          = "This command is for the bot admin."
	textSlowDown          = "⏳ Too many requests, please slow down."
)

// Options carries what New needs beyond the config. Zero values are built from the config.
type Options struct {
	Config *coreconfig.Config
	// DB enables the Postgres history recorder when set.
	DB  *sqlx.DB
	Bot *tele.Bot
	// Lookup overrides the Telegram membership lookup.
	Lookup gate.Lookup
	// Completer overrides the Gemini client.
	Completer  topics.Completer
	HTTPClient *http.Client
}

// App holds the assembled bot.
type App struct {
	cfg        *coreconfig.Config
	db         *sqlx.DB
	bot        *tele.Bot
	registry   *tg.Registry
	sessions   *session.Store
	sequencer  *session.Sequencer
	history    history.Recorder
	dispatcher *dispatch.Dispatcher
	handlers   *transport.Handlers
	stopSweep  context.CancelFunc
}

// New wires every component. It builds the bot, which contacts Telegram, unless one is given.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: nil config provided")
	}

	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = tg.BuildBot(cfg); err != nil {
			return nil, err
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = transport.NewMembershipLookup(bot)
	}
	g := gate.New(lookup, cfg.Channel.Username, ms(cfg.Channel.CheckTimeoutMS))

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: extractionHTTPTimeout}
	}
	extractor := extract.NewOrchestrator(
		extract.NewInnertubeSource(cfg.Extraction.Endpoint, httpClient),
		ms(cfg.Extraction.TimeoutMS),
	)

	completer := opts.Completer
	if completer == nil {
		completer = geminiOrUnconfigured(ctx, cfg.Topics)
	}
	ideas := topics.NewService(completer, cfg.Topics.MaxTokens, ms(cfg.Topics.TimeoutMS))

	var rec history.Recorder
	if opts.DB != nil {
		rec = history.NewPostgres(opts.DB)
	} else {
		rec = history.NewMemory(cfg.History.MemoryCapacity)
	}

	sessions := session.NewStore()
	disp, err := dispatch.New(dispatch.Options{
		Gate:      g,
		Sessions:  sessions,
		Extractor: extractor,
		Ideas:     ideas,
		History:   rec,
		JoinURL:   cfg.Channel.JoinURL(),
	})
	if err != nil {
		return nil, err
	}

	seq := session.NewSequencer()
	handlers, err := transport.NewHandlers(transport.Options{
		Dispatcher: disp,
		Sessions:   sessions,
		Sequencer:  seq,
		History:    rec,
	})
	if err != nil {
		return nil, err
	}
	reg := tg.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	logger.Info(ctx, "app", "app.wired",
		slog.String("outcome", "ok"),
		slog.String("channel", g.Channel()),
		slog.Bool("db_history", opts.DB != nil),
		slog.Bool("topics_enabled", cfg.Topics.APIKey != "" || opts.Completer != nil),
	)

	return &App{
		cfg:        cfg,
		db:         opts.DB,
		bot:        bot,
		registry:   reg,
		sessions:   sessions,
		sequencer:  seq,
		history:    rec,
		dispatcher: disp,
		handlers:   handlers,
	}, nil
}

func geminiOrUnconfigured(ctx context.Context, cfg coreconfig.TopicsConfig) topics.Completer {
	if cfg.APIKey == "" {
		logger.Info(ctx, "topics", "topics.disabled",
			slog.String("outcome", "skip"),
			slog.String("reason", "no api key"),
		)
		return topics.Unconfigured{}
	}
	c, err := topics.NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		logger.Warn(ctx, "topics", "topics.client_failed",
			slog.String("outcome", "fail"),
			slog.String("err", err.Error()),
		)
		return topics.Unconfigured{}
	}
	return c
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	mws := tg.DefaultMiddlewares(a.cfg, func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: textSlowDown})
		}
		return nil
	})

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error { return c.Send(textNotAdmin) },
		Serializer:    a.sequencer,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		Serializer: a.sequencer,
	}))
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{
		Serializer: a.sequencer,
	})...)

	return tg.RunOptions{
		Config:            a.cfg,
		Registry:          a.registry,
		Bot:               a.bot,
		DispatcherOptions: tgsender.Options{MaxRetries: 2},
		Middlewares:       mws,
		Routes:            routes,
		OnStart:           a.onStart,
		OnStop:            a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	ttl := time.Duration(a.cfg.Session.TTLMinutes) * time.Minute
	if ttl <= 0 {
		return nil
	}
	sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopSweep = cancel
	go sweepSessions(sweepCtx, a.sessions, ttl)
	return nil
}

// onStop waits for in-flight per-user work, then releases the database.
func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.stopSweep != nil {
		a.stopSweep()
	}
	a.sequencer.Wait()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.DB.Warn("db close failed",
				slog.String("event", "db.close"),
				slog.String("err", err.Error()),
			)
			return err
		}
	}
	return nil
}

// sweepSessions drops selections idle for longer than ttl until ctx is done.
func sweepSessions(ctx context.Context, store *session.Store, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Expire(now.Add(-ttl)); n > 0 {
				logger.Debug(ctx, "session", "session.expired", slog.Int("count", n))
			}
		}
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
