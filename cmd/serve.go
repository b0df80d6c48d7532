package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"StandupPulse/analysis"
	"StandupPulse/api"
	"StandupPulse/config"
	"StandupPulse/db"
	"StandupPulse/internal/slack"
	"StandupPulse/logger"
	"StandupPulse/scheduler"
	"StandupPulse/standup"
	"StandupPulse/utils"

	"github.com/inconshreveable/log15/v3"
	"github.com/spf13/cobra"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 15 * time.Second
	ledgerTTL       = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Slack endpoint and the scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	config.LoadEnv(logger.New("info", "logfmt"))
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, cleanup, err := openStore(cfg, log.New("component", "store"))
	if err != nil {
		return err
	}
	defer cleanup()

	tracker, err := standup.NewTracker(cfg.ProcessedEventCapacity, cfg.ReactionMap)
	if err != nil {
		return fmt.Errorf("serve: failed to create tracker: %w", err)
	}

	client, err := slack.New(cfg.SlackBotToken, log.New("component", "slack"))
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("serve: slack auth failed: %w", err)
	}

	engine := standup.NewEngine(standup.Settings{
		ChannelID:         cfg.ChannelID,
		EscalationChannel: cfg.EscalationChannel,
		EscalationEmoji:   cfg.EscalationEmoji,
		MonitorEmoji:      cfg.MonitorEmoji,
		ResponseDeadline:  cfg.ResponseDeadline,
		StandupUsers:      cfg.StandupUsers,
		Location:          cfg.Location,
	}, client, store, tracker, log.New("component", "engine"))

	if cfg.GeminiAPIKey != "" {
		analyzer, err := analysis.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log.New("component", "analysis"))
		if err != nil {
			log.Warn("Gemini analysis disabled", "err", err)
		} else {
			engine.WithAnalyzer(analyzer)
		}
	}

	opts := api.Options{
		SigningSecret: cfg.SlackSigningSecret,
		BotUserID:     client.BotUserID(),
	}
	if cfg.RedisURL != "" {
		ledger, err := utils.NewLedger(ctx, cfg.RedisURL, ledgerTTL)
		if err != nil {
			log.Warn("Redis delivery ledger unavailable, deduplicating in memory only", "err", err)
		} else {
			defer ledger.Close()
			opts.Ledger = ledger
		}
	}
	handler := api.NewHandler(engine, opts, log.New("component", "api"))

	sched, err := scheduler.New(engine, scheduler.Options{
		StandupSchedule:     cfg.StandupSchedule,
		HealthCheckSchedule: cfg.HealthCheckSchedule,
		HealthCheckEnabled:  cfg.HealthCheckEnabled(),
		ReminderInterval:    cfg.ReminderInterval,
		ResponseDeadline:    cfg.ResponseDeadline,
		AutoEscalateAfter:   cfg.AutoEscalateAfter,
		Retention:           cfg.StandupRetention,
		Location:            cfg.Location,
	}, log.New("component", "scheduler"))
	if err != nil {
		return err
	}

	ln, err := listen(ctx, cfg, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           SetupRouter(handler, log.New("component", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown incomplete", "err", err)
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler jobs still running at shutdown", "err", err)
		}
		if err := handler.Shutdown(shutdownCtx); err != nil {
			log.Warn("Background event work cancelled", "err", err)
		}
		return nil
	})
	return g.Wait()
}

// listen serves through an ngrok tunnel when a token is configured, so Slack
// can reach a laptop during development.
func listen(ctx context.Context, cfg *config.Config, log log15.Logger) (net.Listener, error) {
	if cfg.NgrokAuthtoken == "" {
		ln, err := net.Listen("tcp", ":"+cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		log.Info("Server running", "addr", ln.Addr().String())
		return ln, nil
	}

	tun, err := ngrok.Listen(ctx, ngrokconfig.HTTPEndpoint(), ngrok.WithAuthtoken(cfg.NgrokAuthtoken))
	if err != nil {
		return nil, fmt.Errorf("listen: ngrok tunnel: %w", err)
	}
	log.Info("Server running behind ngrok", "url", tun.URL(), "events", tun.URL()+"/slack/events")
	return tun, nil
}

// openStore picks the durable backends that are configured and always wraps
// them with the in-memory fallback.
func openStore(cfg *config.Config, log log15.Logger) (*db.Resilient, func(), error) {
	fallback, err := db.NewMemory(cfg.FallbackCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("openStore: %w", err)
	}

	var (
		durable db.Tee
		closers []func() error
	)
	if cfg.Coda.Enabled() {
		durable = append(durable, newCoda(cfg, log))
	}
	if cfg.DatabaseURL != "" {
		pg := db.Connect(cfg.DatabaseURL, log)
		durable = append(durable, pg)
		closers = append(closers, pg.Close)
	}

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("Failed to close store", "err", err)
			}
		}
	}

	switch len(durable) {
	case 0:
		log.Warn("No durable store configured, records are kept in memory only")
		return db.NewResilient(nil, fallback, log), cleanup, nil
	case 1:
		return db.NewResilient(durable[0], fallback, log), cleanup, nil
	default:
		return db.NewResilient(durable, fallback, log), cleanup, nil
	}
}

func newCoda(cfg *config.Config, log log15.Logger) *db.Coda {
	return db.NewCoda(db.CodaOptions{
		APIToken: cfg.Coda.APIToken,
		DocID:    cfg.Coda.DocID,
		Tables: map[db.Kind]string{
			db.KindStandup: cfg.Coda.StandupTableID,
			db.KindHealth:  cfg.Coda.HealthTableID,
			db.KindBlocker: cfg.Coda.BlockerTableID,
		},
	}, log)
}
