package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/Spok95/coffee-club/internal/api"
	"github.com/Spok95/coffee-club/internal/auth"
	"github.com/Spok95/coffee-club/internal/bot"
	"github.com/Spok95/coffee-club/internal/domain/redemption"
	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
	httpx "github.com/Spok95/coffee-club/internal/infra/http"
	"github.com/Spok95/coffee-club/internal/infra/payments"
	"github.com/Spok95/coffee-club/internal/infra/redis"
	"github.com/Spok95/coffee-club/internal/worker"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the staff console bot and the reset worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	a, err := openApp(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	authCfg, err := auth.LoadConfigFromEnv(nil)
	if err != nil {
		return err
	}
	gate, err := auth.NewGate(authCfg)
	if err != nil {
		return err
	}
	staff := auth.NewStaffCheck(a.staff)

	pay := payments.NewService(cfg.App.BaseURL)
	subs := subscriptions.NewService(a.subs, pay, log, nil)
	flow := redemption.NewFlow(a.subs, log, nil)

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.New(subs, flow, staff, gate, log)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, handler.Router(), map[string]http.Handler{
		"/payments/receipt": payments.NewHandler(log),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	if cfg.Telegram.Token != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		log.Info("telegram authorized", "username", tg.Self.UserName)
		b := bot.New(tg, log, flow, staff, time.Local)
		go func() {
			if err := b.Run(ctx, cfg.Telegram.TimeoutSeconds); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped", "err", err)
			}
		}()
	}

	if cfg.Reset.Enabled {
		var locker worker.Locker
		if cfg.Redis.Addr != "" {
			rdb, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()
			locker = redis.NewLocker(rdb)
		}
		go worker.NewReset(subs, locker, cfg.Reset.Interval, cfg.Reset.LockTTL, log).Start(ctx)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	log.Info("graceful shutdown complete")
	return nil
}
