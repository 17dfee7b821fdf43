package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/deukmosi-create/task-earning-platform/config"
	"github.com/deukmosi-create/task-earning-platform/database"
	"github.com/deukmosi-create/task-earning-platform/jobs"
	"github.com/deukmosi-create/task-earning-platform/middleware"
	"github.com/deukmosi-create/task-earning-platform/notify"
	"github.com/deukmosi-create/task-earning-platform/routes"
	"github.com/deukmosi-create/task-earning-platform/services"
	"github.com/deukmosi-create/task-earning-platform/utils"
)

var rootCmd = &cobra.Command{
	Use:           "taskearn",
	Short:         "Task marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema changes and seed the default plans",
	RunE:  runMigrate,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every wallet balance against its transactions",
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	db    *gorm.DB
	redis *redis.Client
}

func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := utils.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}
	db, err := database.Connect(cfg.Database, cfg.IsDevelopment(), log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, continuing without it", zap.Error(err))
			a.redis.Close()
			a.redis = nil
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) services(notifier notify.Notifier) (*services.Services, error) {
	minWithdrawal, err := decimal.NewFromString(a.cfg.Engine.MinWithdrawal)
	if err != nil {
		return nil, errors.Wrapf(err, "MIN_WITHDRAWAL %q", a.cfg.Engine.MinWithdrawal)
	}
	return services.New(a.db, notifier, a.log, services.Options{
		TxRetries:      a.cfg.Engine.TxRetries,
		FeedPageSize:   a.cfg.Engine.FeedPageSize,
		SimulatedSlots: a.cfg.Engine.SimulatedSlots,
		MinWithdrawal:  minWithdrawal,
	}), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	if err := database.Migrate(a.db); err != nil {
		return err
	}
	a.log.Info("migration completed")
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	svc, err := a.services(nil)
	if err != nil {
		return err
	}
	n, err := jobs.New(svc.Ledger, svc.Catalog, a.log).Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.Errorf("%d wallets drifted from their ledger", n)
	}
	a.log.Info("all wallets reconcile")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.IsDevelopment() {
		a.log.Info("development mode, running migrations")
		if err := database.Migrate(a.db); err != nil {
			return err
		}
	}

	store := notify.NewStore(a.db)
	fanout := notify.Fanout{store}
	if a.redis != nil {
		fanout = append(fanout, notify.NewRedisQueue(a.redis, a.cfg.Redis.NotifyQueue))
	}
	if a.cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(a.cfg.Telegram.Token, a.cfg.Telegram.AdminChatID)
		if err != nil {
			a.log.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			fanout = append(fanout, tg)
		}
	}

	svc, err := a.services(fanout)
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Config:        a.cfg,
		DB:            a.db,
		Services:      svc,
		Notifications: store,
		Tokens:        utils.NewTokens(a.cfg.JWT, a.redis),
		Guard:         middleware.NewLoginGuard(a.redis),
		Log:           a.log,
	}
	if a.cfg.Storage.Enabled() {
		files, err := utils.NewObjectStorage(cmd.Context(), a.cfg.Storage)
		if err != nil {
			return err
		}
		deps.Files = files
	}

	scheduler := jobs.New(svc.Ledger, svc.Catalog, a.log)
	if err := scheduler.Register(a.cfg.Jobs); err != nil {
		return err
	}
	scheduler.Start()

	srv := routes.NewServer(deps)
	defer srv.Close()

	server := &http.Server{
		Addr:         ":" + a.cfg.App.Port,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("port", a.cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return errors.Wrap(err, "server")
	}
	a.log.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	a.log.Info("server exited")
	return nil
}
