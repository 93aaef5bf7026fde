package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/alert"
	"github.com/hst-Sunday/SoloLink/internal/auth"
	"github.com/hst-Sunday/SoloLink/internal/config"
	"github.com/hst-Sunday/SoloLink/internal/database"
	"github.com/hst-Sunday/SoloLink/internal/logger"
	"github.com/hst-Sunday/SoloLink/internal/mailer"
	"github.com/hst-Sunday/SoloLink/internal/maintenance"
	"github.com/hst-Sunday/SoloLink/internal/router"
	"github.com/hst-Sunday/SoloLink/internal/store"
	"github.com/hst-Sunday/SoloLink/internal/util"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for admin.password_hash and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := util.HashPassword(*hashPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if err := run(*configPath); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(configPath string) error {
	// load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lg, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(lg)

	if !cfg.Admin.Configured() {
		lg.Warn("admin identity not configured, logins will be rejected")
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// run migrations and seed default settings
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	st := store.NewGormStore(db)
	guard := auth.NewGuard(st, cfg.Admin)
	transport := mailer.NewSMTPTransport(st, cfg.Alert.SendTimeout)
	checker := alert.NewChecker(st, transport, cfg.Alert.SendTimeout, nil)
	scheduler := alert.NewScheduler(checker, st, cfg.Alert.DefaultIntervalMinutes, alert.WithLogger(lg))
	janitor := maintenance.NewJanitor(st, cfg.Maintenance.Interval, cfg.Maintenance.AttemptRetention, lg)

	r, err := router.SetupRouter(cfg, router.Deps{
		Store:     st,
		Guard:     guard,
		Scheduler: scheduler,
		Mailer:    transport,
		Log:       lg,
	})
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	janitor.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		lg.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			scheduler.Stop()
			janitor.Stop()
			return fmt.Errorf("run server: %w", err)
		}
	case <-ctx.Done():
		lg.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", "error", err)
	}

	// waits for an in-flight alert cycle
	scheduler.Stop()
	janitor.Stop()
	lg.Info("stopped")
	return nil
}
