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

	"github.com/dukerupert/daywich/internal/config"
	"github.com/dukerupert/daywich/internal/database"
	"github.com/dukerupert/daywich/internal/logging"
	"github.com/dukerupert/daywich/internal/notify"
	"github.com/dukerupert/daywich/internal/push"
	"github.com/dukerupert/daywich/internal/server"
)

func main() {
	configPath := flag.String("config", config.Path(), "path to the YAML config file")
	genKeys := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate keys: %v", err)
		}
		fmt.Printf("DAYWICH_VAPID_PUBLIC_KEY=%s\nDAYWICH_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Options{
		Push: push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber:      cfg.Push.Subscriber,
		},
		Notify: notify.Options{Interval: cfg.Notify.Interval},
		Repeat: cfg.RepeatOptions(),
	}, logger)
	if srv.PushService() == nil {
		logger.Info("web push disabled; set DAYWICH_VAPID_PUBLIC_KEY and DAYWICH_VAPID_PRIVATE_KEY to enable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Checker().Start(ctx); err != nil {
		logger.Error("failed to start notification checker", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go func() {
		logger.Info("daywich running", "addr", cfg.Listen, "db", cfg.DBPath, "config", *configPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	srv.Checker().Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
