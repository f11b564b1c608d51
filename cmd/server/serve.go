package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/database"
	"github.com/iliyamo/fitness-tracker/internal/router"
	"github.com/iliyamo/fitness-tracker/internal/service"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		logger := log.New("fitness-tracker")

		cfg, db, dialect, err := openStore(ctx, logger.Infof)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.SetLevel(router.ParseLevel(cfg.LogLevel))

		if cfg.SeedDefaults {
			if err := database.SeedDefaults(ctx, db); err != nil {
				return err
			}
		}
		if cfg.JWTSecret == "" {
			logger.Warn("JWT_SECRET is empty: login and every protected route will answer 500")
		}

		rdb := config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			logger.Warn("redis unavailable: rate limiting and response caching disabled")
		} else {
			defer rdb.Close()
		}
		events := service.NewEventPublisher(cfg.RabbitMQURL)
		defer events.Close()

		e := router.New(router.Deps{Cfg: cfg, DB: db, Dialect: dialect, Redis: rdb, Events: events})

		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s, driver=%s)", addr, cfg.Env, cfg.DBDriver)
		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatalf("server stopped: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
