// @title			Deskd API
// @version		1.0
// @description	Task lifecycle and scope resolution service.
// @BasePath		/api/v1

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/opsdesk/deskd/internal/calendar"
	"github.com/opsdesk/deskd/internal/config"
	"github.com/opsdesk/deskd/internal/database"
	"github.com/opsdesk/deskd/internal/handler"
	"github.com/opsdesk/deskd/internal/logger"
	"github.com/opsdesk/deskd/internal/repository"
)

func main() {
	app := &cli.App{
		Name:  "deskd",
		Usage: "Task lifecycle and scope resolution service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "policy",
				Usage:   "Path to the policy YAML file (business hours, escalation thresholds, calendar)",
				EnvVars: []string{"DESKD_POLICY"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:   "refresh-priorities",
				Usage:  "Recompute deadline-driven priorities for all open tasks",
				Action: runRefreshPriorities,
			},
			{
				Name:   "sync-calendar",
				Usage:  "Drain the pending calendar outbox once",
				Action: runSyncCalendar,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*database.DB, config.Policy, error) {
	ctx := c.Context

	policy, err := config.LoadPolicy(c.String("policy"))
	if err != nil {
		return nil, config.Policy{}, fmt.Errorf("failed to load policy: %w", err)
	}

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return nil, config.Policy{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		db.Close()
		return nil, config.Policy{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, policy, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	db, policy, err := setup(c)
	if err != nil {
		return err
	}
	defer db.Close()

	h, err := handler.New(db.Pool(), policy)
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var scheduler *cron.Cron
	if policy.Calendar.BaseURL != "" {
		dispatcher := newDispatcher(db, policy)
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(policy.Calendar.DispatchSpec, func() {
			sent, err := dispatcher.Drain(context.Background())
			if err != nil {
				slog.Error("calendar dispatch failed", "error", err)
				return
			}
			if sent > 0 {
				slog.Info("calendar events dispatched", "count", sent)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule calendar dispatch: %w", err)
		}
		scheduler.Start()
		slog.Info("calendar dispatcher scheduled", "spec", policy.Calendar.DispatchSpec)
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runRefreshPriorities(c *cli.Context) error {
	ctx := c.Context

	db, policy, err := setup(c)
	if err != nil {
		return err
	}
	defer db.Close()

	h, err := handler.New(db.Pool(), policy)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	updated, err := h.TaskService().RefreshPriorities(ctx)
	if err != nil {
		return fmt.Errorf("priority refresh failed: %w", err)
	}

	slog.Info("priorities refreshed", "updated", updated)
	return nil
}

func runSyncCalendar(c *cli.Context) error {
	ctx := c.Context

	db, policy, err := setup(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if policy.Calendar.BaseURL == "" {
		return fmt.Errorf("calendar sync is disabled: no base_url in policy")
	}

	sent, err := newDispatcher(db, policy).Drain(ctx)
	if err != nil {
		return fmt.Errorf("calendar dispatch failed: %w", err)
	}

	slog.Info("calendar outbox drained", "dispatched", sent)
	return nil
}

func newDispatcher(db *database.DB, policy config.Policy) *calendar.Dispatcher {
	return calendar.NewDispatcher(
		repository.NewOutboxRepository(db.Pool()),
		repository.NewTaskRepository(db.Pool()),
		calendar.NewHTTPAdapter(policy.Calendar.BaseURL),
		policy.Calendar.MaxAttempts,
	)
}
