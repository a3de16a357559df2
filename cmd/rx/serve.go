package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ellery/rxcare/internal/api"
	"github.com/ellery/rxcare/internal/config"
	"github.com/ellery/rxcare/internal/db"
	"github.com/ellery/rxcare/internal/gateway"
	"github.com/ellery/rxcare/internal/notify"
	"github.com/ellery/rxcare/internal/overlay"
	"github.com/ellery/rxcare/internal/registry"
	"github.com/ellery/rxcare/internal/reminders"
	"github.com/ellery/rxcare/internal/scheduler"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rxcare service",
		Long:  "Runs the HTTP API and the reminder scheduler until interrupted. Reminders fire against the local wall clock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: api.port from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.API.Port
	}

	gormDB, err := db.Connect(cfg.Storage)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	client := gateway.NewClient(cfg.Gateway)

	cache, err := overlay.New(overlay.Opts{Translator: client})
	if err != nil {
		return err
	}

	deps := api.Deps{
		Registry:   registry.New(gormDB),
		Reminders:  reminders.NewStore(gormDB),
		Overlay:    cache,
		Gateway:    client,
		Language:   cfg.Language,
		Permission: scheduler.ParsePermission(cfg.Scheduler.Permission),
	}

	// The calendar only comes up when a token file exists; without it
	// reminder creation reports the auth step instead of failing cold.
	if cal, err := gateway.NewCalendar(ctx, cfg.Calendar); err == nil {
		deps.Calendar = cal
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "calendar disabled: %v\n", err)
	}

	sinks := notify.FromConfig(cfg.Notify)
	sched, err := scheduler.New(scheduler.Opts{
		Source:     deps.Reminders,
		Dispatch:   sinks.Notify,
		Permission: deps.Permission,
		Interval:   cfg.Scheduler.Interval,
	})
	if err != nil {
		return err
	}
	go sched.Run(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "rxcare serving on :%d (reminder check every %s)\n", port, sched.Interval())
	return api.Start(ctx, api.StartOpts{
		Deps: deps,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}
