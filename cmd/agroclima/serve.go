package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/agroclima/internal/api/http"
	"github.com/i474232898/agroclima/internal/config"
	"github.com/i474232898/agroclima/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the field watch scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	var fields []config.Field
	if a.cfg.FieldsFile != "" {
		var err error
		fields, err = config.LoadFields(a.cfg.FieldsFile)
		if err != nil {
			return err
		}
	}

	sched := scheduler.New(fields, a.cfg.WatchInterval, a.analyzer, nil)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := httpapi.NewApp(os.Stdout)
	httpapi.RegisterRoutes(srv, httpapi.Deps{
		Weather:  a.weather,
		Analyzer: a.analyzer,
		Crops:    a.crops,
		Places:   a.places,
	})

	go func() {
		log.Printf("INFO: listening on :%s", a.cfg.Port)
		if err := srv.Listen(":" + a.cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
