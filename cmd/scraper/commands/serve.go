package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/krspack/scrap-booking-for-Brno/internal/api"
	"github.com/krspack/scrap-booking-for-Brno/internal/app"
	"github.com/krspack/scrap-booking-for-Brno/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Scrapes on a schedule and serves the latest results over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, metrics, store, err := setup()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		snapshots := &api.Snapshots{}
		runner := app.NewRunner(cfg, metrics, store, snapshots, logger)

		var history api.PriceHistory
		if store != nil {
			history = store
		}

		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter(logger)
		api.SetupRoutes(router, api.NewHandler(snapshots, history, cfg.Server.City, logger), metrics)
		server := &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: router,
		}

		sched := scheduler.NewScheduler(func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		}, cfg.Server.ScrapeInterval, logger)
		sched.Start(cmd.Context())
		defer sched.Stop()

		serveErr := make(chan error, 1)
		go func() {
			logger.WithField("addr", cfg.Server.ListenAddr).Info("Starting server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return err
			}
		case <-cmd.Context().Done():
			logger.Info("Shutting down")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	},
}
