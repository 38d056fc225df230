package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/Superfang0726/Better-BlueStacks-Script/internal/adapters/http"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/cli"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/config"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control API used by the node editor",
	Long: `Starts the HTTP control API: run and stop scripts, resume waiting nodes,
manage stored scripts and settings, read logs, capture the screen and
scrape Prometheus metrics. Saving settings reconnects the messaging backends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, path, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			s.HTTPAddr, _ = cmd.Flags().GetString("addr")
		}

		logs := logging.NewBuffer(logging.DefaultBufferSize)
		app, err := cli.NewApp(context.Background(), s, cli.AppOptions{Logs: logs, Messaging: true})
		if err != nil {
			return err
		}
		defer app.Close()

		settings := config.NewManager(path, s)
		settings.OnChange(func(updated config.Settings) {
			app.Logger.Info("Settings saved, reconnecting messaging")
			app.ConnectMessaging(updated)
		})

		handler := apihttp.NewHandler(app.Supervisor,
			apihttp.WithStore(app.Stores.Scripts),
			apihttp.WithImages(app.Stores.Files),
			apihttp.WithDevice(app.Device),
			apihttp.WithSettings(settings),
			apihttp.WithLogBuffer(logs),
			apihttp.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
			apihttp.WithStreams(app.Streams),
			apihttp.WithLogger(app.Logger),
		)

		srv := &http.Server{
			Addr:              s.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting control API", "addr", srv.Addr, "scripts", s.ScriptsDir)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			app.Logger.Info("Shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				_ = srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides settings, default 127.0.0.1:5000)")
}
