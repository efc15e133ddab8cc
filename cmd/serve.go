package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-catalog/configs"
	"github.com/RyanBlaney/sonido-catalog/internal/app"
	"github.com/RyanBlaney/sonido-catalog/internal/server"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP API",
	Long: `Start the HTTP API server. Loads the scaler and classifier
artifacts, connects to the Qdrant collection and serves the catalog,
upload and playlist endpoints until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"listen address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	appCtx, err := app.NewContext(cfg)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	srv := server.New(appCtx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		appCtx.Logger.Info("shutting down", logging.Fields{
			"signal": sig.String(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
