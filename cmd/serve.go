package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/alphaocr/internal/server"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

var (
	servePort string
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OCR and translate HTTP service",
	Long: `Start the HTTP service used by the browser extension.

POST /ocr-and-translate accepts a screenshot as a data URL plus an optional
cursor position and returns dictionary entries for the recognized text.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides server.address)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if serveHost != "" || servePort != "" {
		host, port, err := net.SplitHostPort(cfg.Server.Address)
		if err != nil {
			return fmt.Errorf("invalid server.address %q: %w", cfg.Server.Address, err)
		}
		if serveHost != "" {
			host = serveHost
		}
		if servePort != "" {
			port = servePort
		}
		cfg.Server.Address = net.JoinHostPort(host, port)
	}

	p, rec, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			slog.Warn("Unable to close recognition backend", "err", err)
		}
	}()

	var debug *screenshot.DebugSink
	if cfg.Debug.ImageDir != "" {
		if err := os.MkdirAll(cfg.Debug.ImageDir, 0755); err != nil {
			return fmt.Errorf("failed to create debug image directory: %w", err)
		}
		debug = &screenshot.DebugSink{Dir: cfg.Debug.ImageDir}
		slog.Info("Saving request images", "dir", cfg.Debug.ImageDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, server.NewHandler(p, cfg.Server.MaxBodyBytes, debug))
	return srv.ListenAndServe(ctx)
}
