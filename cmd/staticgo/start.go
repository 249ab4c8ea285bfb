package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/start"
)

func startCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the production build",
		Long: `Serve the build output directory.

Run 'staticgo build' first. The server exposes the rendered files,
Prometheus metrics on /metrics, and POST /revalidate when an API key
is configured under revalidate.apiKey.

Examples:
  staticgo start
  staticgo start --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from staticgo.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from staticgo.json)")

	return cmd
}

func runStart(port int, host string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}

	if _, err := os.Stat(cfg.OutputPath()); err != nil {
		errorMsg("Output directory %s does not exist", cfg.Build.Output)
		info("Run 'staticgo build' first")
		return err
	}

	printBanner()
	fmt.Println("  start")
	fmt.Println()
	info("Serving %s/ at %s", cfg.Build.Output, cfg.DevURL())
	fmt.Println()

	server, err := start.NewServer(cfg, slog.Default())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n\n  Shutting down...")
		cancel()
	}()

	return server.Start(ctx)
}
