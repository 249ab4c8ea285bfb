package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BouyguesTelecom/static.js-sub000/internal/build"
	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/deploy"
)

func buildCmd() *cobra.Command {
	var (
		output   string
		clean    bool
		doDeploy bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site for production",
		Long: `Render every route into static files.

This command:
  • Scans the page tree and renders each route to HTML
  • Materializes configured prerender paths for dynamic routes
  • Copies public assets with content-hash fingerprints
  • Writes the asset manifest and route table artifacts

Examples:
  staticgo build
  staticgo build --output=dist --clean
  staticgo build --deploy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(output, clean, doDeploy)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from staticgo.json)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean output directory before build")
	cmd.Flags().BoolVar(&doDeploy, "deploy", false, "Upload the output to the configured S3 bucket")

	return cmd
}

func runBuild(output string, clean, doDeploy bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if output != "" {
		cfg.Build.Output = output
	}

	fmt.Println("  Building for production...")
	fmt.Println()

	builder := build.New(cfg, build.Options{
		Clean: clean,
		OnProgress: func(step string) {
			info(step)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	success("Build complete in %s", result.Duration.Round(time.Millisecond))
	info("%d page(s) rendered, %d asset(s) copied", result.Rendered, result.Assets)
	if result.Failed > 0 {
		warn("%d route(s) failed to render", result.Failed)
	}
	if result.Skipped > 0 {
		info("%d dynamic route(s) skipped (no prerender paths)", result.Skipped)
	}
	fmt.Println()
	info("Output: %s/", cfg.Build.Output)
	fmt.Println()

	if doDeploy {
		return runDeploy(ctx, cfg, result.Output)
	}
	return nil
}

func runDeploy(ctx context.Context, cfg *config.Config, dir string) error {
	info("Deploying to s3://%s/%s", cfg.Deploy.S3.Bucket, cfg.Deploy.S3.Prefix)

	uploader, err := deploy.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	uploaded, err := uploader.Upload(ctx, dir)
	if err != nil {
		return err
	}

	success("Uploaded %d object(s)", uploaded)
	return nil
}
