package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┌┬┐┌─┐┌┬┐┬┌─┐╔═╗┌─┐
  ╚═╗ │ ├─┤ │ ││  ║ ╦│ │
  ╚═╝ ┴ ┴ ┴ ┴ ┴└─┘╚═╝└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "staticgo",
		Short: "The static site toolchain",
		Long: `StaticGo builds and serves static sites from a page-source tree.

Pages are plain HTML units organized by directory, with layout and
style cascades resolved at render time. Features include:

  • File-based routing with [param] dynamic segments
  • Hot reload development server
  • Epoch-invalidated render cache
  • Authenticated on-demand revalidation
  • Fingerprinted asset builds with S3 deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		initCmd(),
		devCmd(),
		buildCmd(),
		startCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the StaticGo ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
