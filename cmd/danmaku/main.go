// Package main is the entry point for the danmaku CLI.
//
// danmaku can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	danmaku serve -c config.yaml    # Start the overlay server
//	danmaku validate -c config.yaml # Validate configuration
//	danmaku watch --url URL         # Watch a board in the terminal
//	danmaku version                 # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "danmaku",
	Short: "A bullet-comment overlay server",
	Long: `danmaku scrolls messages across a display in lanes, the way comments
fly over a video, without letting them overlap.

It serves an overlay page that animates the placements, an HTTP API to
submit and list messages, and can replay remote message lists.

Quick start:
  1. Run: danmaku serve
  2. Open http://localhost:3000 in your browser
  3. Post: curl -d '{"content":"hello"}' http://localhost:3000/api/messages

Example config:
  port: 3000
  storage:
    driver: sqlite
    path: danmaku.db
  feed:
    sources:
      - name: upstream
        url: https://danmaku.example.com/messages`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use at the level named by the
// --log-level flag.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})), nil
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this danmaku binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "danmaku %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
