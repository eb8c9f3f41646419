package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/danmaku/internal/feeder"
	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/stage"
	"github.com/jpalmerr/danmaku/internal/store"
	"github.com/jpalmerr/danmaku/internal/tui"
)

// defaultWatchScale slows items down in the terminal, where a display is
// about a tenth as wide in cells as a browser is in pixels.
const defaultWatchScale = 10

const (
	defaultColumns = 80
	defaultRows    = 24
)

// watchCmd runs a board in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch [message...]",
	Short: "Watch a board in the terminal",
	Long: `Run a board in the terminal, one lane per row.

Messages come from a remote board's message list (--url), from the
arguments, or both. They are replayed every feed interval like the overlay
page does.

Keys:
  p, space  pause or resume
  c         clear the screen
  q         quit

The board pauses while the terminal loses focus and resumes shortly after
it regains it.

Example:
  danmaku watch --url http://localhost:3000/messages
  danmaku watch "hello" "弹幕"`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("url", "", "message list to replay, in the GET /messages format")
	watchCmd.Flags().Duration("interval", feeder.DefaultInterval, "time between feed cycles")
	watchCmd.Flags().Float64("duration-scale", defaultWatchScale, "multiplier for scroll durations")
	watchCmd.Flags().String("title", "danmaku", "status line title")
	watchCmd.Flags().String("log-file", "", "write logs to this file instead of discarding them")
}

// watchBoard is a board wired to a terminal stage.
type watchBoard struct {
	store  *store.MemoryStore
	stage  *stage.Stage
	engine *scheduler.Engine
	feed   *feeder.Feeder
}

// watchOptions are the settings of a terminal board.
type watchOptions struct {
	url           string
	messages      []string
	interval      time.Duration
	durationScale float64
	logger        *slog.Logger
}

// newWatchBoard wires a memory store seeded with the messages, a cell
// stage, an engine with one-row lanes and a feeder replaying both.
func newWatchBoard(ctx context.Context, opts watchOptions) (*watchBoard, error) {
	st := store.NewMemoryStore()
	for _, m := range opts.messages {
		if _, err := st.Save(ctx, m); err != nil {
			return nil, fmt.Errorf("message %q: %w", m, err)
		}
	}

	// a standard terminal until the first window size message
	stg := stage.New(defaultColumns, defaultRows-1, stage.WithLogger(opts.logger))
	engine := scheduler.New(scheduler.Config{
		LaneHeight:    1,
		DurationScale: opts.durationScale,
	}, stage.CellMeasurer{}, stg, scheduler.WithLogger(opts.logger))
	stg.OnFinish(engine.Finished)

	var sources []feeder.SourceInfo
	if opts.url != "" {
		sources = append(sources, feeder.SourceInfo{Name: "remote", URL: opts.url})
	}

	feed := feeder.New(feeder.Config{
		Sources:  sources,
		Store:    st,
		Sink:     engine,
		Interval: opts.interval,
		Logger:   opts.logger,
	})

	return &watchBoard{store: st, stage: stg, engine: engine, feed: feed}, nil
}

func (b *watchBoard) stop() {
	b.feed.Stop()
	b.engine.Stop()
	_ = b.store.Close()
}

// watchLogger logs to the named file, or nowhere. The terminal itself is
// taken by the display.
func watchLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	path, _ := cmd.Flags().GetString("log-file")
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger, err := newLogger(cmd, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	if url == "" && len(args) == 0 {
		return errors.New("nothing to watch: pass --url or at least one message")
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	scale, _ := cmd.Flags().GetFloat64("duration-scale")
	title, _ := cmd.Flags().GetString("title")

	logger, closeLog, err := watchLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board, err := newWatchBoard(ctx, watchOptions{
		url:           url,
		messages:      args,
		interval:      interval,
		durationScale: scale,
		logger:        logger,
	})
	if err != nil {
		return err
	}
	defer board.stop()

	board.feed.Start(ctx)

	program := tea.NewProgram(tui.New(board.engine, board.stage, title),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal error: %w", err)
	}
	return nil
}
