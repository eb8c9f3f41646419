package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWatchBoard_ReplaysMessages(t *testing.T) {
	ctx := context.Background()
	board, err := newWatchBoard(ctx, watchOptions{
		messages:      []string{"hello", "弹幕"},
		interval:      time.Hour,
		durationScale: defaultWatchScale,
		logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("newWatchBoard() error = %v", err)
	}
	defer board.stop()

	if added := board.feed.Cycle(ctx); added != 2 {
		t.Fatalf("Cycle() = %d, want 2", added)
	}

	stats := board.engine.Stats()
	if stats.Lanes != defaultRows-1 {
		t.Errorf("Lanes = %d, want one per row above the status line", stats.Lanes)
	}
	if stats.Admitted != 2 {
		t.Errorf("Admitted = %d, want 2", stats.Admitted)
	}
	if board.stage.Len() != 2 {
		t.Errorf("stage hosts %d items, want 2", board.stage.Len())
	}
}

func TestNewWatchBoard_RejectsBlankMessage(t *testing.T) {
	_, err := newWatchBoard(context.Background(), watchOptions{
		messages: []string{"  "},
		logger:   testLogger(),
	})
	if err == nil {
		t.Fatal("newWatchBoard() expected error for a blank message, got nil")
	}
}

func TestRunWatch_NothingToWatch(t *testing.T) {
	_, err := executeCmd(t, "watch")
	if err == nil {
		t.Fatal("watch command expected error without url or messages, got nil")
	}
	if !strings.Contains(err.Error(), "nothing to watch") {
		t.Errorf("error = %v", err)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	defer func() { _ = rootCmd.PersistentFlags().Set("log-level", "info") }()

	_, err := executeCmd(t, "serve", "--log-level", "loud")
	if err == nil {
		t.Fatal("serve expected error for an invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("error = %v", err)
	}
}
