package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/danmaku"
)

func main() {
	// start mock chat (see mock_server.go)
	go StartMockChatServer(":9999")
	time.Sleep(100 * time.Millisecond)

	comments, err := danmaku.NewSource("chat", "http://localhost:9999/comments",
		danmaku.WithDecoder(danmaku.JSONFieldDecoder("message.body")),
		danmaku.WithTimeout(2*time.Second),
	)
	if err != nil {
		slog.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	transcript, _ := danmaku.NewSource("transcript", "http://localhost:9999/chat.txt",
		danmaku.WithDecoder(danmaku.LinesDecoder),
	)

	board, err := danmaku.New(
		danmaku.WithTitle("Danmaku Demo"),
		danmaku.WithSources(comments, transcript),
		danmaku.WithFeedInterval(5*time.Second),
		danmaku.WithPort(3000),
		danmaku.WithRecordCallback(func(r danmaku.Record) {
			slog.Debug("queued", "text", r.Text, "font_size", r.FontSize)
		}),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Danmaku Demo                                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:3000 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Sources:                                            ║")
	fmt.Println("  ║   • mock chat comments (JSON, message.body)           ║")
	fmt.Println("  ║   • mock chat transcript (plain text lines)           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("danmaku error", "error", err)
		os.Exit(1)
	}
}
