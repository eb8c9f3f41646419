// Package danmaku provides an embeddable bullet-comment ("danmaku") board:
// messages scroll across a display from right to left in lanes, never
// overlapping while in flight.
//
// The board is SDK-first. A [Board] is configured with functional options
// and serves an overlay page that animates the placements the scheduler
// decides, together with an HTTP API to submit and list messages.
//
// # Quick Start
//
//	board, _ := danmaku.New(danmaku.WithTitle("Live comments"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	board.Start(ctx) // blocks until context is cancelled
//
// Open http://localhost:3000 to see the overlay and post a message:
//
//	curl -d '{"content":"hello"}' http://localhost:3000/api/messages
//
// # Sources
//
// Besides local submissions, a board can replay remote message lists. Every
// feed cycle fetches each [Source] and picks messages at random from
// everything gathered:
//
//	src, err := danmaku.NewSource("upstream", "https://danmaku.example.com/messages",
//	    danmaku.WithTimeout(5 * time.Second),
//	)
//
//	board, err := danmaku.New(
//	    danmaku.WithSource(src),
//	    danmaku.WithFeedInterval(10 * time.Second),
//	    danmaku.WithStorage("danmaku.db"),
//	)
//
// # Decoders
//
// Decoders turn a source's response body into records:
//
//   - [DefaultDecoder]: the board's own GET /messages format
//   - [JSONFieldDecoder]: a JSON array, text at a dot-notation path
//   - [LinesDecoder]: one record per non-blank line
//   - [RegexDecoder]: one record per match of a capture group
//   - [FirstMatch]: tries decoders in order
//
// # Architecture
//
// The board consists of several internal packages (under internal/):
//
//   - internal/scheduler: lane admission, pause/resume and the tick loop
//   - internal/lanes, internal/motion, internal/bullet: the scheduler's model
//   - internal/stage: the virtual display the overlay mirrors
//   - internal/store: message storage in memory or SQLite
//   - internal/feeder: periodic replay of stored and remote messages
//   - internal/server: HTTP API, Server-Sent Events and WebSocket streams
//   - internal/tui: a terminal display used by the CLI's watch command
//   - dashboard: the embedded overlay page
//
// The internal packages are not part of the public API and may change
// without notice.
package danmaku
