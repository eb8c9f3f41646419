package danmaku

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/danmaku/dashboard"
	"github.com/jpalmerr/danmaku/internal/feeder"
	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/server"
	"github.com/jpalmerr/danmaku/internal/stage"
	"github.com/jpalmerr/danmaku/internal/store"
)

const (
	defaultPort          = 3000
	defaultDisplayWidth  = 1280
	defaultDisplayHeight = 720
)

// Board is the main orchestrator: it schedules messages into lanes and
// serves the overlay that displays them.
//
// A Board is created using [New] with functional options and started with
// [Board.Start]. The typical lifecycle is:
//
//	board, err := danmaku.New(danmaku.WithPort(3000))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	board.Start(ctx) // blocks until context cancelled
type Board struct {
	title           string
	port            int
	width           float64
	height          float64
	engineConfig    scheduler.Config
	feedInterval    time.Duration
	maxConcurrency  int
	sources         []Source
	storagePath     string
	logger          *slog.Logger
	recordCallbacks []func(Record)
}

// New creates a [Board] with the given options.
//
// Every option has a default:
//   - Port: 3000
//   - Display: 1280x720 pixels, lanes 40 pixels high
//   - Scheduling tick and resume delay: 200ms
//   - Feed interval: 5 seconds
//   - Storage: in memory
//
// Returns an error if any option is invalid or two sources share a name.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		port:   defaultPort,
		width:  defaultDisplayWidth,
		height: defaultDisplayHeight,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// source status is tracked by name
	seen := make(map[string]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if seen[src.name] {
			return nil, fmt.Errorf("duplicate source name: %q", src.name)
		}
		seen[src.name] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:  cfg.title,
		port:   cfg.port,
		width:  cfg.width,
		height: cfg.height,
		engineConfig: scheduler.Config{
			LaneHeight:    cfg.laneHeight,
			PollInterval:  cfg.pollInterval,
			ResumeDelay:   cfg.resumeDelay,
			DurationScale: cfg.durationScale,
		},
		feedInterval:    cfg.feedInterval,
		maxConcurrency:  cfg.maxConcurrency,
		sources:         cfg.sources,
		storagePath:     cfg.storagePath,
		logger:          logger,
		recordCallbacks: cfg.recordCallbacks,
	}, nil
}

// Start opens the message store, starts the scheduler and the feed, and
// serves the overlay.
//
// Start is a blocking call that runs until the provided context is
// cancelled. The caller controls the lifecycle via the context; for signal
// handling, use [signal.NotifyContext].
//
// Returns nil on graceful shutdown. Returns an error if the store cannot
// be opened or the HTTP server fails to start.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("danmaku starting", "source_count", len(b.sources))
	b.logger.Info("overlay available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	st, err := b.openStore(ctx)
	if err != nil {
		return err
	}

	display := stage.New(b.width, b.height, stage.WithLogger(b.logger))
	engine := scheduler.New(b.engineConfig, stage.TextMeasurer{}, display,
		scheduler.WithLogger(b.logger),
	)
	display.OnFinish(engine.Finished)

	feed := feeder.New(feeder.Config{
		Sources:        b.toFeederSources(),
		Store:          st,
		Sink:           &callbackSink{engine: engine, callbacks: b.recordCallbacks, logger: b.logger},
		Interval:       b.feedInterval,
		MaxConcurrency: b.maxConcurrency,
		Logger:         b.logger,
	})

	// the feed stops before the store closes so forwarding ends first
	cleanup := func() {
		feed.Stop()
		engine.Stop()
		if err := st.Close(); err != nil {
			b.logger.Error("closing message store", "error", err)
		}
	}

	httpServer := server.NewServer(st, engine, display, feed, server.Config{
		Port:   b.port,
		Title:  b.title,
		Assets: dashboard.Assets,
		Logger: b.logger,
	})
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	feed.Start(ctx)

	<-ctx.Done()
	cleanup()
	b.logger.Info("danmaku stopped")
	return nil
}

func (b *Board) openStore(ctx context.Context) (store.Store, error) {
	if b.storagePath == "" {
		return store.NewMemoryStore(), nil
	}
	st, err := store.OpenSQLite(ctx, b.storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	b.logger.Info("message store opened", "path", b.storagePath)
	return st, nil
}

// toFeederSources converts the sources to the feeder's format.
func (b *Board) toFeederSources() []feeder.SourceInfo {
	result := make([]feeder.SourceInfo, len(b.sources))

	for i, src := range b.sources {
		var decoder feeder.Decoder
		if src.decoder != nil {
			decoder = toFeederDecoder(src.decoder)
		}

		result[i] = feeder.SourceInfo{
			Name:    src.name,
			URL:     src.url,
			Headers: copyMap(src.headers),
			Timeout: src.timeout,
			Decoder: decoder,
		}
	}

	return result
}

// toFeederDecoder wraps a public decoder to return feed entries.
func toFeederDecoder(d Decoder) feeder.Decoder {
	return func(body []byte) ([]feeder.Entry, error) {
		records, err := d(body)
		if err != nil {
			return nil, err
		}
		entries := make([]feeder.Entry, 0, len(records))
		for _, r := range records {
			if r.Text == "" {
				continue
			}
			entries = append(entries, feeder.Entry{Content: r.Text, CreatedAt: r.CreatedAt})
		}
		return entries, nil
	}
}

// Sources returns a copy of the configured sources.
func (b *Board) Sources() []Source {
	cp := make([]Source, len(b.sources))
	copy(cp, b.sources)
	return cp
}

// Port returns the configured HTTP port.
func (b *Board) Port() int {
	return b.port
}

// recordAdder is the part of the scheduler that accepts records.
type recordAdder interface {
	Add(rec scheduler.Record)
}

// callbackSink hands every record to the scheduler after the registered
// callbacks have seen it.
type callbackSink struct {
	engine    recordAdder
	callbacks []func(Record)
	logger    *slog.Logger
}

func (s *callbackSink) Add(rec scheduler.Record) {
	if len(s.callbacks) > 0 {
		public := Record{
			Text:      rec.Text,
			FontSize:  rec.FontSize,
			FontColor: rec.FontColor,
			CreatedAt: rec.CreatedAt,
		}
		for _, cb := range s.callbacks {
			invokeCallbackSafe(cb, public, s.logger)
		}
	}
	s.engine.Add(rec)
}

// invokeCallbackSafe calls a record callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Record), rec Record, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("record callback panicked",
				"panic", r,
				"text", rec.Text,
			)
		}
	}()
	cb(rec)
}
