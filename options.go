package danmaku

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	port            int
	width           float64
	height          float64
	laneHeight      float64
	pollInterval    time.Duration
	resumeDelay     time.Duration
	durationScale   float64
	feedInterval    time.Duration
	maxConcurrency  int
	sources         []Source
	storagePath     string
	logger          *slog.Logger
	recordCallbacks []func(Record)
}

// Option is a function that configures a [Board] during construction.
//
// Options return an error if validation fails.
type Option func(*boardConfig) error

// WithTitle sets the overlay page title. Defaults to "Danmaku".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithPort sets the HTTP port for the overlay and API.
// Defaults to 3000 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithDisplaySize sets the initial size of the display in pixels. The
// overlay page reports its real size when it loads, which resizes the
// board. Defaults to 1280x720.
//
// Returns an error if either dimension is negative.
func WithDisplaySize(width, height float64) Option {
	return func(cfg *boardConfig) error {
		if width < 0 || height < 0 {
			return fmt.Errorf("display size must not be negative, got %vx%v", width, height)
		}
		cfg.width, cfg.height = width, height
		return nil
	}
}

// WithLaneHeight sets the height of one lane in pixels. Defaults to 40.
//
// Returns an error if the height is zero or negative.
func WithLaneHeight(h float64) Option {
	return func(cfg *boardConfig) error {
		if h <= 0 {
			return errors.New("lane height must be positive")
		}
		cfg.laneHeight = h
		return nil
	}
}

// WithPollInterval sets the delay between scheduling ticks while messages
// are pending. Defaults to 200ms.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithResumeDelay sets how long the board waits after the display becomes
// visible before resuming. Defaults to 200ms.
//
// Returns an error if the duration is zero or negative.
func WithResumeDelay(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("resume delay must be positive")
		}
		cfg.resumeDelay = d
		return nil
	}
}

// WithDurationScale multiplies every scroll duration. Values above 1 slow
// the board down. Defaults to 1.
//
// Returns an error if the scale is zero or negative.
func WithDurationScale(scale float64) Option {
	return func(cfg *boardConfig) error {
		if scale <= 0 {
			return errors.New("duration scale must be positive")
		}
		cfg.durationScale = scale
		return nil
	}
}

// WithFeedInterval sets how often stored and remote messages are replayed.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithFeedInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("feed interval must be positive")
		}
		cfg.feedInterval = d
		return nil
	}
}

// WithMaxConcurrency sets the maximum number of remote sources fetched at
// once during a feed cycle. Defaults to 4.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *boardConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithSource adds a remote [Source] replayed every feed cycle.
// Can be called multiple times.
func WithSource(s Source) Option {
	return func(cfg *boardConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds multiple [Source] values.
// Equivalent to calling [WithSource] for each.
func WithSources(sources ...Source) Option {
	return func(cfg *boardConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithStorage keeps submitted messages in a SQLite database at path,
// created if missing. Without it messages are kept in memory and lost on
// restart.
//
// Returns an error if the path is empty.
func WithStorage(path string) Option {
	return func(cfg *boardConfig) error {
		if path == "" {
			return errors.New("storage path cannot be empty")
		}
		cfg.storagePath = path
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the board.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRecordCallback registers a function called with every record handed
// to the scheduler, whether submitted, forwarded from storage or picked by
// a feed cycle.
//
// Callbacks run synchronously in registration order and must not block.
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	board, err := danmaku.New(
//	    danmaku.WithRecordCallback(func(r danmaku.Record) {
//	        log.Printf("queued %q", r.Text)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithRecordCallback(cb func(Record)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.recordCallbacks = append(cfg.recordCallbacks, cb)
		return nil
	}
}
