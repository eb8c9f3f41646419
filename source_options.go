package danmaku

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	headers map[string]string
	timeout time.Duration
	decoder Decoder
}

// SourceOption is a function that configures a [Source] during construction.
// Options return an error if validation fails.
type SourceOption func(*sourceConfig) error

// WithHeaders adds custom HTTP headers to every fetch of this source.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	src, err := danmaku.NewSource("upstream", url,
//	    danmaku.WithHeaders("Authorization", "Bearer token123"),
//	)
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the HTTP request timeout for this source. A source that
// does not answer in time is skipped for the cycle.
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithDecoder sets a custom [Decoder] for this source.
// If not specified, the source uses [DefaultDecoder].
//
// Example:
//
//	src, err := danmaku.NewSource("chat", url,
//	    danmaku.WithDecoder(danmaku.JSONFieldDecoder("message.body")),
//	)
func WithDecoder(d Decoder) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.decoder = d
		return nil
	}
}
