package danmaku

import "time"

// Record is one message handed to the board.
//
// Zero-valued presentation fields fall back to the overlay's defaults:
// a 24px font in white.
type Record struct {
	// Text is the message content. Multi-line text occupies as many lanes
	// as its rendered height requires.
	Text string

	// FontSize is the font size in pixels.
	FontSize int

	// FontColor is any CSS colour.
	FontColor string

	// CreatedAt is when the message was originally written.
	CreatedAt time.Time
}

// Decoder is a function type that turns the body of a remote source into
// records.
//
// Decoders should be pure: the same body always produces the same records.
// Only the text and creation time of a decoded record are kept; every feed
// cycle chooses its own font sizes.
//
// # Panic Safety
//
// Decoders are called within a panic recovery boundary. If a decoder
// panics, the source is skipped for that cycle and its status carries an
// error with a correlation ID. The full stack trace is logged server-side.
type Decoder func(body []byte) ([]Record, error)
