package stage

import "time"

// EventType identifies the kind of change an [Event] describes.
type EventType string

const (
	// EventPlay starts (or restarts) an item's motion.
	EventPlay EventType = "play"

	// EventFreeze stops an item in place.
	EventFreeze EventType = "freeze"

	// EventRemove takes an item off the display.
	EventRemove EventType = "remove"
)

// Event is one change to the display, serialized as-is to SSE and
// WebSocket clients.
//
// Offsets are distances travelled leftwards from the item's entry point,
// just beyond the right edge of the display.
type Event struct {
	Type EventType `json:"type"`
	ID   int64     `json:"id"`

	Text      string  `json:"text,omitempty"`
	FontSize  int     `json:"font_size,omitempty"`
	FontColor string  `json:"font_color,omitempty"`
	Lanes     []int   `json:"lanes,omitempty"`
	Top       float64 `json:"top"`
	Width     float64 `json:"width"`

	From       float64 `json:"from"`
	To         float64 `json:"to"`
	DurationMs int64   `json:"duration_ms"`

	// Offset is set on freeze events.
	Offset float64 `json:"offset"`

	At time.Time `json:"at"`
}

// Node is the state of one hosted item at a point in time.
type Node struct {
	ID        int64
	Text      string
	FontSize  int
	FontColor string
	Lanes     []int
	Top       float64
	Width     float64

	// Offset is the distance travelled so far; To is the total.
	Offset float64
	To     float64

	// Remaining is the time left in the current motion. Zero when frozen.
	Remaining time.Duration
	Frozen    bool
}

// Events converts the node into the events that reproduce it on a fresh
// renderer: a play from its current offset, followed by a freeze if it is
// not moving.
func (n Node) Events(now time.Time) []Event {
	play := Event{
		Type:       EventPlay,
		ID:         n.ID,
		Text:       n.Text,
		FontSize:   n.FontSize,
		FontColor:  n.FontColor,
		Lanes:      n.Lanes,
		Top:        n.Top,
		Width:      n.Width,
		From:       n.Offset,
		To:         n.To,
		DurationMs: n.Remaining.Milliseconds(),
		At:         now,
	}
	if !n.Frozen {
		return []Event{play}
	}
	play.To = n.Offset
	play.DurationMs = 0
	return []Event{play, {Type: EventFreeze, ID: n.ID, Offset: n.Offset, At: now}}
}
