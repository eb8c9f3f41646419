package scheduler

import "time"

const (
	// DefaultLaneHeight is the height of one lane in display units.
	DefaultLaneHeight = 40

	// DefaultPollInterval is the delay between scheduling ticks.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultResumeDelay is how long a resume waits after the display
	// becomes visible again.
	DefaultResumeDelay = 200 * time.Millisecond
)

// Config holds the engine's tunables. Zero values select the defaults.
type Config struct {
	LaneHeight   float64
	PollInterval time.Duration
	ResumeDelay  time.Duration

	// DurationScale multiplies the random duration factor of every item.
	// Displays measured in terminal cells use a larger scale than pixel
	// displays. Defaults to 1.
	DurationScale float64
}

func (c Config) withDefaults() Config {
	if c.LaneHeight <= 0 {
		c.LaneHeight = DefaultLaneHeight
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = DefaultResumeDelay
	}
	if c.DurationScale <= 0 {
		c.DurationScale = 1
	}
	return c
}

// Record is one message handed to [Engine.Add]. Zero-valued presentation
// fields fall back to the defaults.
type Record struct {
	Text      string
	FontSize  int
	FontColor string
	CreatedAt time.Time
}

// Measurer reports the rendered size of text at a font size. It is called
// synchronously, once per item, the first time a tick considers the item.
type Measurer interface {
	Measure(text string, fontSize int) (width, height float64)
}

// Surface hosts the visual items.
//
// A surface must never call back into the engine from inside one of these
// methods; completion is reported later through [Engine.Finished].
type Surface interface {
	// Size returns the current display width and height.
	Size() (width, height float64)

	// Play hosts the item if it is new and moves it from From to To
	// over Duration at constant speed.
	Play(m Motion)

	// Freeze stops the item at offset and cancels its completion.
	Freeze(id int64, offset float64)

	// Remove takes the item off the display.
	Remove(id int64)
}

// Motion describes one constant-speed segment of an item's travel.
// Offsets are distances travelled leftwards from the item's entry point
// just beyond the right edge of the display.
type Motion struct {
	ID        int64
	Text      string
	FontSize  int
	FontColor string

	Lanes []int
	Top   float64
	Width float64

	From     float64
	To       float64
	Duration time.Duration
}

// Stats is a point-in-time summary of the engine.
type Stats struct {
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Lanes    int    `json:"lanes"`
	Occupied int    `json:"occupied"`
	Admitted uint64 `json:"admitted"`
	Dropped  uint64 `json:"dropped"`
	Paused   bool   `json:"paused"`
}
