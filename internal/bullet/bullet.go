// Package bullet defines the record for one message on its way across the
// display, together with the transitions between its three states.
//
// An Item starts Pending when it is ingested, becomes Active once it is
// measured and admitted to a block of lanes, and ends Retired when it has
// scrolled off, been cleared, or been dropped as unplayable. Timing fields
// are only meaningful while the item is Active.
package bullet

import (
	"fmt"
	"math"
	"time"

	"github.com/jpalmerr/danmaku/internal/motion"
)

// State is the lifecycle state of an [Item].
type State int

const (
	// StatePending items wait in the queue with no lanes and no timing.
	StatePending State = iota

	// StateActive items occupy lanes and are moving (or frozen while paused).
	StateActive

	// StateRetired items have been removed from every structure.
	StateRetired
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateRetired:
		return "retired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MaxID is the largest item id. Ids are consumed by browser JavaScript,
// so the counter wraps at its largest safe integer.
const MaxID int64 = 1<<53 - 1

// Default presentation attributes merged under every record at ingestion.
const (
	DefaultFontSize  = 24
	DefaultFontColor = "#ffffff"
)

// Item is one message, pending or in flight.
type Item struct {
	ID        int64
	Text      string
	FontSize  int
	FontColor string

	CreatedAt  time.Time
	EnqueuedAt time.Time

	State State

	// Set once by Measure.
	Measured      bool
	RequiredLanes int
	Width         float64
	Factor        float64
	TotalDistance float64

	// Set by Admit, updated by Freeze and Resume.
	Duration       time.Duration
	Speed          float64
	StartTime      time.Time
	RolledDistance float64
	Frozen         bool
	Lanes          []int
}

// New builds a pending item from caller-supplied attributes. Zero-valued
// attributes fall back to the defaults.
func New(id int64, text string, fontSize int, fontColor string, createdAt, now time.Time) *Item {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	if fontColor == "" {
		fontColor = DefaultFontColor
	}
	if createdAt.IsZero() {
		createdAt = now
	}
	return &Item{
		ID:         id,
		Text:       text,
		FontSize:   fontSize,
		FontColor:  fontColor,
		CreatedAt:  createdAt,
		EnqueuedAt: now,
		State:      StatePending,
	}
}

// Measure fixes the item's footprint from its rendered size and derives
// its travel distance, duration and speed. factor is the random duration
// factor from [motion.Factor]. Measure only has an effect the first time
// it is called.
func (it *Item) Measure(width, height, laneHeight, displayWidth, factor float64) {
	if it.Measured {
		return
	}
	it.Measured = true
	it.RequiredLanes = int(math.Max(1, math.Ceil(height/laneHeight)))
	it.Width = width
	it.Factor = factor
	it.Remeasure(displayWidth)
}

// Remeasure recomputes the travel distance, duration and speed of a
// measured pending item for a new display width. The footprint and the
// duration factor are kept. Unmeasured items are left alone.
func (it *Item) Remeasure(displayWidth float64) {
	if !it.Measured {
		return
	}
	it.TotalDistance = motion.TotalDistance(it.Width, displayWidth)
	it.Duration = motion.Duration(it.TotalDistance, it.Factor)
	it.Speed = motion.Speed(it.TotalDistance, it.Duration)
}

// Admit moves a measured pending item into the active state on the given
// lanes, starting its motion at now.
func (it *Item) Admit(lanes []int, now time.Time) {
	it.State = StateActive
	it.Lanes = append([]int(nil), lanes...)
	it.StartTime = now
	it.RolledDistance = 0
	it.Frozen = false
}

// Travelled returns how far the item has moved at now, clamped to its
// total distance. While frozen it is exactly the rolled distance.
func (it *Item) Travelled(now time.Time) float64 {
	if it.Frozen {
		return it.RolledDistance
	}
	d := it.RolledDistance + motion.Position(now, it.StartTime, it.Speed)
	return motion.Clamp(d, it.TotalDistance)
}

// Freeze records the distance travelled at now and stops the item there.
// Freezing a frozen item does nothing.
func (it *Item) Freeze(now time.Time) {
	if it.Frozen {
		return
	}
	it.RolledDistance = it.Travelled(now)
	it.Frozen = true
}

// Resume restarts a frozen item at now. The speed is kept and the
// duration becomes the time needed to cover the remaining distance.
func (it *Item) Resume(now time.Time) {
	if !it.Frozen {
		return
	}
	it.Frozen = false
	it.StartTime = now
	it.Duration = motion.Remaining(it.TotalDistance, it.RolledDistance, it.Speed)
}

// Retire marks the item as gone. Its lanes are kept for reference so the
// caller can still release them.
func (it *Item) Retire() {
	it.State = StateRetired
}
