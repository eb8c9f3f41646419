// Package lanes tracks which horizontal lanes of the display are occupied
// and answers whether a new item can enter a lane without catching up with
// the item already scrolling through it.
//
// Only the tail of a lane (its most recently admitted item) is consulted:
// items enter a lane in non-overlapping temporal order, so anything ahead
// of the tail is further along and cannot be reached first.
package lanes

import (
	"time"

	"github.com/jpalmerr/danmaku/internal/bullet"
)

// Table is a fixed-size ordered set of lanes.
//
// Table is not safe for concurrent use; the scheduler serializes access.
type Table struct {
	lanes        [][]*bullet.Item
	displayWidth float64
	maxAdmit     int
}

// New returns a table of totalLanes empty lanes for a display of the
// given width.
func New(totalLanes int, displayWidth float64) *Table {
	t := &Table{displayWidth: displayWidth}
	t.Reset(totalLanes)
	return t
}

// Count returns the number of lanes for a display height.
func Count(displayHeight, laneHeight float64) int {
	if laneHeight <= 0 || displayHeight <= 0 {
		return 0
	}
	return int(displayHeight / laneHeight)
}

// Reset discards every occupant and rebuilds the table with totalLanes
// empty lanes. It also recomputes the per-tick admission budget: a third
// of the lanes, and at least one.
func (t *Table) Reset(totalLanes int) {
	if totalLanes < 0 {
		totalLanes = 0
	}
	t.lanes = make([][]*bullet.Item, totalLanes)
	t.maxAdmit = max(1, totalLanes/3)
}

// SetDisplayWidth updates the width used by the catch-up check.
func (t *Table) SetDisplayWidth(w float64) {
	t.displayWidth = w
}

// Len returns the number of lanes.
func (t *Table) Len() int {
	return len(t.lanes)
}

// MaxAdmitPerTick returns how many items one scheduling tick may admit:
// floor(lanes/3), raised to 1 so that displays with one or two lanes
// still make progress. A table with no lanes admits nothing regardless,
// since no lane run can be found.
func (t *Table) MaxAdmitPerTick() int {
	return t.maxAdmit
}

// Available reports whether candidate can enter lane at now without
// overlapping the lane's tail item.
//
// The tail must already have travelled past its own width. If the
// candidate is faster, the time it needs to close the current gap must
// also exceed the time the tail has left on screen.
func (t *Table) Available(lane int, candidate *bullet.Item, now time.Time) bool {
	occupants := t.lanes[lane]
	if len(occupants) == 0 {
		return true
	}
	tail := occupants[len(occupants)-1]
	d := tail.Travelled(now)

	if d <= tail.Width {
		return false
	}
	if candidate.Speed <= tail.Speed {
		return true
	}
	catchUp := (d - tail.Width) / (candidate.Speed - tail.Speed)
	onScreen := (t.displayWidth + tail.Width - d) / tail.Speed
	return catchUp > onScreen
}

// FindRun scans lanes in index order for the first contiguous run of
// candidate.RequiredLanes available lanes. The run restarts after every
// unavailable lane.
func (t *Table) FindRun(candidate *bullet.Item, now time.Time) ([]int, bool) {
	var run []int
	for i := range t.lanes {
		if !t.Available(i, candidate, now) {
			run = run[:0]
			continue
		}
		run = append(run, i)
		if len(run) >= candidate.RequiredLanes {
			return run, true
		}
	}
	return nil, false
}

// Admit appends item to each of the given lanes and records them on the
// item. The lanes must all be available for item; admitting the same item
// twice corrupts the table.
func (t *Table) Admit(item *bullet.Item, lanes []int) {
	for _, i := range lanes {
		t.lanes[i] = append(t.lanes[i], item)
	}
	item.Lanes = append([]int(nil), lanes...)
}

// Release removes item from every lane it was admitted to, matching by id.
// Releasing an item that is no longer present does nothing.
func (t *Table) Release(item *bullet.Item) {
	for _, i := range item.Lanes {
		if i < 0 || i >= len(t.lanes) {
			continue
		}
		occupants := t.lanes[i]
		for j, occ := range occupants {
			if occ.ID == item.ID {
				t.lanes[i] = append(occupants[:j], occupants[j+1:]...)
				break
			}
		}
	}
}

// Find returns the occupant of lane with the given id, or nil.
func (t *Table) Find(lane int, id int64) *bullet.Item {
	if lane < 0 || lane >= len(t.lanes) {
		return nil
	}
	for _, occ := range t.lanes[lane] {
		if occ.ID == id {
			return occ
		}
	}
	return nil
}

// Occupied returns the indices of lanes holding at least one item.
func (t *Table) Occupied() []int {
	var out []int
	for i, occupants := range t.lanes {
		if len(occupants) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// Each calls fn once for every item in the table, in order of the first
// lane it occupies.
func (t *Table) Each(fn func(*bullet.Item)) {
	seen := make(map[int64]struct{})
	for _, occupants := range t.lanes {
		for _, occ := range occupants {
			if _, ok := seen[occ.ID]; ok {
				continue
			}
			seen[occ.ID] = struct{}{}
			fn(occ)
		}
	}
}
