package scheduler

import (
	"github.com/jpalmerr/danmaku/internal/bullet"
	"github.com/jpalmerr/danmaku/internal/lanes"
)

// Pause stops the tick loop and freezes every hosted item at its current
// position. It also cancels a deferred resume. Pausing while paused only
// cancels timers.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelResume()
	e.cancelTick()

	if e.paused || e.stopped {
		return
	}
	e.paused = true

	now := e.clock.Now()
	e.eachHosted(func(item *bullet.Item) {
		item.Freeze(now)
		e.surface.Freeze(item.ID, item.RolledDistance)
	})
	e.logger.Info("paused", "active", len(e.hosted), "pending", len(e.queue))
}

// Resume restarts every frozen item from where it stopped at its original
// speed and restarts the tick loop. It does nothing unless paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resume()
}

func (e *Engine) resume() {
	if !e.paused || e.stopped {
		return
	}

	now := e.clock.Now()
	e.eachHosted(func(item *bullet.Item) {
		item.Resume(now)
		e.surface.Play(e.motionFor(item))
	})
	e.paused = false
	e.logger.Info("resumed", "active", len(e.hosted), "pending", len(e.queue))

	if e.tickTimer == nil {
		e.render()
	}
}

// SetVisible reports a visibility change of the display. Hiding pauses
// immediately. Showing resumes after the configured resume delay; hiding
// again before then cancels the pending resume.
func (e *Engine) SetVisible(visible bool) {
	if !visible {
		e.Pause()
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.cancelResume()
	gen := e.resumeGen
	e.resumeTimer = e.clock.AfterFunc(e.cfg.ResumeDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if gen != e.resumeGen {
			return
		}
		e.resumeTimer = nil
		e.resume()
	})
}

// Resize re-reads the surface dimensions, removes every active item and
// rebuilds the lanes for the new height. Pending items are kept, with
// their travel distance recomputed for the new width.
func (e *Engine) Resize() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.width, e.height = e.surface.Size()
	e.clearScreen()
	e.logger.Info("resized",
		"width", e.width,
		"height", e.height,
		"lanes", e.table.Len(),
	)
}

// ClearScreen removes every active item and resets the lanes. Pending
// items are kept.
func (e *Engine) ClearScreen() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearScreen()
}

func (e *Engine) clearScreen() {
	for _, id := range e.hostedIDs() {
		if item := e.table.Find(e.hosted[id], id); item != nil {
			e.table.Release(item)
			item.Retire()
		}
		e.surface.Remove(id)
	}
	e.hosted = make(map[int64]int)

	for _, item := range e.queue {
		item.Remeasure(e.width)
	}

	e.table.SetDisplayWidth(e.width)
	e.table.Reset(lanes.Count(e.height, e.cfg.LaneHeight))
}
