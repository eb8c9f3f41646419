package scheduler

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/jpalmerr/danmaku/internal/bullet"
	"github.com/jpalmerr/danmaku/internal/clock"
	"github.com/jpalmerr/danmaku/internal/lanes"
	"github.com/jpalmerr/danmaku/internal/motion"
)

// Engine admits pending items into lanes and controls their lifecycle.
//
// All methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	measurer Measurer
	surface  Surface
	clock    clock.Clock
	random   func() float64
	logger   *slog.Logger

	mu     sync.Mutex
	width  float64
	height float64
	table  *lanes.Table
	queue  []*bullet.Item

	// hosted maps the id of every item on the surface to its first lane,
	// the same identity the surface knows the item by.
	hosted map[int64]int
	lastID int64

	paused  bool
	stopped bool

	tickTimer   *clock.Timer
	tickGen     uint64
	resumeTimer *clock.Timer
	resumeGen   uint64

	admitted uint64
	dropped  uint64
}

// Option configures an [Engine] at construction.
type Option func(*Engine)

// WithClock replaces the real clock, typically with [clock.Fake] in tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRandom replaces the source of the uniform [0, 1) samples used to
// randomize durations.
func WithRandom(fn func() float64) Option {
	return func(e *Engine) {
		e.random = fn
	}
}

// WithLogger sets the engine's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an [Engine] sized to the surface's current dimensions.
func New(cfg Config, measurer Measurer, surface Surface, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg.withDefaults(),
		measurer: measurer,
		surface:  surface,
		clock:    clock.Real(),
		random:   rand.Float64,
		logger:   slog.Default(),
		hosted:   make(map[int64]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.width, e.height = surface.Size()
	e.table = lanes.New(lanes.Count(e.height, e.cfg.LaneHeight), e.width)
	return e
}

// Add enqueues a record and starts the tick loop if it is idle.
func (e *Engine) Add(rec Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	item := bullet.New(e.nextID(), rec.Text, rec.FontSize, rec.FontColor, rec.CreatedAt, e.clock.Now())
	e.queue = append(e.queue, item)

	if e.tickTimer == nil {
		e.render()
	}
}

// nextID returns a fresh id, wrapping the counter before it passes
// [bullet.MaxID].
func (e *Engine) nextID() int64 {
	e.lastID++
	id := e.lastID
	if e.lastID >= bullet.MaxID {
		e.lastID = 0
	}
	return id
}

// render runs one tick and decides whether another one is needed.
func (e *Engine) render() {
	if e.paused || e.stopped {
		return
	}
	e.tick()

	if len(e.queue) > 0 {
		e.scheduleTick()
	} else {
		e.tickTimer = nil
	}
}

// tick admits up to the table's budget of items from the queue.
func (e *Engine) tick() {
	budget := e.table.MaxAdmitPerTick()
	now := e.clock.Now()

	i := 0
	for budget > 0 && i < len(e.queue) {
		item := e.queue[i]

		if !item.Measured {
			w, h := e.measurer.Measure(item.Text, item.FontSize)
			item.Measure(w, h, e.cfg.LaneHeight, e.width, motion.Factor(e.random())*e.cfg.DurationScale)
		}

		if item.RequiredLanes > e.table.Len() {
			e.queue = slices.Delete(e.queue, i, i+1)
			item.Retire()
			e.dropped++
			e.logger.Debug("item dropped",
				"id", item.ID,
				"required_lanes", item.RequiredLanes,
				"lanes", e.table.Len(),
			)
			continue
		}

		run, ok := e.table.FindRun(item, now)
		if !ok {
			i++
			continue
		}

		e.queue = slices.Delete(e.queue, i, i+1)
		e.admit(item, run, now)
		budget--
	}
}

func (e *Engine) admit(item *bullet.Item, run []int, now time.Time) {
	e.table.Admit(item, run)
	item.Admit(run, now)
	e.hosted[item.ID] = run[0]
	e.admitted++

	e.logger.Debug("item admitted",
		"id", item.ID,
		"lanes", item.Lanes,
		"duration", item.Duration.String(),
	)
	e.surface.Play(e.motionFor(item))
}

func (e *Engine) motionFor(item *bullet.Item) Motion {
	return Motion{
		ID:        item.ID,
		Text:      item.Text,
		FontSize:  item.FontSize,
		FontColor: item.FontColor,
		Lanes:     append([]int(nil), item.Lanes...),
		Top:       float64(item.Lanes[0]) * e.cfg.LaneHeight,
		Width:     item.Width,
		From:      item.RolledDistance,
		To:        item.TotalDistance,
		Duration:  item.Duration,
	}
}

func (e *Engine) scheduleTick() {
	e.cancelTick()
	gen := e.tickGen
	e.tickTimer = e.clock.AfterFunc(e.cfg.PollInterval, func() {
		e.fireTick(gen)
	})
}

func (e *Engine) fireTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// a superseded timer may fire after it was stopped
	if gen != e.tickGen || e.tickTimer == nil {
		return
	}
	e.tickTimer = nil
	e.render()
}

func (e *Engine) cancelTick() {
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	e.tickGen++
}

func (e *Engine) cancelResume() {
	if e.resumeTimer != nil {
		e.resumeTimer.Stop()
		e.resumeTimer = nil
	}
	e.resumeGen++
}

// hostedIDs returns the ids of every item on the surface in ascending order.
func (e *Engine) hostedIDs() []int64 {
	ids := make([]int64, 0, len(e.hosted))
	for id := range e.hosted {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// eachHosted visits every item on the surface in id order, recovering its
// live record from the lane table.
func (e *Engine) eachHosted(fn func(*bullet.Item)) {
	for _, id := range e.hostedIDs() {
		if item := e.table.Find(e.hosted[id], id); item != nil {
			fn(item)
		}
	}
}

// Finished is called by the surface when an item's motion has completed.
// The item's lanes are released and it is removed from the surface.
// Notifications for unknown items, or arriving while paused, are ignored.
func (e *Engine) Finished(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lane, ok := e.hosted[id]
	if !ok || e.paused {
		return
	}

	delete(e.hosted, id)
	if item := e.table.Find(lane, id); item != nil {
		e.table.Release(item)
		item.Retire()
	}
	e.surface.Remove(id)
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		Pending:  len(e.queue),
		Active:   len(e.hosted),
		Lanes:    e.table.Len(),
		Occupied: len(e.table.Occupied()),
		Admitted: e.admitted,
		Dropped:  e.dropped,
		Paused:   e.paused,
	}
}

// Stop cancels every timer, removes all active items and discards the
// queue. Calls after Stop are no-ops.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true
	e.cancelTick()
	e.cancelResume()
	e.clearScreen()
	for _, item := range e.queue {
		item.Retire()
	}
	e.queue = nil
}
