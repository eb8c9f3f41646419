package stage

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jpalmerr/danmaku/internal/clock"
	"github.com/jpalmerr/danmaku/internal/motion"
	"github.com/jpalmerr/danmaku/internal/pubsub"
	"github.com/jpalmerr/danmaku/internal/scheduler"
)

// minFinishDelay keeps completion timers strictly in the future so they
// never fire inside the scheduler call that armed them.
const minFinishDelay = time.Millisecond

// Stage is a virtual display surface implementing [scheduler.Surface].
//
// Stage is safe for concurrent use.
type Stage struct {
	clock  clock.Clock
	logger *slog.Logger
	events *pubsub.Hub[Event]

	mu       sync.Mutex
	width    float64
	height   float64
	nodes    map[int64]*node
	onFinish func(id int64)
}

type node struct {
	motion scheduler.Motion
	start  time.Time
	frozen bool
	offset float64

	// gen invalidates completion timers armed by an earlier Play.
	gen   uint64
	timer *clock.Timer
}

// Option configures a [Stage].
type Option func(*Stage)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(s *Stage) {
		s.clock = c
	}
}

// WithLogger sets the stage's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) {
		s.logger = logger
	}
}

// WithBuffer sets the event buffer of each subscriber.
func WithBuffer(n int) Option {
	return func(s *Stage) {
		s.events = pubsub.New[Event](n)
	}
}

// New creates an empty stage of the given size.
func New(width, height float64, opts ...Option) *Stage {
	s := &Stage{
		clock:  clock.Real(),
		logger: slog.Default(),
		width:  width,
		height: height,
		nodes:  make(map[int64]*node),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = pubsub.New[Event](pubsub.DefaultBuffer)
	}
	return s
}

// OnFinish registers the function told about completed motions, normally
// [scheduler.Engine.Finished]. It is always called without the stage's
// lock held.
func (s *Stage) OnFinish(fn func(id int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

// Size returns the display dimensions.
func (s *Stage) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// SetSize changes the display dimensions. The scheduler picks them up on
// its next Resize.
func (s *Stage) SetSize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Play hosts the item if it is new and starts its motion.
func (s *Stage) Play(m scheduler.Motion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[m.ID]
	if !ok {
		n = &node{}
		s.nodes[m.ID] = n
	}
	n.stop()

	now := s.clock.Now()
	n.motion = m
	n.start = now
	n.frozen = false
	n.offset = m.From

	gen := n.gen
	id := m.ID
	n.timer = s.clock.AfterFunc(max(m.Duration, minFinishDelay), func() {
		s.finish(id, gen)
	})

	s.events.Publish(Event{
		Type:       EventPlay,
		ID:         m.ID,
		Text:       m.Text,
		FontSize:   m.FontSize,
		FontColor:  m.FontColor,
		Lanes:      m.Lanes,
		Top:        m.Top,
		Width:      m.Width,
		From:       m.From,
		To:         m.To,
		DurationMs: m.Duration.Milliseconds(),
		At:         now,
	})
}

// Freeze stops the item at offset and cancels its completion.
func (s *Stage) Freeze(id int64, offset float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.stop()
	n.frozen = true
	n.offset = offset

	s.events.Publish(Event{Type: EventFreeze, ID: id, Offset: offset, At: s.clock.Now()})
}

// Remove takes the item off the display. Unknown ids are ignored.
func (s *Stage) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return
	}
	n.stop()
	delete(s.nodes, id)

	s.events.Publish(Event{Type: EventRemove, ID: id, At: s.clock.Now()})
}

func (s *Stage) finish(id int64, gen uint64) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok || n.gen != gen || n.frozen {
		s.mu.Unlock()
		return
	}
	n.timer = nil
	fn := s.onFinish
	s.mu.Unlock()

	if fn == nil {
		s.logger.Warn("motion finished with no listener", "id", id)
		return
	}
	fn(id)
}

// Snapshot returns every hosted item with its current offset, ordered by
// id.
func (s *Stage) Snapshot() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.view(now))
	}
	slices.SortFunc(out, func(a, b Node) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of hosted items.
func (s *Stage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// Now returns the stage clock's current time.
func (s *Stage) Now() time.Time {
	return s.clock.Now()
}

// Subscribe returns a channel of display events. Caller must call
// [Stage.Unsubscribe] when done.
func (s *Stage) Subscribe() <-chan Event {
	return s.events.Subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Stage) Unsubscribe(ch <-chan Event) {
	s.events.Unsubscribe(ch)
}

func (n *node) stop() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
}

func (n *node) view(now time.Time) Node {
	m := n.motion
	v := Node{
		ID:        m.ID,
		Text:      m.Text,
		FontSize:  m.FontSize,
		FontColor: m.FontColor,
		Lanes:     append([]int(nil), m.Lanes...),
		Top:       m.Top,
		Width:     m.Width,
		To:        m.To,
		Frozen:    n.frozen,
	}
	if n.frozen {
		v.Offset = n.offset
		return v
	}

	elapsed := now.Sub(n.start)
	if m.Duration <= 0 || elapsed >= m.Duration {
		v.Offset = m.To
		return v
	}
	speed := (m.To - m.From) / m.Duration.Seconds()
	v.Offset = motion.Clamp(m.From+motion.Position(now, n.start, speed), m.To)
	v.Remaining = m.Duration - elapsed
	return v
}
