package feeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/store"
)

const (
	// DefaultInterval is the time between feed cycles.
	DefaultInterval = 5 * time.Second

	// DefaultTimeout is the per-request timeout for remote sources.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxConcurrency bounds concurrent remote fetches.
	DefaultMaxConcurrency = 4
)

// Font sizes of cycle picks are drawn uniformly from [MinFontSize,
// MinFontSize+FontSizeRange).
const (
	MinFontSize   = 20
	FontSizeRange = 20
)

// Entry is one message gathered from a source.
type Entry struct {
	Content   string
	CreatedAt time.Time
}

// Decoder turns a remote response body into entries.
//
// This is the feeder-internal version that returns entries rather than
// danmaku.Record values, avoiding circular dependencies.
type Decoder func(body []byte) ([]Entry, error)

// SourceInfo contains the configuration needed to fetch one remote source.
type SourceInfo struct {
	// Name identifies the source in logs and status.
	Name string

	// URL is fetched with GET every cycle.
	URL string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout is the per-request timeout. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Decoder parses the body. If nil, [DecodeListings] is used.
	Decoder Decoder
}

// SourceStatus is the outcome of the latest fetch of a source.
type SourceStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Entries   int       `json:"entries"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     *string   `json:"error"`
}

// Sink receives the records the feeder produces, normally the scheduler.
type Sink interface {
	Add(rec scheduler.Record)
}

// Config configures a [Feeder].
type Config struct {
	// Sources are fetched every cycle in addition to the local store.
	Sources []SourceInfo

	// Store is the local message store. May be nil.
	Store store.Store

	// Sink receives every record.
	Sink Sink

	// Interval between cycles. Zero uses DefaultInterval.
	Interval time.Duration

	// MaxConcurrency bounds concurrent fetches. Zero uses DefaultMaxConcurrency.
	MaxConcurrency int

	// Random returns uniform samples in [0, 1). Defaults to math/rand.
	Random func() float64

	Logger *slog.Logger
}

// Feeder periodically re-injects gathered messages into a [Sink] and
// forwards newly stored messages immediately.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Feeder struct {
	sources        []SourceInfo
	store          store.Store
	sink           Sink
	interval       time.Duration
	maxConcurrency int
	random         func() float64
	client         *Client
	logger         *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	statusMu sync.RWMutex
	status   map[string]SourceStatus
}

// New creates a [Feeder]. It must be started with [Feeder.Start] and
// stopped with [Feeder.Stop].
func New(cfg Config) *Feeder {
	f := &Feeder{
		sources:        cfg.Sources,
		store:          cfg.Store,
		sink:           cfg.Sink,
		interval:       cfg.Interval,
		maxConcurrency: cfg.MaxConcurrency,
		random:         cfg.Random,
		client:         NewClient(),
		logger:         cfg.Logger,
		status:         make(map[string]SourceStatus, len(cfg.Sources)),
	}
	if f.interval <= 0 {
		f.interval = DefaultInterval
	}
	if f.maxConcurrency <= 0 {
		f.maxConcurrency = DefaultMaxConcurrency
	}
	if f.random == nil {
		f.random = rand.Float64
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Start begins feeding in background goroutines and returns immediately.
//
// The store subscription is in place before Start returns. A first cycle
// runs immediately, then one every interval, until [Feeder.Stop] is called
// or ctx is cancelled. Start is idempotent; if Stop was called before
// Start, Start is a no-op.
func (f *Feeder) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started || f.stopped {
		f.mu.Unlock()
		return
	}
	f.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	if f.store != nil {
		sub := f.store.Subscribe()
		f.wg.Add(1)
		go f.forward(runCtx, sub)
	}

	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()

		f.Cycle(runCtx)

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				f.Cycle(runCtx)
			}
		}
	}()
}

// Stop halts feeding and waits for all goroutines to complete.
// Stop is idempotent; calling it before Start is a safe no-op.
func (f *Feeder) Stop() {
	f.mu.Lock()
	if !f.stopped {
		f.stopped = true
		if f.cancel != nil {
			f.cancel()
		}
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.client.Close()
}

// forward adds every newly stored message with default presentation.
func (f *Feeder) forward(ctx context.Context, sub <-chan store.Message) {
	defer f.wg.Done()
	defer f.store.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			f.sink.Add(scheduler.Record{Text: msg.Content, CreatedAt: msg.CreatedAt})
		}
	}
}

// Cycle gathers every available message and adds as many random picks as
// were gathered. It returns the number of records added.
func (f *Feeder) Cycle(ctx context.Context) int {
	pool := f.gather(ctx)
	if len(pool) == 0 {
		return 0
	}

	for range pool {
		entry := pool[f.intn(len(pool))]
		f.sink.Add(scheduler.Record{
			Text:      entry.Content,
			FontSize:  MinFontSize + f.intn(FontSizeRange),
			CreatedAt: entry.CreatedAt,
		})
	}

	f.logger.Debug("feed cycle", "gathered", len(pool))
	return len(pool)
}

// intn returns a uniform int in [0, n).
func (f *Feeder) intn(n int) int {
	i := int(f.random() * float64(n))
	return min(max(i, 0), n-1)
}

// gather collects the local messages followed by every source's entries,
// in source order. Failing sources are logged and skipped.
func (f *Feeder) gather(ctx context.Context) []Entry {
	var pool []Entry

	if f.store != nil {
		msgs, err := f.store.List(ctx)
		if err != nil {
			f.logger.Warn("listing stored messages", "error", err)
		}
		for _, msg := range msgs {
			pool = append(pool, Entry{Content: msg.Content, CreatedAt: msg.CreatedAt})
		}
	}

	for _, entries := range f.fetchSources(ctx) {
		pool = append(pool, entries...)
	}
	return pool
}

// fetchSources fetches every source concurrently, respecting
// maxConcurrency. The result is indexed like f.sources.
func (f *Feeder) fetchSources(ctx context.Context) [][]Entry {
	out := make([][]Entry, len(f.sources))
	if len(f.sources) == 0 {
		return out
	}

	jobs := make(chan int, len(f.sources))

	var wg sync.WaitGroup
	for i := 0; i < min(f.maxConcurrency, len(f.sources)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				out[idx] = f.fetchSource(ctx, f.sources[idx])
			}
		}()
	}

	for i := range f.sources {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return out
}

// fetchSource fetches and decodes one source, recording its status.
func (f *Feeder) fetchSource(ctx context.Context, src SourceInfo) []Entry {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resp := f.client.Fetch(ctx, src.URL, src.Headers, timeout)

	status := SourceStatus{
		Name:      src.Name,
		URL:       src.URL,
		LatencyMs: resp.Latency.Milliseconds(),
		CheckedAt: time.Now(),
	}

	var entries []Entry
	err := resp.Error
	if err == nil {
		decoder := src.Decoder
		if decoder == nil {
			decoder = DecodeListings
		}
		entries, err = f.safeDecode(decoder, resp.Body)
	}

	if err != nil {
		msg := err.Error()
		status.Error = &msg
		f.logger.Warn("feed source failed", "source", src.Name, "url", src.URL, "error", err)
		entries = nil
	}
	status.Entries = len(entries)

	f.statusMu.Lock()
	f.status[src.Name] = status
	f.statusMu.Unlock()

	return entries
}

// safeDecode calls the decoder with panic recovery.
// If the decoder panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (f *Feeder) safeDecode(decoder Decoder, body []byte) (entries []Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			f.logger.Error("decoder panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			entries = nil
			err = fmt.Errorf("decoder panic (correlation_id: %s)", correlationID)
		}
	}()
	return decoder(body)
}

// Sources returns the latest status of every source that has been fetched,
// in configuration order.
func (f *Feeder) Sources() []SourceStatus {
	f.statusMu.RLock()
	defer f.statusMu.RUnlock()

	out := make([]SourceStatus, 0, len(f.status))
	for _, src := range f.sources {
		if st, ok := f.status[src.Name]; ok {
			out = append(out, st)
		}
	}
	return out
}

// DecodeListings decodes the message list format, a JSON array of
// {"data": ..., "date": ...} objects. Entries with blank data are skipped.
func DecodeListings(body []byte) ([]Entry, error) {
	var listings []store.Listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decoding message list: %w", err)
	}

	entries := make([]Entry, 0, len(listings))
	for _, l := range listings {
		if l.Data == "" {
			continue
		}
		entries = append(entries, Entry{Content: l.Data, CreatedAt: l.Date})
	}
	return entries, nil
}
