package feeder

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink collects every record it is given.
type recordingSink struct {
	mu      sync.Mutex
	records []scheduler.Record
	added   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{added: make(chan struct{}, 1000)}
}

func (s *recordingSink) Add(rec scheduler.Record) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	s.added <- struct{}{}
}

func (s *recordingSink) snapshot() []scheduler.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduler.Record(nil), s.records...)
}

// waitFor blocks until n records have been added or fails the test.
func (s *recordingSink) waitFor(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-s.added:
		case <-timeout:
			t.Fatalf("received %d/%d records", i, n)
		}
	}
}

func listingServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func half() float64 { return 0.5 }

func TestDecodeListings(t *testing.T) {
	entries, err := DecodeListings([]byte(`[
		{"data": "one", "date": "2026-01-01T00:00:00Z"},
		{"data": ""},
		{"data": "two"}
	]`))
	if err != nil {
		t.Fatalf("DecodeListings() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("DecodeListings() = %d entries, want 2", len(entries))
	}
	if entries[0].Content != "one" || entries[0].CreatedAt.Year() != 2026 {
		t.Errorf("entries[0] = %+v", entries[0])
	}

	if _, err := DecodeListings([]byte(`{"not": "a list"}`)); err == nil {
		t.Error("DecodeListings() on an object should fail")
	}
}

func TestFeeder_CyclePicksFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	for _, c := range []string{"a", "b", "c"} {
		if _, err := st.Save(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	sink := newRecordingSink()

	f := New(Config{Store: st, Sink: sink, Random: half, Logger: testLogger()})
	if n := f.Cycle(ctx); n != 3 {
		t.Fatalf("Cycle() = %d, want 3", n)
	}

	got := sink.snapshot()
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	for _, rec := range got {
		if rec.Text != "b" {
			t.Errorf("picked %q, want b", rec.Text)
		}
		if rec.FontSize != 30 {
			t.Errorf("font size = %d, want 30", rec.FontSize)
		}
	}
}

func TestFeeder_CycleFontSizeRange(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, _ = st.Save(ctx, "x")

	for _, u := range []float64{0, 0.999999} {
		sink := newRecordingSink()
		f := New(Config{Store: st, Sink: sink, Random: func() float64 { return u }, Logger: testLogger()})
		f.Cycle(ctx)

		size := sink.snapshot()[0].FontSize
		if size < MinFontSize || size >= MinFontSize+FontSizeRange {
			t.Errorf("u=%v: font size %d outside [%d, %d)", u, size, MinFontSize, MinFontSize+FontSizeRange)
		}
	}
}

func TestFeeder_CycleEmpty(t *testing.T) {
	sink := newRecordingSink()
	f := New(Config{Sink: sink, Logger: testLogger()})

	if n := f.Cycle(context.Background()); n != 0 {
		t.Errorf("Cycle() = %d, want 0", n)
	}
}

func TestFeeder_CycleIncludesRemoteSources(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, _ = st.Save(ctx, "local")

	remote := listingServer(t, `[{"data":"remote-1"},{"data":"remote-2"}]`)
	sink := newRecordingSink()

	f := New(Config{
		Sources: []SourceInfo{{Name: "remote", URL: remote.URL}},
		Store:   st,
		Sink:    sink,
		Random:  func() float64 { return 0.99 },
		Logger:  testLogger(),
	})

	if n := f.Cycle(ctx); n != 3 {
		t.Fatalf("Cycle() = %d, want 3", n)
	}
	// 0.99 picks the last entry of the pool: the final remote entry
	for _, rec := range sink.snapshot() {
		if rec.Text != "remote-2" {
			t.Errorf("picked %q, want remote-2", rec.Text)
		}
	}

	status := f.Sources()
	if len(status) != 1 || status[0].Entries != 2 || status[0].Error != nil {
		t.Errorf("Sources() = %+v, want one healthy source with 2 entries", status)
	}
}

func TestFeeder_FailingSourceSkipped(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	healthy := listingServer(t, `[{"data":"ok"}]`)

	sink := newRecordingSink()
	f := New(Config{
		Sources: []SourceInfo{
			{Name: "failing", URL: failing.URL},
			{Name: "healthy", URL: healthy.URL},
		},
		Sink:   sink,
		Random: half,
		Logger: testLogger(),
	})

	if n := f.Cycle(context.Background()); n != 1 {
		t.Fatalf("Cycle() = %d, want 1", n)
	}

	status := f.Sources()
	if len(status) != 2 {
		t.Fatalf("Sources() = %d, want 2", len(status))
	}
	if status[0].Name != "failing" || status[0].Error == nil {
		t.Errorf("failing status = %+v, want an error", status[0])
	}
	if status[1].Error != nil {
		t.Errorf("healthy status error = %v", *status[1].Error)
	}
}

func TestFeeder_DecoderPanicRecovery(t *testing.T) {
	remote := listingServer(t, `whatever`)
	other := listingServer(t, `[{"data":"fine"}]`)

	sink := newRecordingSink()
	f := New(Config{
		Sources: []SourceInfo{
			{Name: "panicky", URL: remote.URL, Decoder: func([]byte) ([]Entry, error) {
				panic("decoder exploded")
			}},
			{Name: "other", URL: other.URL},
		},
		Sink:   sink,
		Random: half,
		Logger: testLogger(),
	})

	if n := f.Cycle(context.Background()); n != 1 {
		t.Fatalf("Cycle() = %d, want 1", n)
	}

	status := f.Sources()
	if status[0].Error == nil {
		t.Fatal("panicking decoder should record an error")
	}
	if !strings.Contains(*status[0].Error, "correlation_id") {
		t.Errorf("error = %q, want a correlation id", *status[0].Error)
	}
}

func TestFeeder_StartForwardsNewMessages(t *testing.T) {
	st := store.NewMemoryStore()
	sink := newRecordingSink()

	f := New(Config{Store: st, Sink: sink, Interval: time.Hour, Random: half, Logger: testLogger()})
	f.Start(context.Background())
	defer f.Stop()

	if _, err := st.Save(context.Background(), "fresh"); err != nil {
		t.Fatal(err)
	}

	// the forwarded record plus, depending on timing, a pick from the
	// initial cycle
	sink.waitFor(t, 1)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, rec := range sink.snapshot() {
			if rec.Text == "fresh" && rec.FontSize == 0 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("new message was not forwarded with default presentation")
}

func TestFeeder_StartRunsImmediateCycle(t *testing.T) {
	st := store.NewMemoryStore()
	_, _ = st.Save(context.Background(), "old")
	sink := newRecordingSink()

	f := New(Config{Store: st, Sink: sink, Interval: time.Hour, Random: half, Logger: testLogger()})
	f.Start(context.Background())
	defer f.Stop()

	sink.waitFor(t, 1)
	if got := sink.snapshot()[0]; got.Text != "old" || got.FontSize != 30 {
		t.Errorf("first record = %+v, want a cycle pick of old", got)
	}
}

func TestFeeder_CyclesRepeat(t *testing.T) {
	st := store.NewMemoryStore()
	_, _ = st.Save(context.Background(), "again")
	sink := newRecordingSink()

	f := New(Config{Store: st, Sink: sink, Interval: 20 * time.Millisecond, Random: half, Logger: testLogger()})
	f.Start(context.Background())
	defer f.Stop()

	sink.waitFor(t, 3)
}

func TestFeeder_StopBeforeStart(t *testing.T) {
	f := New(Config{Sink: newRecordingSink(), Logger: testLogger()})

	// this must not panic
	f.Stop()

	// start after stop is a no-op
	f.Start(context.Background())
	f.Stop()
}

func TestFeeder_StopTwice(t *testing.T) {
	f := New(Config{Store: store.NewMemoryStore(), Sink: newRecordingSink(), Logger: testLogger()})
	f.Start(context.Background())

	f.Stop()
	f.Stop()
}

func TestFeeder_StopUnsubscribes(t *testing.T) {
	st := store.NewMemoryStore()
	sink := newRecordingSink()

	f := New(Config{Store: st, Sink: sink, Interval: time.Hour, Logger: testLogger()})
	f.Start(context.Background())
	f.Stop()

	before := len(sink.snapshot())
	_, _ = st.Save(context.Background(), "late")
	time.Sleep(50 * time.Millisecond)

	if got := len(sink.snapshot()); got != before {
		t.Errorf("records after Stop = %d, want %d", got, before)
	}
}

func TestFeeder_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := New(Config{Store: store.NewMemoryStore(), Sink: newRecordingSink(), Interval: 10 * time.Millisecond, Logger: testLogger()})
	f.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		f.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}
}
