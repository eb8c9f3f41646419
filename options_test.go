package danmaku

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	board, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if board.Port() != 3000 {
		t.Errorf("Port() = %d, want 3000", board.Port())
	}
	if board.width != 1280 || board.height != 720 {
		t.Errorf("display = %vx%v, want 1280x720", board.width, board.height)
	}
	if len(board.Sources()) != 0 {
		t.Errorf("len(Sources()) = %d, want 0", len(board.Sources()))
	}
	if board.storagePath != "" {
		t.Errorf("storagePath = %q, want in-memory", board.storagePath)
	}
	if board.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
}

func TestNew_EngineConfig(t *testing.T) {
	board, err := New(
		WithLaneHeight(30),
		WithPollInterval(100*time.Millisecond),
		WithResumeDelay(time.Second),
		WithDurationScale(2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := board.engineConfig
	if cfg.LaneHeight != 30 {
		t.Errorf("LaneHeight = %v, want 30", cfg.LaneHeight)
	}
	if cfg.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %v, want 100ms", cfg.PollInterval)
	}
	if cfg.ResumeDelay != time.Second {
		t.Errorf("ResumeDelay = %v, want 1s", cfg.ResumeDelay)
	}
	if cfg.DurationScale != 2 {
		t.Errorf("DurationScale = %v, want 2", cfg.DurationScale)
	}
}

func TestNew_DuplicateSourceNames(t *testing.T) {
	s1, _ := NewSource("upstream", "https://a.example.com/messages")
	s2, _ := NewSource("upstream", "https://b.example.com/messages")

	_, err := New(WithSources(s1, s2))
	if err == nil {
		t.Fatal("New() expected error for duplicate source names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate source name") {
		t.Errorf("New() error = %v, want error containing 'duplicate source name'", err)
	}
}

func TestWithSource(t *testing.T) {
	s1, _ := NewSource("one", "https://one.example.com")
	s2, _ := NewSource("two", "https://two.example.com")

	board, err := New(WithSource(s1), WithSource(s2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sources := board.Sources()
	if len(sources) != 2 || sources[0].Name() != "one" || sources[1].Name() != "two" {
		t.Errorf("Sources() = %v, want [one two]", sources)
	}
}

func TestSources_Immutability(t *testing.T) {
	src, _ := NewSource("one", "https://one.example.com")
	board, _ := New(WithSource(src))

	sources := board.Sources()
	sources[0] = Source{name: "changed"}

	if board.Sources()[0].Name() != "one" {
		t.Error("modifying returned slice affected the board")
	}
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want string
	}{
		{"port zero", WithPort(0), "port must be between"},
		{"port too high", WithPort(65536), "port must be between"},
		{"negative display", WithDisplaySize(-1, 100), "must not be negative"},
		{"zero lane height", WithLaneHeight(0), "lane height"},
		{"zero poll interval", WithPollInterval(0), "poll interval"},
		{"zero resume delay", WithResumeDelay(0), "resume delay"},
		{"zero duration scale", WithDurationScale(0), "duration scale"},
		{"zero feed interval", WithFeedInterval(0), "feed interval"},
		{"zero concurrency", WithMaxConcurrency(0), "max concurrency"},
		{"empty storage path", WithStorage(""), "storage path"},
		{"nil logger", WithLogger(nil), "logger cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if err == nil {
				t.Fatal("New() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestWithPort_ValidEdgeCases(t *testing.T) {
	for _, port := range []int{1, 65535} {
		board, err := New(WithPort(port))
		if err != nil {
			t.Errorf("WithPort(%d) error = %v", port, err)
			continue
		}
		if board.Port() != port {
			t.Errorf("Port() = %d, want %d", board.Port(), port)
		}
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	board, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.logger != logger {
		t.Error("logger was not set")
	}
}

func TestWithTitle(t *testing.T) {
	board, err := New(WithTitle("Live comments"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if board.title != "Live comments" {
		t.Errorf("title = %q, want %q", board.title, "Live comments")
	}
}

func TestWithRecordCallback_NilIsSafe(t *testing.T) {
	board, err := New(WithRecordCallback(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(board.recordCallbacks) != 0 {
		t.Errorf("len(recordCallbacks) = %d, want 0", len(board.recordCallbacks))
	}
}
