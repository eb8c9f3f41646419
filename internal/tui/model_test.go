package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/stage"
)

// fakeEngine records the calls the model makes.
type fakeEngine struct {
	paused  bool
	resized int
	cleared int
	visible []bool
	stats   scheduler.Stats
}

func (f *fakeEngine) Pause()       { f.paused = true }
func (f *fakeEngine) Resume()      { f.paused = false }
func (f *fakeEngine) ClearScreen() { f.cleared++ }
func (f *fakeEngine) Resize()      { f.resized++ }

func (f *fakeEngine) SetVisible(visible bool) {
	f.visible = append(f.visible, visible)
}

func (f *fakeEngine) Stats() scheduler.Stats {
	s := f.stats
	s.Paused = f.paused
	return s
}

type fakeDisplay struct {
	width, height float64
	nodes         []stage.Node
}

func (f *fakeDisplay) SetSize(width, height float64) {
	f.width, f.height = width, height
}

func (f *fakeDisplay) Snapshot() []stage.Node { return f.nodes }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_WindowSizeResizes(t *testing.T) {
	eng := &fakeEngine{}
	disp := &fakeDisplay{}
	m := New(eng, disp, "test")

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	if disp.width != 80 || disp.height != 23 {
		t.Errorf("display size = %vx%v, want 80x23", disp.width, disp.height)
	}
	if eng.resized != 1 {
		t.Errorf("resized = %d, want 1", eng.resized)
	}
	if m.width != 80 || m.height != 24 {
		t.Errorf("model size = %dx%d", m.width, m.height)
	}
}

func TestModel_FocusMapsToVisibility(t *testing.T) {
	eng := &fakeEngine{}
	m := New(eng, &fakeDisplay{}, "test")

	m.Update(tea.BlurMsg{})
	m.Update(tea.FocusMsg{})

	if len(eng.visible) != 2 || eng.visible[0] || !eng.visible[1] {
		t.Errorf("visibility calls = %v, want [false true]", eng.visible)
	}
}

func TestModel_Keys(t *testing.T) {
	eng := &fakeEngine{}
	m := New(eng, &fakeDisplay{}, "test")

	m.Update(key("p"))
	if !eng.paused {
		t.Fatal("p should pause")
	}
	m.Update(key("p"))
	if eng.paused {
		t.Fatal("second p should resume")
	}

	m.Update(key("c"))
	if eng.cleared != 1 {
		t.Errorf("cleared = %d, want 1", eng.cleared)
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_ViewBeforeSize(t *testing.T) {
	m := New(&fakeEngine{}, &fakeDisplay{}, "test")
	if v := m.View(); v != "" {
		t.Errorf("View() = %q, want empty before the first size", v)
	}
}

func TestModel_View(t *testing.T) {
	eng := &fakeEngine{stats: scheduler.Stats{Active: 1, Lanes: 3}}
	disp := &fakeDisplay{nodes: []stage.Node{{ID: 1, Text: "hi", Top: 1, Offset: 5}}}
	m := New(eng, disp, "danmaku")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 4})
	m = updated.(Model)

	lines := strings.Split(m.View(), "\n")
	if len(lines) != 4 {
		t.Fatalf("View() = %d lines, want 4", len(lines))
	}
	if got := ansi.Strip(lines[1]); got != strings.Repeat(" ", 15)+"hi" {
		t.Errorf("row 1 = %q", got)
	}
	if !strings.Contains(ansi.Strip(lines[3]), "active 1") {
		t.Errorf("status = %q", ansi.Strip(lines[3]))
	}
}

func TestRender_Clipping(t *testing.T) {
	tests := []struct {
		name  string
		nodes []stage.Node
		want  string
	}{
		{
			name:  "entering from the right edge",
			nodes: []stage.Node{{Text: "hello", Offset: 2}},
			want:  "        he",
		},
		{
			name:  "leaving past the left edge",
			nodes: []stage.Node{{Text: "hello", Offset: 13}},
			want:  "lo",
		},
		{
			name:  "not yet visible",
			nodes: []stage.Node{{Text: "hello", Offset: 0}},
			want:  "",
		},
		{
			name: "two items in one row",
			nodes: []stage.Node{
				{Text: "ab", Offset: 10},
				{Text: "cd", Offset: 4},
			},
			want: "ab    cd",
		},
		{
			name:  "wide characters",
			nodes: []stage.Node{{Text: "弹幕", Offset: 4}},
			want:  "      弹幕",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Render(tt.nodes, 10, 1)
			if got := ansi.Strip(rows[0]); got != tt.want {
				t.Errorf("row = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_MultiLineSpansRows(t *testing.T) {
	rows := Render([]stage.Node{{Text: "ab\ncd", Top: 0, Offset: 10}}, 10, 3)

	if ansi.Strip(rows[0]) != "ab" || ansi.Strip(rows[1]) != "cd" || rows[2] != "" {
		t.Errorf("rows = %q", rows)
	}
}
