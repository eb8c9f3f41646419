// Package tui renders the display in a terminal.
//
// The terminal is treated as a display whose units are cells: every lane
// is one row high and widths are measured in cells. The model redraws the
// stage on a frame timer, maps terminal focus to display visibility and
// window size changes to resizes.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jpalmerr/danmaku/internal/scheduler"
	"github.com/jpalmerr/danmaku/internal/stage"
)

// FrameInterval is the redraw period.
const FrameInterval = 50 * time.Millisecond

// Controller is the part of the scheduler the terminal drives.
type Controller interface {
	Pause()
	Resume()
	ClearScreen()
	SetVisible(visible bool)
	Resize()
	Stats() scheduler.Stats
}

// Display is the stage the terminal renders.
type Display interface {
	SetSize(width, height float64)
	Snapshot() []stage.Node
}

type frameMsg time.Time

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Model is the bubbletea model of the terminal display.
type Model struct {
	engine  Controller
	display Display
	title   string

	width  int
	height int
}

// New creates a model. Sizes are unknown until the first window size
// message arrives.
func New(engine Controller, display Display, title string) Model {
	return Model{engine: engine, display: display, title: title}
}

func frame() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Init starts the frame timer.
func (m Model) Init() tea.Cmd {
	return frame()
}

// Update handles input, focus, resizes and frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		// the last row holds the status line
		m.display.SetSize(float64(m.width), float64(max(m.height-1, 0)))
		m.engine.Resize()
		return m, nil

	case tea.BlurMsg:
		m.engine.SetVisible(false)
		return m, nil

	case tea.FocusMsg:
		m.engine.SetVisible(true)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			if m.engine.Stats().Paused {
				m.engine.Resume()
			} else {
				m.engine.Pause()
			}
		case "c":
			m.engine.ClearScreen()
		}
		return m, nil

	case frameMsg:
		return m, frame()
	}
	return m, nil
}

// View draws every hosted item at its current offset, followed by a
// status line.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	rows := max(m.height-1, 0)
	lines := Render(m.display.Snapshot(), m.width, rows)
	lines = append(lines, m.status())
	return strings.Join(lines, "\n")
}

func (m Model) status() string {
	stats := m.engine.Stats()
	text := fmt.Sprintf("%s  active %d  pending %d  lanes %d  dropped %d  [p]ause [c]lear [q]uit",
		m.title, stats.Active, stats.Pending, stats.Lanes, stats.Dropped)
	text = ansi.Cut(text, 0, m.width)
	if stats.Paused {
		return pausedStyle.Render(ansi.Cut("PAUSED  "+text, 0, m.width))
	}
	return statusStyle.Render(text)
}

// segment is one line of an item clipped into a row.
type segment struct {
	x     int
	text  string
	color string
}

// Render lays the nodes out on a grid of width cells by rows rows. An item
// enters at the right edge and its left edge sits at width - offset.
func Render(nodes []stage.Node, width, rows int) []string {
	perRow := make([][]segment, rows)
	for _, n := range nodes {
		x := width - int(n.Offset)
		top := int(n.Top)
		for i, line := range strings.Split(n.Text, "\n") {
			row := top + i
			if row < 0 || row >= rows {
				continue
			}
			perRow[row] = append(perRow[row], segment{x: x, text: line, color: n.FontColor})
		}
	}

	out := make([]string, rows)
	for i, segs := range perRow {
		out[i] = renderRow(segs, width)
	}
	return out
}

// renderRow writes the segments left to right, clipping each to the row
// and to whatever an earlier segment already covers.
func renderRow(segs []segment, width int) string {
	sort.Slice(segs, func(i, j int) bool { return segs[i].x < segs[j].x })

	var b strings.Builder
	cursor := 0
	for _, s := range segs {
		start := s.x
		text := s.text
		textWidth := ansi.StringWidth(text)

		if start < cursor {
			text = ansi.Cut(text, cursor-start, textWidth)
			start = cursor
		}
		if start >= width {
			break
		}
		if start+ansi.StringWidth(text) > width {
			text = ansi.Cut(text, 0, width-start)
		}
		textWidth = ansi.StringWidth(text)
		if textWidth == 0 {
			continue
		}

		b.WriteString(strings.Repeat(" ", start-cursor))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(s.color)).Render(text))
		cursor = start + textWidth
	}
	return b.String()
}
