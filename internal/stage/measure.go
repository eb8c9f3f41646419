package stage

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DefaultLineHeight is the line box height as a multiple of the font size.
const DefaultLineHeight = 1.25

// TextMeasurer estimates the pixel size of a message rendered in a
// proportional font. A terminal cell is taken to be half a font size wide,
// so wide (East Asian) characters count as a full font size.
type TextMeasurer struct {
	LineHeight float64
}

// Measure returns the width of the widest line and the height of all lines.
func (m TextMeasurer) Measure(text string, fontSize int) (float64, float64) {
	lh := m.LineHeight
	if lh <= 0 {
		lh = DefaultLineHeight
	}

	lines := strings.Split(text, "\n")
	cells := 0
	for _, line := range lines {
		cells = max(cells, ansi.StringWidth(line))
	}

	size := float64(fontSize)
	width := float64(cells) * size / 2
	height := float64(len(lines)) * math.Ceil(size*lh)
	return width, height
}

// CellMeasurer measures text in terminal cells, one row per line. The font
// size is ignored.
type CellMeasurer struct{}

// Measure returns the width in cells and the number of rows.
func (CellMeasurer) Measure(text string, _ int) (float64, float64) {
	return float64(lipgloss.Width(text)), float64(lipgloss.Height(text))
}
