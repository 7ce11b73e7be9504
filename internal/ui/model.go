package ui

import (
	"fmt"
	"strings"

	"github.com/0xlemi/notetrainer/internal/music"
	"github.com/0xlemi/notetrainer/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// meterWidth is the number of cells in the cents meter, covering -50..+50.
const meterWidth = 21

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	targetStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	matchedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	meterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// Returns the block style for a natural note
func naturalStyle(name string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[name])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Returns the left or right half of a split sharp block
func halfStyle(color string, left bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderTop(true).
		BorderBottom(true).
		PaddingTop(2).
		PaddingBottom(2)
	if left {
		return s.BorderLeft(true).BorderRight(false).PaddingLeft(2).PaddingRight(1)
	}
	return s.BorderLeft(false).BorderRight(true).PaddingLeft(1).PaddingRight(2)
}

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	case "B":
		return "C"
	default:
		return "C"
	}
}

// ResultMsg carries a session result to the UI
type ResultMsg session.Result

// Model represents the UI state
type Model struct {
	result     session.Result
	hasResult  bool
	instrument string
	width      int
	height     int
}

// NewModel creates a new UI model for the given instrument
func NewModel(instrument string) Model {
	return Model{instrument: instrument}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ResultMsg:
		m.result = session.Result(msg)
		m.hasResult = true
		if m.result.Instrument != "" {
			m.instrument = m.result.Instrument
		}
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	s := titleStyle.Render("NoteTrainer - " + m.instrument)
	s += "\n"

	r := m.result
	if r.HasTarget {
		line := fmt.Sprintf("Target: %s%d", music.NoteName(r.Target), music.OctaveOf(r.Target))
		if r.Matched {
			s += matchedStyle.Render(line+"  matched!") + "\n\n"
		} else {
			s += targetStyle.Render(line) + "\n\n"
		}
	}

	if m.hasResult && r.Valid {
		s += renderNote(r.Pitch)
		s += "\n"

		if r.Pitch.HasEnharmonic() {
			s += infoStyle.Render(r.Pitch.String()) + "\n"
		}
		s += meterStyle.Render(renderMeter(r.Cents)) + "\n"

		info := fmt.Sprintf("Frequency: %.2f Hz | Cents: %+d %s | Clarity: %.2f",
			r.Frequency,
			r.Cents,
			music.Tuning(r.Cents),
			r.Confidence)
		s += infoStyle.Render(info)
	} else {
		s += infoStyle.Render("Listening for audio...")
	}

	s += "\n\n"
	s += infoStyle.Render("Press q to quit")

	return s
}

// renderNote draws the note block. Sharps are split between the colors of
// the two naturals they sit between.
func renderNote(p music.MappedPitch) string {
	if !strings.HasSuffix(p.Name, "#") {
		return naturalStyle(p.Name).Render(fmt.Sprintf("%s%d", p.Name, p.Octave))
	}

	base := p.Name[:1]
	left := halfStyle(noteColors[base], true)
	right := halfStyle(noteColors[getNextNote(base)], false)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(base),
		right.Render(fmt.Sprintf("#%d", p.Octave)),
	)
}

// renderMeter draws a needle between flat and sharp.
func renderMeter(cents int) string {
	pos := (cents + 50) * (meterWidth - 1) / 100
	pos = max(0, min(meterWidth-1, pos))

	cells := []rune(strings.Repeat("-", meterWidth))
	cells[meterWidth/2] = '|'
	cells[pos] = '^'
	return "flat [" + string(cells) + "] sharp"
}
