package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tack/audio"
	"tack/engine"
)

type frameMsg time.Time

type tuiModel struct {
	s             *session
	width, height int
}

// Pre-computed beat styles to avoid allocations in render loop
var (
	accentGlyphs = map[engine.Accent]string{
		engine.Strong: "█",
		engine.Normal: "▆",
		engine.Sub:    "▃",
		engine.Muted:  "▁",
	}
	accentStyles = map[engine.Accent]lipgloss.Style{
		engine.Strong: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		engine.Normal: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		engine.Sub:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		engine.Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	}
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func newTUIModel(s *session) tuiModel {
	return tuiModel{s: s}
}

func tuiFrame() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiFrame()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space":
			m.s.toggle()
		case "up", "k":
			m.s.nudgeTempo(1)
		case "down", "j":
			m.s.nudgeTempo(-1)
		case "pgup":
			m.s.nudgeTempo(10)
		case "pgdown":
			m.s.nudgeTempo(-10)
		case "]":
			m.s.nudgeGain(1)
		case "[":
			m.s.nudgeGain(-1)
		case "tab":
			m.s.nextSound()
		case "m":
			m.s.toggleMuted()
		case "i":
			m.s.toggleIgnoreFocus()
		case "d":
			m.s.focusEvent("duck")
		case "l":
			m.s.focusEvent("loss")
		case "g":
			m.s.focusEvent("gain")
		}

	case frameMsg:
		return m, tuiFrame()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const panelWidth = 45
	s := m.s
	eng := s.eng
	pattern := s.metro.Pattern()
	tick, ticking := s.lastTick()

	var lines []string
	if s.running() {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("● %d BPM", s.metro.Tempo())))
	} else {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("○ STOPPED  %d BPM", s.metro.Tempo())))
	}
	lines = append(lines, "")
	lines = append(lines, renderBeatBar(pattern.Beats, tick, ticking))
	if pattern.SubdivisionCount() > 1 {
		current := 0
		if ticking {
			current = tick.Subdivision
		}
		lines = append(lines, renderSubdivisions(pattern.Subdivisions, pattern.Beats, tick, current))
	}
	lines = append(lines, "")

	sound := "-"
	if snd := eng.Sound(); snd != nil {
		sound = snd.Name
	}
	lines = append(lines, infoStyle.Render("Sound  "+sound))

	gain := "off"
	if g := eng.Gain(); g > 0 {
		gain = fmt.Sprintf("+%d dB", g)
	}
	mix := "Gain   " + gain
	if eng.Muted() {
		mix += "  [muted]"
	}
	lines = append(lines, infoStyle.Render(mix))

	focusLine := "Focus  "
	switch {
	case eng.IgnoreFocus():
		focusLine += "ignored"
	case eng.Volume() < 1:
		focusLine += fmt.Sprintf("ducked (%.0f%%)", eng.Volume()*100)
	default:
		focusLine += "normal"
	}
	lines = append(lines, infoStyle.Render(focusLine))
	lines = append(lines, dimStyle.Render(deviceLineText(s.backend, s.device)))

	stats := eng.Stats()
	lines = append(lines, "")
	lines = append(lines, dimStyle.Render(fmt.Sprintf("ticks %d  main %.1fs  long %.1fs",
		stats.Ticks,
		float64(stats.Main.Frames)/engine.SampleRate,
		float64(stats.Long.Frames)/engine.SampleRate)))
	if failures := stats.Main.Failures + stats.Long.Failures; failures > 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Render(fmt.Sprintf("  ⚠ %d writes failed", failures)))
	}

	lines = append(lines, "")
	lines = append(lines, boldStyle.Render("Space")+helpStyle.Render(" play/stop  ")+
		boldStyle.Render("↑↓")+helpStyle.Render(" tempo  ")+
		boldStyle.Render("Tab")+helpStyle.Render(" sound"))
	lines = append(lines, boldStyle.Render("[ ]")+helpStyle.Render(" gain  ")+
		boldStyle.Render("m")+helpStyle.Render(" mute  ")+
		boldStyle.Render("i")+helpStyle.Render(" ignore focus"))
	lines = append(lines, boldStyle.Render("d l g")+helpStyle.Render(" duck/lose/regain  ")+
		boldStyle.Render("q")+helpStyle.Render(" quit"))
	if s.hotkey != "" {
		lines = append(lines, boldStyle.Render(s.hotkey)+helpStyle.Render(" play/stop from anywhere"))
	}
	lines = append(lines, helpStyle.Render("tack "+version))

	// Pad left panel to full height
	padded := make([]string, m.height)
	for i := range padded {
		if i < len(lines) {
			padded[i] = lines[i]
		}
	}
	left := lipgloss.NewStyle().
		Width(panelWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(padded, "\n"))

	logWidth := max(m.width-panelWidth-1, 20)
	var logContent strings.Builder
	logContent.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Render("Events") + "\n\n")
	notes := s.recentNotes()
	if len(notes) == 0 {
		logContent.WriteString(dimStyle.Render("Nothing yet"))
	}
	for _, n := range notes {
		for _, line := range wrapText(n, max(logWidth-2, 10)) {
			logContent.WriteString(infoStyle.Render(line) + "\n")
		}
	}
	right := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(logContent.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// renderBeatBar draws one cell per beat, highlighting the beat that last
// played.
func renderBeatBar(beats []engine.Accent, t engine.Tick, ticking bool) string {
	var b strings.Builder
	for i, a := range beats {
		if i > 0 {
			b.WriteString(" ")
		}
		cell := strings.Repeat(accentGlyphs[a], 3)
		if ticking && t.Beat == i+1 {
			b.WriteString(currentStyle.Render(cell))
		} else {
			b.WriteString(accentStyles[a].Render(cell))
		}
	}
	return b.String()
}

// renderSubdivisions draws the slots of one beat; the first slot carries
// the beat's own accent.
func renderSubdivisions(subs, beats []engine.Accent, t engine.Tick, current int) string {
	first := engine.Normal
	if t.Beat >= 1 && t.Beat <= len(beats) {
		first = beats[t.Beat-1]
	}
	var b strings.Builder
	for i, a := range subs {
		if i == 0 {
			a = first
		}
		glyph := accentGlyphs[a]
		if i+1 == current {
			b.WriteString(currentStyle.Render(glyph))
		} else {
			b.WriteString(accentStyles[a].Render(glyph))
		}
	}
	return b.String()
}

func deviceLineText(backend string, d *audio.DeviceInfo) string {
	return fmt.Sprintf("Output %s (%s)", audio.DeviceLabel(d), backend)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
