package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245"))

	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(40)

	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	correctStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	wrongStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("15"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var modeTabs = []struct {
	mode  session.Mode
	label string
}{
	{session.ModeFlashcard, "1 Flashcards"},
	{session.ModeDictation, "2 Dictation"},
	{session.ModeList, "3 List"},
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case m.snap.Empty():
		b.WriteString(emptyState(m.snap))
	case m.snap.Mode == session.ModeDictation:
		b.WriteString(m.dictation())
	case m.snap.Mode == session.ModeList:
		b.WriteString(m.list())
	default:
		b.WriteString(flashcard(m.snap))
	}
	b.WriteString("\n\n")

	switch m.prompt {
	case promptImport:
		b.WriteString("Import word file: " + m.path.View() + "\n")
		b.WriteString(mutedStyle.Render("enter import · esc cancel · replaces all words"))
	case promptClear:
		b.WriteString(wrongStyle.Render("Delete all words? This cannot be undone. (y/N)"))
	case promptReset:
		b.WriteString(wrongStyle.Render("Mark every word unknown? (y/N)"))
	default:
		b.WriteString(mutedStyle.Render(help(m.snap)))
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}
	return b.String()
}

func (m Model) header() string {
	tabs := make([]string, 0, len(modeTabs))
	for _, t := range modeTabs {
		if t.mode == m.snap.Mode {
			tabs = append(tabs, activeTabStyle.Render(t.label))
		} else {
			tabs = append(tabs, tabStyle.Render(t.label))
		}
	}

	filter := "All words"
	if m.snap.Filter == session.FilterUnknown {
		filter = "Unknown only"
	}
	st := m.snap.Stats
	info := mutedStyle.Render(fmt.Sprintf("%s (%d)  familiar %d · unknown %d", filter, m.snap.Size, st.Familiar, st.Unknown))

	return lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render("WordMaster")+"  ", strings.Join(tabs, " ")) + "\n" + info
}

func emptyState(snap session.Snapshot) string {
	if snap.Stats.Total == 0 {
		return "No words yet. Press i to import a word file (one term;definition per line)."
	}
	return "Every word is familiar.\n\n" + mutedStyle.Render("a show all words · R reset progress")
}

func flashcard(snap session.Snapshot) string {
	face := snap.Front()
	side := "front"
	if snap.Flipped {
		face = snap.Back()
		side = "back"
	}
	pos := mutedStyle.Render(fmt.Sprintf("Card %d/%d  %s  %s", snap.Index+1, snap.Size, side, statusLabel(snap.Current.Status)))
	return pos + "\n" + cardStyle.Render(face)
}

func (m Model) dictation() string {
	snap := m.snap
	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Word %d/%d", snap.Index+1, snap.Size)))
	b.WriteString("\n" + cardStyle.Render(snap.Current.Definition) + "\n\n")
	b.WriteString(m.answer.View())

	switch snap.Result {
	case session.ResultCorrect:
		b.WriteString("\n" + correctStyle.Render("Correct!") + mutedStyle.Render("  enter for the next word"))
	case session.ResultIncorrect:
		b.WriteString("\n" + wrongStyle.Render("Incorrect."))
		if snap.Revealed {
			b.WriteString(" Answer: " + snap.Current.Term)
		} else {
			b.WriteString(mutedStyle.Render("  ctrl+r reveals the answer"))
		}
	}
	return b.String()
}

func (m Model) list() string {
	rows := make([]string, 0, len(m.snap.Active))
	for i, w := range m.snap.Active {
		mark := "·"
		if w.Status == models.StatusFamiliar {
			mark = "✓"
		}
		row := fmt.Sprintf(" %s %-20s %s", mark, w.Term, w.Definition)
		if i == m.cursor {
			row = cursorStyle.Render(">" + row[1:])
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusFamiliar:
		return correctStyle.Render("familiar")
	case models.StatusUnknown:
		return wrongStyle.Render("unknown")
	}
	return mutedStyle.Render(string(s))
}

func help(snap session.Snapshot) string {
	common := "f filter · s shuffle · i import · R reset · X clear · q quit"
	switch {
	case snap.Empty():
		return common
	case snap.Mode == session.ModeDictation:
		return "enter check/next · ctrl+r reveal · ctrl+n/ctrl+p next/prev · ctrl+k/ctrl+u familiar/unknown · esc flashcards"
	case snap.Mode == session.ModeList:
		return "j/k move · space toggle familiar · c copy · " + common
	}
	return "space flip · d direction · k familiar · u unknown · ←/→ prev/next · c copy · " + common
}
