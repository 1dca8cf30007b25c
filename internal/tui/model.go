// Package tui is the terminal study view.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/importer"
	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
)

type prompt int

const (
	promptNone prompt = iota
	promptImport
	promptClear
	promptReset
)

// Model is the bubbletea model over a session controller.
type Model struct {
	ctrl   *session.Controller
	logger *slog.Logger
	copy   func(string) error

	snap   session.Snapshot
	answer textinput.Model
	path   textinput.Model
	prompt prompt
	cursor int
	status string
	width  int
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for write failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// New creates a model showing the controller's current state.
func New(ctrl *session.Controller, opts ...Option) Model {
	answer := textinput.New()
	answer.Placeholder = "type the term"
	answer.CharLimit = 256
	answer.Width = 40

	path := textinput.New()
	path.Placeholder = "path/to/words.txt"
	path.CharLimit = 1024
	path.Width = 50

	m := Model{
		ctrl:   ctrl,
		logger: slog.Default(),
		copy:   clipboard.WriteAll,
		snap:   ctrl.Snapshot(),
		answer: answer,
		path:   path,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.syncAnswer()
	return m
}

// Run starts the terminal UI and blocks until the user quits.
func Run(ctrl *session.Controller, opts ...Option) error {
	program := tea.NewProgram(New(ctrl, opts...), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.answer.Width = clampWidth(msg.Width - 10)
		m.path.Width = clampWidth(msg.Width - 20)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.prompt {
		case promptImport:
			return m.updateImportPrompt(msg)
		case promptClear, promptReset:
			return m.updateConfirm(msg.String())
		}
		if m.snap.Mode == session.ModeDictation && !m.snap.Empty() {
			return m.updateDictation(msg)
		}
		return m.updateKeys(msg.String())
	}
	return m, nil
}

func clampWidth(w int) int {
	if w < 10 {
		return 10
	}
	return w
}

// apply records the result of a session command.
func (m *Model) apply(snap session.Snapshot, err error) {
	m.snap = snap
	m.cursor = clampCursor(m.cursor, snap.Size)
	m.syncAnswer()
	m.status = ""
	if err != nil {
		m.status = describe(err)
		if !isUserError(err) {
			m.logger.Error("command failed", slog.String("error", err.Error()))
		}
	}
}

func (m *Model) syncAnswer() {
	m.answer.SetValue(m.snap.Input)
	if m.snap.Mode == session.ModeDictation {
		m.answer.Focus()
	} else {
		m.answer.Blur()
	}
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func isUserError(err error) bool {
	return errors.Is(err, apperr.ErrNoCurrentWord) ||
		errors.Is(err, apperr.ErrImportEmpty) ||
		errors.Is(err, apperr.ErrNotText) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrInvalidArgument)
}

func describe(err error) string {
	switch {
	case errors.Is(err, apperr.ErrImportEmpty):
		return "No words found. Each line must look like term;definition."
	case errors.Is(err, apperr.ErrNotText):
		return "Only text files can be imported."
	case errors.Is(err, apperr.ErrNoCurrentWord):
		return "Nothing to study here."
	}
	return "Error: " + err.Error()
}

func (m Model) updateKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "1":
		m.apply(m.ctrl.SetMode(session.ModeFlashcard))
	case "2":
		m.apply(m.ctrl.SetMode(session.ModeDictation))
		return m, textinput.Blink
	case "3":
		m.apply(m.ctrl.SetMode(session.ModeList))
	case "f":
		m.apply(m.ctrl.ToggleFilter())
	case "a":
		if m.snap.Filter != session.FilterAll {
			m.apply(m.ctrl.SetFilter(session.FilterAll))
		}
	case "s":
		m.apply(m.ctrl.Shuffle())
		m.status = "Shuffled."
	case "X":
		m.prompt = promptClear
	case "R":
		m.prompt = promptReset
	case "i":
		m.prompt = promptImport
		m.path.SetValue("")
		m.path.Focus()
		return m, textinput.Blink
	case "c":
		m.copyTerm()
	default:
		if m.snap.Mode == session.ModeList {
			return m.updateList(key)
		}
		return m.updateFlashcard(key)
	}
	return m, nil
}

func (m Model) updateFlashcard(key string) (tea.Model, tea.Cmd) {
	switch key {
	case " ", "space":
		m.apply(m.ctrl.Flip())
	case "d":
		m.apply(m.ctrl.ToggleDirection())
	case "u":
		m.apply(m.ctrl.Rate(models.StatusUnknown))
	case "k":
		m.apply(m.ctrl.Rate(models.StatusFamiliar))
	case "right", "l":
		m.apply(m.ctrl.Advance())
	case "left", "h":
		m.apply(m.ctrl.Retreat())
	}
	return m, nil
}

func (m Model) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, m.snap.Size)
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, m.snap.Size)
	case " ", "space", "enter":
		if m.cursor < len(m.snap.Active) {
			m.apply(m.ctrl.ToggleStatus(m.snap.Active[m.cursor].ID))
		}
	}
	return m, nil
}

func (m Model) updateDictation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.apply(m.ctrl.SetMode(session.ModeFlashcard))
		return m, nil
	case "enter":
		m.apply(m.ctrl.Submit())
		return m, nil
	case "ctrl+r":
		m.apply(m.ctrl.Reveal())
		return m, nil
	case "ctrl+n":
		m.apply(m.ctrl.Advance())
		return m, nil
	case "ctrl+p":
		m.apply(m.ctrl.Retreat())
		return m, nil
	case "ctrl+f":
		m.apply(m.ctrl.ToggleFilter())
		return m, nil
	case "ctrl+u":
		m.apply(m.ctrl.Rate(models.StatusUnknown))
		return m, nil
	case "ctrl+k":
		m.apply(m.ctrl.Rate(models.StatusFamiliar))
		return m, nil
	}

	var cmd tea.Cmd
	before := m.answer.Value()
	m.answer, cmd = m.answer.Update(msg)
	if v := m.answer.Value(); v != before {
		snap, err := m.ctrl.SetInput(v)
		m.snap = snap
		if err != nil {
			m.status = describe(err)
		}
	}
	return m, cmd
}

func (m Model) updateImportPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = promptNone
		m.path.Blur()
		m.status = "Import cancelled."
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		m.prompt = promptNone
		m.path.Blur()
		if path == "" {
			m.status = "Import cancelled."
			return m, nil
		}
		m.importFile(path)
		return m, nil
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *Model) importFile(path string) {
	text, err := importer.ReadFile(path)
	if err != nil {
		m.status = describe(err)
		return
	}
	snap, n, err := m.ctrl.Import(text)
	m.apply(snap, err)
	if err == nil {
		m.cursor = 0
		m.status = fmt.Sprintf("Imported %d words.", n)
	}
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	p := m.prompt
	m.prompt = promptNone
	if key != "y" && key != "Y" {
		m.status = "Cancelled."
		return m, nil
	}
	switch p {
	case promptClear:
		m.apply(m.ctrl.Clear())
		if m.status == "" {
			m.status = "All words deleted."
		}
	case promptReset:
		m.apply(m.ctrl.ResetProgress())
		if m.status == "" {
			m.status = "Progress reset."
		}
	}
	return m, nil
}

func (m *Model) copyTerm() {
	if m.snap.Current == nil {
		return
	}
	term := m.snap.Current.Term
	if m.snap.Mode == session.ModeList && m.cursor < len(m.snap.Active) {
		term = m.snap.Active[m.cursor].Term
	}
	if err := m.copy(term); err != nil {
		m.status = "Clipboard unavailable."
		m.logger.Debug("clipboard write failed", slog.String("error", err.Error()))
		return
	}
	m.status = fmt.Sprintf("Copied %q.", term)
}
