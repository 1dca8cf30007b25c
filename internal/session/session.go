// Package session tracks the study session over the word store: the active
// filter, study mode, current position and the per-word flashcard and
// dictation state.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/importer"
	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/store"
)

// Filter selects which words are eligible for study.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterUnknown Filter = "unknown"
)

// Mode is the study mode.
type Mode string

const (
	ModeFlashcard Mode = "flashcard"
	ModeDictation Mode = "dictation"
	ModeList      Mode = "list"
)

// Direction picks the face shown before a flashcard is flipped.
type Direction string

const (
	DirectionTermFirst       Direction = "term-first"
	DirectionDefinitionFirst Direction = "definition-first"
)

// Result is the outcome of the last dictation check.
type Result string

const (
	ResultNone      Result = "none"
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
)

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterUnknown:
		return f, nil
	}
	return "", fmt.Errorf("%w: filter %q", apperr.ErrInvalidArgument, s)
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFlashcard, ModeDictation, ModeList:
		return m, nil
	}
	return "", fmt.Errorf("%w: mode %q", apperr.ErrInvalidArgument, s)
}

// ParseDirection validates a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionTermFirst, DirectionDefinitionFirst:
		return d, nil
	}
	return "", fmt.Errorf("%w: direction %q", apperr.ErrInvalidArgument, s)
}

// Snapshot is an immutable view of the session and the active words.
type Snapshot struct {
	Filter    Filter        `json:"filter"`
	Mode      Mode          `json:"mode"`
	Direction Direction     `json:"direction"`
	Index     int           `json:"index"`
	Size      int           `json:"size"`
	Current   *models.Word  `json:"current"`
	Active    []models.Word `json:"active"`
	Flipped   bool          `json:"flipped"`
	Input     string        `json:"input"`
	Result    Result        `json:"result"`
	Revealed  bool          `json:"revealed"`
	Stats     models.Stats  `json:"stats"`
}

// Empty reports whether there is no current word.
func (s Snapshot) Empty() bool { return s.Current == nil }

// Front returns the text on the unflipped face of the current card.
func (s Snapshot) Front() string {
	if s.Current == nil {
		return ""
	}
	if s.Direction == DirectionDefinitionFirst {
		return s.Current.Definition
	}
	return s.Current.Term
}

// Back returns the text on the flipped face of the current card.
func (s Snapshot) Back() string {
	if s.Current == nil {
		return ""
	}
	if s.Direction == DirectionDefinitionFirst {
		return s.Current.Term
	}
	return s.Current.Definition
}

// Listener receives session change notifications after the lock is released.
type Listener func(kind string, snap Snapshot)

type state struct {
	filter    Filter
	mode      Mode
	direction Direction
	index     int
	flipped   bool
	input     string
	result    Result
	revealed  bool
}

// Controller serializes all session commands.
type Controller struct {
	store     *store.Store
	ids       *importer.Sequence
	delimiter string
	logger    *slog.Logger

	mu        sync.Mutex
	st        state
	listeners []Listener
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelimiter sets the import field delimiter.
func WithDelimiter(d string) Option {
	return func(c *Controller) { c.delimiter = d }
}

// WithMode sets the initial study mode.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.st.mode = m }
}

// WithDirection sets the initial flashcard direction.
func WithDirection(d Direction) Option {
	return func(c *Controller) { c.st.direction = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller over an already loaded store.
func New(s *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:     s,
		ids:       importer.NewSequence(s.MaxID()),
		delimiter: importer.DefaultDelimiter,
		logger:    slog.Default(),
		st: state{
			filter:    FilterAll,
			mode:      ModeFlashcard,
			direction: DirectionTermFirst,
			result:    ResultNone,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying word store.
func (c *Controller) Store() *store.Store { return c.store }

// Subscribe registers fn for session change notifications.
func (c *Controller) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clampLocked(c.activeLocked())
	return c.snapshotLocked()
}

// do runs fn under the lock, then notifies listeners with kind.
func (c *Controller) do(kind string, fn func() error) (Snapshot, error) {
	c.mu.Lock()
	err := fn()
	c.clampLocked(c.activeLocked())
	snap := c.snapshotLocked()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if rejected(err) {
		return snap, err
	}
	for _, l := range listeners {
		l(kind, snap)
	}
	return snap, err
}

// rejected reports whether err means the command changed nothing.
func rejected(err error) bool {
	return errors.Is(err, apperr.ErrNoCurrentWord) || errors.Is(err, apperr.ErrNotFound)
}

// read runs fn under the lock without notifying.
func (c *Controller) read(fn func() error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := fn()
	c.clampLocked(c.activeLocked())
	return c.snapshotLocked(), err
}

func (c *Controller) activeLocked() []models.Word {
	words := c.store.Words()
	if c.st.filter == FilterUnknown {
		return Apply(words, FilterUnknown)
	}
	return words
}

// Apply projects words through a filter without touching the store.
func Apply(words []models.Word, f Filter) []models.Word {
	if f != FilterUnknown {
		return words
	}
	return lo.Filter(words, func(w models.Word, _ int) bool {
		return w.Status == models.StatusUnknown
	})
}

func (c *Controller) clampLocked(active []models.Word) {
	if c.st.index >= len(active) || c.st.index < 0 {
		c.st.index = 0
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	all := c.store.Words()
	active := Apply(all, c.st.filter)
	snap := Snapshot{
		Filter:    c.st.filter,
		Mode:      c.st.mode,
		Direction: c.st.direction,
		Index:     c.st.index,
		Size:      len(active),
		Active:    active,
		Flipped:   c.st.flipped,
		Input:     c.st.input,
		Result:    c.st.result,
		Revealed:  c.st.revealed,
		Stats:     store.Count(all),
	}
	if snap.Active == nil {
		snap.Active = []models.Word{}
	}
	if c.st.index < len(active) {
		cur := active[c.st.index]
		snap.Current = &cur
	}
	return snap
}

func (c *Controller) resetTransientLocked() {
	c.st.flipped = false
	c.st.input = ""
	c.st.result = ResultNone
	c.st.revealed = false
}

func (c *Controller) currentLocked() (models.Word, []models.Word, error) {
	active := c.activeLocked()
	c.clampLocked(active)
	if len(active) == 0 {
		return models.Word{}, active, apperr.ErrNoCurrentWord
	}
	return active[c.st.index], active, nil
}

// SetFilter changes the filter; the index goes back to the first word.
func (c *Controller) SetFilter(f Filter) (Snapshot, error) {
	if _, err := ParseFilter(string(f)); err != nil {
		return c.Snapshot(), err
	}
	return c.do("filter", func() error {
		c.st.filter = f
		c.st.index = 0
		c.resetTransientLocked()
		return nil
	})
}

// ToggleFilter switches between all and unknown-only.
func (c *Controller) ToggleFilter() (Snapshot, error) {
	return c.do("filter", func() error {
		if c.st.filter == FilterUnknown {
			c.st.filter = FilterAll
		} else {
			c.st.filter = FilterUnknown
		}
		c.st.index = 0
		c.resetTransientLocked()
		return nil
	})
}

// SetMode changes the study mode.
func (c *Controller) SetMode(m Mode) (Snapshot, error) {
	if _, err := ParseMode(string(m)); err != nil {
		return c.Snapshot(), err
	}
	return c.do("mode", func() error {
		c.st.mode = m
		return nil
	})
}

// ToggleDirection swaps which face of a flashcard is shown first.
func (c *Controller) ToggleDirection() (Snapshot, error) {
	return c.do("direction", func() error {
		if c.st.direction == DirectionDefinitionFirst {
			c.st.direction = DirectionTermFirst
		} else {
			c.st.direction = DirectionDefinitionFirst
		}
		return nil
	})
}

// Flip turns the current flashcard over.
func (c *Controller) Flip() (Snapshot, error) {
	return c.do("flip", func() error {
		if _, _, err := c.currentLocked(); err != nil {
			return err
		}
		c.st.flipped = !c.st.flipped
		return nil
	})
}

// Advance moves to the next word, wrapping to the first after the last.
func (c *Controller) Advance() (Snapshot, error) {
	return c.do("navigate", func() error {
		_, active, err := c.currentLocked()
		if err != nil {
			return err
		}
		c.st.index = (c.st.index + 1) % len(active)
		c.resetTransientLocked()
		return nil
	})
}

// Retreat moves to the previous word, wrapping to the last from the first.
func (c *Controller) Retreat() (Snapshot, error) {
	return c.do("navigate", func() error {
		_, active, err := c.currentLocked()
		if err != nil {
			return err
		}
		c.st.index = (c.st.index - 1 + len(active)) % len(active)
		c.resetTransientLocked()
		return nil
	})
}

// Rate records status for the current word and moves on to the word that
// followed it. When the rated word leaves the active view the follower slides
// into its place, so no word is skipped.
func (c *Controller) Rate(status models.Status) (Snapshot, error) {
	if !status.Ratable() {
		return c.Snapshot(), fmt.Errorf("%w: status %q", apperr.ErrInvalidArgument, status)
	}
	return c.do("rate", func() error {
		cur, active, err := c.currentLocked()
		if err != nil {
			return err
		}
		next := active[(c.st.index+1)%len(active)]

		persistErr := c.store.SetStatus(cur.ID, status)

		c.st.index = 0
		if i := lo.IndexOf(lo.Map(c.activeLocked(), func(w models.Word, _ int) int64 { return w.ID }), next.ID); i >= 0 {
			c.st.index = i
		}
		c.resetTransientLocked()
		return persistErr
	})
}

// ToggleStatus flips a word between familiar and unknown without navigating.
func (c *Controller) ToggleStatus(id int64) (Snapshot, error) {
	return c.do("status", func() error {
		w, ok := c.store.Lookup(id)
		if !ok {
			return fmt.Errorf("%w: word %d", apperr.ErrNotFound, id)
		}
		next := models.StatusFamiliar
		if w.Status == models.StatusFamiliar {
			next = models.StatusUnknown
		}
		return c.store.SetStatus(id, next)
	})
}

// SetInput replaces the dictation buffer. Any edit clears a previous result.
func (c *Controller) SetInput(s string) (Snapshot, error) {
	return c.do("input", func() error {
		c.st.input = s
		c.st.result = ResultNone
		c.st.revealed = false
		return nil
	})
}

// Normalize prepares a dictation answer for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Check compares the dictation buffer with the current term.
func (c *Controller) Check() (Snapshot, error) {
	return c.do("check", func() error {
		cur, _, err := c.currentLocked()
		if err != nil {
			return err
		}
		if c.st.result == ResultCorrect {
			return nil
		}
		if Normalize(c.st.input) == Normalize(cur.Term) {
			c.st.result = ResultCorrect
		} else {
			c.st.result = ResultIncorrect
		}
		return nil
	})
}

// Reveal shows the answer after an incorrect check. It does nothing otherwise.
func (c *Controller) Reveal() (Snapshot, error) {
	return c.do("reveal", func() error {
		if c.st.result == ResultIncorrect {
			c.st.revealed = true
		}
		return nil
	})
}

// Submit is the Enter key in dictation: next word after a correct answer,
// otherwise a check.
func (c *Controller) Submit() (Snapshot, error) {
	c.mu.Lock()
	correct := c.st.result == ResultCorrect
	c.mu.Unlock()
	if correct {
		return c.Advance()
	}
	return c.Check()
}

// Import parses text and, when at least one word parses, replaces the whole
// collection and restarts the session from the first word of all words.
// On apperr.ErrImportEmpty nothing changes.
func (c *Controller) Import(text string) (Snapshot, int, error) {
	words, err := importer.Parse(text, importer.Options{Delimiter: c.delimiter, IDs: c.ids})
	if err != nil {
		snap, _ := c.read(func() error { return nil })
		return snap, 0, err
	}
	snap, err := c.do("import", func() error {
		persistErr := c.store.ReplaceAll(words)
		c.st.filter = FilterAll
		c.st.index = 0
		c.resetTransientLocked()
		return persistErr
	})
	c.logger.Info("words imported", slog.Int("count", len(words)))
	return snap, len(words), err
}

// Shuffle randomizes the whole collection and restarts from the first word.
func (c *Controller) Shuffle() (Snapshot, error) {
	return c.do("shuffle", func() error {
		err := c.store.Shuffle()
		c.st.index = 0
		c.resetTransientLocked()
		return err
	})
}

// ResetProgress marks every word unknown and restarts from the first word.
func (c *Controller) ResetProgress() (Snapshot, error) {
	return c.do("reset", func() error {
		err := c.store.ResetAllStatuses()
		c.st.index = 0
		c.resetTransientLocked()
		return err
	})
}

// Clear deletes every word and the persisted data.
func (c *Controller) Clear() (Snapshot, error) {
	return c.do("clear", func() error {
		err := c.store.Clear()
		c.st.index = 0
		c.resetTransientLocked()
		return err
	})
}
