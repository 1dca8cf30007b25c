// Package store holds the ordered word collection and mirrors every change to
// a kv.Port as one JSON document.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/starford/wordmaster/internal/kv"
	"github.com/starford/wordmaster/internal/models"
)

// DefaultKey is the storage key holding the serialized collection.
const DefaultKey = "wordMasterData"

// Change kinds passed to listeners.
const (
	ChangeReplaced = "replaced"
	ChangeStatus   = "status"
	ChangeShuffled = "shuffled"
	ChangeReset    = "reset"
	ChangeCleared  = "cleared"
)

// Change describes one mutation. ID is set for status changes only.
type Change struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

// Listener is called synchronously after each mutation.
type Listener func(Change)

// Store is the authoritative ordered word collection.
type Store struct {
	port   kv.Port
	key    string
	logger *slog.Logger
	rnd    *rand.Rand

	mu        sync.RWMutex
	words     []models.Word
	listeners []Listener
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRand sets the random source used by Shuffle.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rnd = r }
}

// New creates an empty Store on top of port. Call Load to read persisted data.
func New(port kv.Port, opts ...Option) *Store {
	s := &Store{
		port:   port,
		key:    DefaultKey,
		logger: slog.Default(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load replaces the in-memory collection with the persisted one. Missing or
// unparsable data yields an empty collection; only read failures are returned.
func (s *Store) Load() error {
	data, ok, err := s.port.Get(s.key)
	if err != nil {
		s.setWords(nil)
		return fmt.Errorf("store: load: %w", err)
	}
	var words []models.Word
	if ok {
		if err := json.Unmarshal(data, &words); err != nil {
			s.logger.Debug("store: discarding unparsable data", slog.String("error", err.Error()))
			words = nil
		}
	}
	for i := range words {
		if words[i].Status == "" {
			words[i].Status = models.StatusUnrated
		}
	}
	kept := sanitize(words)
	if dropped := len(words) - len(kept); dropped > 0 {
		s.logger.Debug("store: discarding invalid records", slog.Int("count", dropped))
	}
	s.setWords(kept)
	return nil
}

// sanitize drops records with an unknown status or an empty side, and any
// record whose id was already seen.
func sanitize(words []models.Word) []models.Word {
	valid := lo.Filter(words, func(w models.Word, _ int) bool {
		return w.Status.Valid() && strings.TrimSpace(w.Term) != "" && strings.TrimSpace(w.Definition) != ""
	})
	return lo.UniqBy(valid, func(w models.Word) int64 { return w.ID })
}

func (s *Store) setWords(words []models.Word) {
	s.mu.Lock()
	s.words = words
	s.mu.Unlock()
}

// Words returns a copy of the collection in order.
func (s *Store) Words() []models.Word {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Word(nil), s.words...)
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Lookup returns the word with the given id.
func (s *Store) Lookup(id int64) (models.Word, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.words, func(w models.Word) bool { return w.ID == id })
}

// MaxID returns the largest id in the collection, or 0.
func (s *Store) MaxID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Reduce(s.words, func(m int64, w models.Word, _ int) int64 {
		return max(m, w.ID)
	}, 0)
}

// Stats counts the collection by status.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Count(s.words)
}

// Count tallies words by status.
func Count(words []models.Word) models.Stats {
	return models.Stats{
		Total:    len(words),
		Familiar: lo.CountBy(words, func(w models.Word) bool { return w.Status == models.StatusFamiliar }),
		Unknown:  lo.CountBy(words, func(w models.Word) bool { return w.Status == models.StatusUnknown }),
		Unrated:  lo.CountBy(words, func(w models.Word) bool { return w.Status == models.StatusUnrated }),
	}
}

// ReplaceAll swaps in a whole new collection and persists it.
func (s *Store) ReplaceAll(words []models.Word) error {
	return s.mutate(Change{Kind: ChangeReplaced}, func(cur []models.Word) []models.Word {
		return append([]models.Word(nil), words...)
	})
}

// SetStatus updates the status of the word with id. Unknown ids are a no-op
// and nothing is written.
func (s *Store) SetStatus(id int64, status models.Status) error {
	s.mu.RLock()
	_, found := lo.Find(s.words, func(w models.Word) bool { return w.ID == id })
	s.mu.RUnlock()
	if !found {
		return nil
	}
	return s.mutate(Change{Kind: ChangeStatus, ID: id}, func(cur []models.Word) []models.Word {
		return lo.Map(cur, func(w models.Word, _ int) models.Word {
			if w.ID == id {
				w.Status = status
			}
			return w
		})
	})
}

// Shuffle reorders the entire collection randomly and persists it.
func (s *Store) Shuffle() error {
	return s.mutate(Change{Kind: ChangeShuffled}, func(cur []models.Word) []models.Word {
		out := append([]models.Word(nil), cur...)
		s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	})
}

// ResetAllStatuses marks every word unknown and persists.
func (s *Store) ResetAllStatuses() error {
	return s.mutate(Change{Kind: ChangeReset}, func(cur []models.Word) []models.Word {
		return lo.Map(cur, func(w models.Word, _ int) models.Word {
			w.Status = models.StatusUnknown
			return w
		})
	})
}

// Clear empties the collection and deletes the persisted key.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.words = nil
	err := s.port.Delete(s.key)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.notify(listeners, Change{Kind: ChangeCleared})
	if err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// mutate applies fn, then writes the whole collection. The in-memory change
// stands even if the write fails.
func (s *Store) mutate(ch Change, fn func([]models.Word) []models.Word) error {
	s.mu.Lock()
	s.words = fn(s.words)
	err := s.persistLocked()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.notify(listeners, ch)
	if err != nil {
		return fmt.Errorf("store: persist %s: %w", ch.Kind, err)
	}
	return nil
}

func (s *Store) persistLocked() error {
	words := s.words
	if words == nil {
		words = []models.Word{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return s.port.Set(s.key, data)
}

func (s *Store) notify(listeners []Listener, ch Change) {
	for _, fn := range listeners {
		fn(ch)
	}
}
