// Package importer turns delimited "term;definition" text into word records.
package importer

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/models"
)

// DefaultDelimiter separates term from definition on each line.
const DefaultDelimiter = ";"

// IDSource issues word ids.
type IDSource interface {
	Next() int64
}

// Sequence issues ids from the wall clock in milliseconds, never repeating
// and never going below a floor.
type Sequence struct {
	mu    sync.Mutex
	clock func() time.Time
	last  int64
}

// NewSequence returns a Sequence whose ids are all greater than floor.
func NewSequence(floor int64) *Sequence {
	return &Sequence{clock: time.Now, last: floor}
}

// Next returns a fresh id.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.clock().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Options tune Parse.
type Options struct {
	Delimiter string
	IDs       IDSource
}

// Parse splits text into lines and turns each "term<delim>definition" line into
// a word with status unknown. Blank lines, lines without the delimiter and lines
// with an empty side are dropped. Only the first delimiter splits; the rest stays
// in the definition. Returns apperr.ErrImportEmpty when nothing parses.
func Parse(text string, opts Options) ([]models.Word, error) {
	delim := opts.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}
	ids := opts.IDs
	if ids == nil {
		ids = NewSequence(0)
	}

	var out []models.Word
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term, def, ok := strings.Cut(line, delim)
		if !ok {
			continue
		}
		term = strings.TrimSpace(term)
		def = strings.TrimSpace(def)
		if term == "" || def == "" {
			continue
		}
		out = append(out, models.Word{
			ID:         ids.Next(),
			Term:       term,
			Definition: def,
			Status:     models.StatusUnknown,
		})
	}
	if len(out) == 0 {
		return nil, apperr.ErrImportEmpty
	}
	return out, nil
}

var textExtensions = map[string]bool{
	"":     true,
	".txt": true,
	".csv": true,
	".tsv": true,
}

// CheckText rejects content that does not look like a text file.
func CheckText(name string, data []byte) error {
	if !textExtensions[strings.ToLower(filepath.Ext(name))] {
		return fmt.Errorf("%w: %s", apperr.ErrNotText, name)
	}
	if len(data) == 0 {
		return nil
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "text/") {
		return fmt.Errorf("%w: %s (%s)", apperr.ErrNotText, name, ct)
	}
	return nil
}

// ReadFile reads a word file from disk, accepting text files only.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("importer: read %s: %w", path, err)
	}
	if err := CheckText(path, data); err != nil {
		return "", err
	}
	return string(data), nil
}
