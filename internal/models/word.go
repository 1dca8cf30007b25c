// Package models defines the domain types for WordMaster.
package models

// Status is the familiarity state of a word.
type Status string

const (
	// StatusUnrated is reserved; nothing assigns it, but persisted data may carry it.
	StatusUnrated  Status = "unrated"
	StatusUnknown  Status = "unknown"
	StatusFamiliar Status = "familiar"
)

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnrated, StatusUnknown, StatusFamiliar:
		return true
	}
	return false
}

// Ratable reports whether a user may assign s.
func (s Status) Ratable() bool {
	return s == StatusUnknown || s == StatusFamiliar
}

// Word is one vocabulary entry. The JSON layout is the persisted format.
type Word struct {
	ID         int64  `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Status     Status `json:"status"`
	Attempts   int    `json:"attempts"`
	Correct    int    `json:"correct"`
}

// Stats counts words per status over the whole collection.
type Stats struct {
	Total    int `json:"total"`
	Familiar int `json:"familiar"`
	Unknown  int `json:"unknown"`
	Unrated  int `json:"unrated"`
}
