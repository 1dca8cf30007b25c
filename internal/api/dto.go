package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
)

const maxInputLen = 1024

// State is the session snapshot returned by every command.
type State = session.Snapshot

// ModeRequest is the request body for PUT /mode.
type ModeRequest struct {
	Mode string `json:"mode" example:"dictation" validate:"required"`
}

// Validate implements validation.Validatable.
func (r ModeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.In(
			string(session.ModeFlashcard), string(session.ModeDictation), string(session.ModeList))),
	)
}

// FilterRequest is the request body for PUT /filter.
type FilterRequest struct {
	Filter string `json:"filter" example:"unknown" validate:"required"`
}

// Validate implements validation.Validatable.
func (r FilterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filter, validation.Required, validation.In(
			string(session.FilterAll), string(session.FilterUnknown))),
	)
}

// RateRequest is the request body for POST /rate.
type RateRequest struct {
	Status string `json:"status" example:"familiar" validate:"required"`
}

// Validate implements validation.Validatable.
func (r RateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(
			string(models.StatusUnknown), string(models.StatusFamiliar))),
	)
}

// InputRequest is the request body for PUT /dictation/input.
type InputRequest struct {
	Input string `json:"input" example:"apple"`
}

// Validate implements validation.Validatable.
func (r InputRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Input, validation.RuneLength(0, maxInputLen)),
	)
}

// ImportResponse is returned after a successful import.
type ImportResponse struct {
	Imported int   `json:"imported" example:"5" validate:"required"`
	State    State `json:"state" validate:"required"`
}

// WordListResponse wraps a word listing.
type WordListResponse struct {
	Words []models.Word `json:"words" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}
