package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	ctrl *session.Controller
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *session.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// command adapts a session command to a handler that returns the new state.
func (h *Handler) command(op string, fn func() (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap, err := fn()
		if err != nil {
			writeError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// confirmed reports whether a destructive request carries ?confirm=true.
func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}

// State handles GET /api/state.
//
//	@Summary		Get the current session state
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	State
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// ListWords handles GET /api/words.
//
//	@Summary		List words in collection order
//	@Tags			words
//	@Produce		json
//	@Param			filter	query		string	false	"Word filter"	Enums(all, unknown)
//	@Success		200		{object}	WordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/words [get]
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	filter := session.FilterAll
	if q := r.URL.Query().Get("filter"); q != "" {
		f, err := session.ParseFilter(q)
		if err != nil {
			writeError(w, "list words", err)
			return
		}
		filter = f
	}
	words := session.Apply(h.ctrl.Store().Words(), filter)
	if words == nil {
		words = []models.Word{}
	}
	writeJSON(w, http.StatusOK, WordListResponse{Words: words, Total: len(words)})
}

// Stats handles GET /api/stats.
//
//	@Summary		Count words per status
//	@Tags			words
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Store().Stats())
}

// Shuffle handles POST /api/shuffle.
//
//	@Summary		Shuffle the collection and restart from the first word
//	@Tags			words
//	@Produce		json
//	@Success		200	{object}	State
//	@Security		BearerAuth
//	@Router			/shuffle [post]
func (h *Handler) Shuffle(w http.ResponseWriter, r *http.Request) {
	h.command("shuffle", h.ctrl.Shuffle)(w, r)
}

// Reset handles POST /api/reset?confirm=true.
//
//	@Summary		Mark every word unknown
//	@Tags			words
//	@Produce		json
//	@Param			confirm	query		bool	true	"Must be true"
//	@Success		200		{object}	State
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, "reset", fmt.Errorf("%w: reset needs confirm=true", apperr.ErrConfirmationRequired))
		return
	}
	h.command("reset", h.ctrl.ResetProgress)(w, r)
}

// Clear handles DELETE /api/words?confirm=true.
//
//	@Summary		Delete every word and the persisted data
//	@Tags			words
//	@Produce		json
//	@Param			confirm	query		bool	true	"Must be true"
//	@Success		200		{object}	State
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/words [delete]
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeError(w, "clear", fmt.Errorf("%w: clear needs confirm=true", apperr.ErrConfirmationRequired))
		return
	}
	h.command("clear", h.ctrl.Clear)(w, r)
}

// ToggleWord handles POST /api/words/{id}/toggle.
//
//	@Summary		Toggle a word between familiar and unknown
//	@Tags			words
//	@Produce		json
//	@Param			id	path		int	true	"Word id"
//	@Success		200	{object}	State
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/words/{id}/toggle [post]
func (h *Handler) ToggleWord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid word id"))
		return
	}
	h.command("toggle word", func() (session.Snapshot, error) {
		return h.ctrl.ToggleStatus(id)
	})(w, r)
}

// SetMode handles PUT /api/mode.
//
//	@Summary		Switch the study mode
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ModeRequest	true	"Mode"
//	@Success		200		{object}	State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mode [put]
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command("set mode", func() (session.Snapshot, error) {
		return h.ctrl.SetMode(session.Mode(req.Mode))
	})(w, r)
}

// SetFilter handles PUT /api/filter.
//
//	@Summary		Show all words or only unknown ones
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FilterRequest	true	"Filter"
//	@Success		200		{object}	State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/filter [put]
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command("set filter", func() (session.Snapshot, error) {
		return h.ctrl.SetFilter(session.Filter(req.Filter))
	})(w, r)
}

// ToggleDirection handles POST /api/direction/toggle.
//
//	@Summary		Swap which side of a flashcard is shown first
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	State
//	@Security		BearerAuth
//	@Router			/direction/toggle [post]
func (h *Handler) ToggleDirection(w http.ResponseWriter, r *http.Request) {
	h.command("toggle direction", h.ctrl.ToggleDirection)(w, r)
}

// Flip handles POST /api/flip.
//
//	@Summary		Flip the current flashcard
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	State
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/flip [post]
func (h *Handler) Flip(w http.ResponseWriter, r *http.Request) {
	h.command("flip", h.ctrl.Flip)(w, r)
}

// Next handles POST /api/next.
//
//	@Summary		Move to the next word, wrapping around
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	State
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/next [post]
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.command("next", h.ctrl.Advance)(w, r)
}

// Prev handles POST /api/prev.
//
//	@Summary		Move to the previous word, wrapping around
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	State
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prev [post]
func (h *Handler) Prev(w http.ResponseWriter, r *http.Request) {
	h.command("prev", h.ctrl.Retreat)(w, r)
}

// Rate handles POST /api/rate.
//
//	@Summary		Rate the current word and move to the next one
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RateRequest	true	"Rating"
//	@Success		200		{object}	State
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rate [post]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command("rate", func() (session.Snapshot, error) {
		return h.ctrl.Rate(models.Status(req.Status))
	})(w, r)
}

// SetInput handles PUT /api/dictation/input.
//
//	@Summary		Replace the dictation answer
//	@Tags			dictation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InputRequest	true	"Typed answer"
//	@Success		200		{object}	State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dictation/input [put]
func (h *Handler) SetInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command("set input", func() (session.Snapshot, error) {
		return h.ctrl.SetInput(req.Input)
	})(w, r)
}

// Check handles POST /api/dictation/check.
//
//	@Summary		Check the dictation answer against the current term
//	@Tags			dictation
//	@Produce		json
//	@Success		200	{object}	State
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dictation/check [post]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	h.command("check", h.ctrl.Check)(w, r)
}

// Reveal handles POST /api/dictation/reveal.
//
//	@Summary		Reveal the answer after an incorrect check
//	@Tags			dictation
//	@Produce		json
//	@Success		200	{object}	State
//	@Security		BearerAuth
//	@Router			/dictation/reveal [post]
func (h *Handler) Reveal(w http.ResponseWriter, r *http.Request) {
	h.command("reveal", h.ctrl.Reveal)(w, r)
}

// Submit handles POST /api/dictation/submit.
//
//	@Summary		Check the answer, or advance when it is already correct
//	@Tags			dictation
//	@Produce		json
//	@Success		200	{object}	State
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dictation/submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.command("submit", h.ctrl.Submit)(w, r)
}
