package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	taleweave "github.com/taleweave/taleweave/src"
)

type startRequest struct {
	GenreID  string `json:"genreId"`
	Language string `json:"language"`
}

type choiceRequest struct {
	Choice string `json:"choice"`
}

// sessionResponse is the state payload plus transient flags the client polls
// for.
type sessionResponse struct {
	taleweave.SessionState
	Generating bool `json:"generating"`
}

func (ui *GameUI) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, taleweave.Genres())
}

func (ui *GameUI) handleGetSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	state := eng.State()
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionState: state,
		Generating:   ui.generating(state.ID, eng),
	})
}

// handleStartSession locks in a genre and kicks off the opening turn. The
// response is immediate; the client follows progress over the websocket and
// polls the session until it settles.
func (ui *GameUI) handleStartSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.GenreID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("genre is required"))
		return
	}
	if _, ok := taleweave.GenreByID(req.GenreID); !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown genre %q", req.GenreID))
		return
	}
	if ui.generating(eng.ID(), eng) {
		writeError(w, http.StatusConflict, taleweave.ErrGenerationInProgress)
		return
	}

	ui.runGeneration(eng, "start", func() error {
		return eng.StartSession(context.Background(), req.GenreID, req.Language)
	})
	writeJSON(w, http.StatusAccepted, sessionResponse{SessionState: eng.State(), Generating: true})
}

func (ui *GameUI) handleChoice(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	state := eng.State()
	if state.Phase != taleweave.PhasePlaying {
		writeError(w, http.StatusConflict, fmt.Errorf("session is in phase %q", state.Phase))
		return
	}
	valid := false
	for _, c := range state.Choices {
		if c == req.Choice {
			valid = true
			break
		}
	}
	if !valid {
		writeError(w, http.StatusBadRequest, fmt.Errorf("choice is not one of the offered choices"))
		return
	}
	if ui.generating(eng.ID(), eng) {
		writeError(w, http.StatusConflict, taleweave.ErrGenerationInProgress)
		return
	}

	ui.runGeneration(eng, "choice", func() error {
		return eng.SelectChoice(context.Background(), req.Choice)
	})
	writeJSON(w, http.StatusAccepted, sessionResponse{SessionState: eng.State(), Generating: true})
}

func (ui *GameUI) handleRetry(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	if eng.State().LastError == "" {
		writeError(w, http.StatusConflict, fmt.Errorf("nothing to retry"))
		return
	}
	if ui.generating(eng.ID(), eng) {
		writeError(w, http.StatusConflict, taleweave.ErrGenerationInProgress)
		return
	}
	ui.runGeneration(eng, "retry", func() error {
		return eng.Retry(context.Background())
	})
	writeJSON(w, http.StatusAccepted, sessionResponse{SessionState: eng.State(), Generating: true})
}

func (ui *GameUI) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	if err := eng.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	ui.dropEngine(eng.ID())
	w.WriteHeader(http.StatusNoContent)
}

// handleExport renders the finished story as a PDF storybook.
func (ui *GameUI) handleExport(w http.ResponseWriter, r *http.Request) {
	eng, ok := ui.sessionEngine(w, r)
	if !ok {
		return
	}
	state := eng.State()
	if state.Phase != taleweave.PhaseEpilogue {
		writeError(w, http.StatusConflict, fmt.Errorf("story is not finished"))
		return
	}
	if ui.storybook == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("export is not configured"))
		return
	}
	pdf, err := ui.storybook.Compile(state)
	if err != nil {
		log.Error().Err(err).Str("session", state.ID).Msg("compiling storybook")
		writeError(w, http.StatusInternalServerError, fmt.Errorf("compiling storybook: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="storybook.pdf"`)
	w.Write(pdf)
}

// runGeneration starts one engine operation in the background. The engine
// rejects overlapping generations itself; the pending flag covers the gap
// before the goroutine reaches it.
func (ui *GameUI) runGeneration(eng *taleweave.Engine, op string, fn func() error) {
	sessionID := eng.ID()
	ui.setPending(sessionID, true)
	go func() {
		defer ui.setPending(sessionID, false)
		if err := fn(); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Str("op", op).Msg("generation failed")
		}
	}()
}

// sessionEngine resolves the request's engine from the session cookie.
func (ui *GameUI) sessionEngine(w http.ResponseWriter, r *http.Request) (*taleweave.Engine, bool) {
	cookie, err := r.Cookie("session_id")
	if err != nil || !isValidSession(cookie.Value) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no session"))
		return nil, false
	}
	return ui.engineFor(cookie.Value), true
}
