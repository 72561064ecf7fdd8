package taleweave

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrGenerationInProgress rejects a second generation while one is running
// for the same session.
var ErrGenerationInProgress = errors.New("generation already in progress")

// Engine drives one story session through its turns. All methods are safe
// for concurrent use; generation itself is serialized per engine.
type Engine struct {
	mu         sync.Mutex
	state      SessionState
	generating bool

	orch     *Orchestrator
	store    SessionStore
	progress Progressor
}

// NewEngine creates an engine with a fresh, menu-phase session. A nil
// progressor is replaced with a no-op one.
func NewEngine(orch *Orchestrator, store SessionStore, progress Progressor) *Engine {
	if progress == nil {
		progress = nullProgressor{}
	}
	return &Engine{
		state: SessionState{
			ID:       uuid.New().String(),
			MaxTurns: MaxTurns,
			Phase:    PhaseMenu,
		},
		orch:     orch,
		store:    store,
		progress: progress,
	}
}

// RestoreEngine rebuilds an engine around a persisted session. Persisted
// state is only ever written after a settled transition, but a session in
// the loading phase is still repaired to its anchor so a restored game is
// never stuck on a spinner.
func RestoreEngine(state SessionState, orch *Orchestrator, store SessionStore, progress Progressor) *Engine {
	if progress == nil {
		progress = nullProgressor{}
	}
	if state.Phase == PhaseLoading {
		state.Phase = anchorPhase(state)
	}
	if state.MaxTurns == 0 {
		state.MaxTurns = MaxTurns
	}
	return &Engine{state: state, orch: orch, store: store, progress: progress}
}

// State returns a copy of the session, including its own copy of the
// history slice.
func (e *Engine) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyState(e.state)
}

// ID returns the session identifier.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ID
}

// Generating reports whether a generation cycle is currently running.
func (e *Engine) Generating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generating
}

// StartSession locks in a genre and generates the opening turn. Valid only
// from the menu phase.
func (e *Engine) StartSession(ctx context.Context, genreID, language string) error {
	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return ErrGenerationInProgress
	}
	if e.state.Phase != PhaseMenu {
		e.mu.Unlock()
		return fmt.Errorf("cannot start: session is in phase %q", e.state.Phase)
	}
	genre, ok := GenreByID(genreID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown genre %q", genreID)
	}
	e.state.Genre = genre.DisplayName
	e.state.ArtStylePrompt = genre.ArtStylePrompt
	e.state.AccentColor = genre.AccentColor
	e.state.Language = language
	e.state.CurrentTurn = 1
	e.state.Phase = PhaseLoading
	e.generating = true
	e.mu.Unlock()

	sessionsStarted.Inc()
	return e.generateTurn(ctx)
}

// SelectChoice commits the player's choice for the current turn and
// generates the next one. The choice must be one of the offered choices,
// compared exactly.
func (e *Engine) SelectChoice(ctx context.Context, choice string) error {
	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return ErrGenerationInProgress
	}
	if e.state.Phase != PhasePlaying {
		e.mu.Unlock()
		return fmt.Errorf("cannot choose: session is in phase %q", e.state.Phase)
	}
	if !containsChoice(e.state.Choices, choice) {
		e.mu.Unlock()
		return fmt.Errorf("choice %q is not one of the offered choices", choice)
	}

	rec := TurnRecord{
		TurnNumber: e.state.CurrentTurn,
		Narrative:  e.state.Narrative,
		ChoiceMade: &choice,
	}
	if e.state.Image != "" {
		img := e.state.Image
		rec.Image = &img
	}
	e.state.History = append(e.state.History, rec)
	e.state.CurrentTurn++
	e.state.Narrative = ""
	e.state.Image = ""
	e.state.Choices = nil
	e.state.Phase = PhaseLoading
	e.generating = true
	e.mu.Unlock()

	return e.generateTurn(ctx)
}

// Retry re-runs the failed generation for the current turn. The prompt is
// rebuilt from the same state, so a retry asks for the same turn again.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return ErrGenerationInProgress
	}
	if e.state.LastError == "" {
		e.mu.Unlock()
		return errors.New("nothing to retry")
	}
	e.state.LastError = ""
	e.state.Phase = PhaseLoading
	e.generating = true
	e.mu.Unlock()

	return e.generateTurn(ctx)
}

// Reset abandons the story and returns to the menu. The persisted session
// is removed.
func (e *Engine) Reset() error {
	e.mu.Lock()
	id := e.state.ID
	e.state = SessionState{
		ID:       id,
		MaxTurns: MaxTurns,
		Phase:    PhaseMenu,
	}
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.Delete(id); err != nil {
			return fmt.Errorf("removing persisted session: %w", err)
		}
	}
	return nil
}

// generateTurn runs one full generation cycle: build the prompt, call the
// text providers, parse, optionally illustrate, then settle and persist.
// On failure the session returns to its anchor phase with the error
// recorded, and the player can retry. The caller holds the generation slot,
// claimed in the same critical section that validated the transition;
// generateTurn releases it once the cycle settles.
func (e *Engine) generateTurn(ctx context.Context) error {
	e.mu.Lock()
	prompt := BuildStoryPrompt(e.state)
	turn := e.state.CurrentTurn
	style := e.state.ArtStylePrompt
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.generating = false
		e.mu.Unlock()
	}()

	e.progress.UpdateOutput(fmt.Sprintf("Writing turn %d of %d...", turn, MaxTurns))
	raw, textFallback, err := e.orch.GenerateText(ctx, prompt)
	if err != nil {
		e.failGeneration(err)
		return err
	}

	res, salvaged := ParseStoryResponse(raw)
	res.UsedFallback = textFallback || salvaged

	var image string
	if res.ImagePrompt != "" {
		e.progress.UpdateOutput("Illustrating the scene...")
		image, _ = e.orch.GenerateImage(ctx, res.ImagePrompt, style)
	}

	e.mu.Lock()
	e.state.Narrative = res.Narrative
	e.state.Image = image
	e.state.UsedFallback = res.UsedFallback
	e.state.LastError = ""
	if e.state.IsFinalTurn() {
		e.state.Choices = nil
		e.state.Phase = PhaseEpilogue
		sessionsFinished.Inc()
	} else {
		e.state.Choices = res.Choices
		if len(e.state.Choices) == 0 {
			e.state.Choices = append([]string(nil), genericChoices...)
		}
		e.state.Phase = PhasePlaying
	}
	state := copyState(e.state)
	e.mu.Unlock()

	e.progress.UpdateOutput("Turn ready.")
	e.persist(state)
	return nil
}

// failGeneration anchors the session to its last settled phase and records
// the error for display.
func (e *Engine) failGeneration(err error) {
	e.mu.Lock()
	e.state.Phase = anchorPhase(e.state)
	e.state.LastError = err.Error()
	state := copyState(e.state)
	e.mu.Unlock()

	e.progress.UpdateOutput("Generation failed: " + err.Error())
	e.persist(state)
}

func (e *Engine) persist(state SessionState) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(state); err != nil {
		log.Error().Err(err).Str("session", state.ID).Msg("persisting session failed")
	}
}

// anchorPhase is the phase a session settles back to when generation cannot
// complete: the menu before the first turn exists, otherwise wherever the
// story last stood.
func anchorPhase(state SessionState) Phase {
	if state.Narrative != "" {
		if state.IsFinalTurn() {
			return PhaseEpilogue
		}
		return PhasePlaying
	}
	if len(state.History) > 0 {
		return PhasePlaying
	}
	return PhaseMenu
}

func containsChoice(choices []string, choice string) bool {
	for _, c := range choices {
		if c == choice {
			return true
		}
	}
	return false
}

func copyState(state SessionState) SessionState {
	out := state
	out.History = append([]TurnRecord(nil), state.History...)
	out.Choices = append([]string(nil), state.Choices...)
	return out
}
