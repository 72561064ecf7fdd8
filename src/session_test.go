package taleweave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const turnJSON = `{"narrative": "The fog rolled in off the bay.", "imagePrompt": "fog over a harbor", "choices": ["Check the docks", "Call it a night", "Follow the tail"]}`

func newTestEngine(text *fakeTextProvider, image *fakeImageProvider) (*Engine, *MemoryStore) {
	o := &Orchestrator{TextPrimary: text}
	if image != nil {
		o.ImagePrimary = image
	}
	store := NewMemoryStore()
	return NewEngine(o, store, nil), store
}

func TestStartSession(t *testing.T) {
	text := &fakeTextProvider{name: "fake", out: turnJSON}
	image := &fakeImageProvider{name: "img", ref: "data:image/png;base64,abc"}
	e, store := newTestEngine(text, image)

	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	state := e.State()
	assert.Equal(t, PhasePlaying, state.Phase)
	assert.Equal(t, 1, state.CurrentTurn)
	assert.Equal(t, "Noir Mystery", state.Genre)
	assert.Equal(t, "The fog rolled in off the bay.", state.Narrative)
	assert.Len(t, state.Choices, 3)
	assert.Equal(t, "data:image/png;base64,abc", state.Image)
	assert.Empty(t, state.History)

	// The settled turn must be persisted.
	saved, ok, err := store.Load(state.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhasePlaying, saved.Phase)

	// The image prompt must carry the locked art style.
	assert.Equal(t, 1, image.calls)
}

func TestStartSessionUnknownGenre(t *testing.T) {
	e, _ := newTestEngine(&fakeTextProvider{name: "fake", out: turnJSON}, nil)
	err := e.StartSession(context.Background(), "soap-opera", "")
	require.Error(t, err)
	assert.Equal(t, PhaseMenu, e.State().Phase)
}

func TestSelectChoiceAdvancesTurn(t *testing.T) {
	text := &fakeTextProvider{name: "fake", out: turnJSON}
	e, _ := newTestEngine(text, nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	require.NoError(t, e.SelectChoice(context.Background(), "Check the docks"))

	state := e.State()
	assert.Equal(t, 2, state.CurrentTurn)
	assert.Equal(t, PhasePlaying, state.Phase)
	require.Len(t, state.History, 1)
	rec := state.History[0]
	assert.Equal(t, 1, rec.TurnNumber)
	assert.Equal(t, "The fog rolled in off the bay.", rec.Narrative)
	require.NotNil(t, rec.ChoiceMade)
	assert.Equal(t, "Check the docks", *rec.ChoiceMade)
}

func TestSelectChoiceRejectsUnknown(t *testing.T) {
	e, _ := newTestEngine(&fakeTextProvider{name: "fake", out: turnJSON}, nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	err := e.SelectChoice(context.Background(), "Fly to the moon")
	require.Error(t, err)
	assert.Equal(t, 1, e.State().CurrentTurn)
	assert.Empty(t, e.State().History)
}

func TestFullStoryReachesEpilogue(t *testing.T) {
	text := &fakeTextProvider{name: "fake", out: turnJSON}
	e, _ := newTestEngine(text, nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	for turn := 1; turn < MaxTurns; turn++ {
		require.NoError(t, e.SelectChoice(context.Background(), e.State().Choices[0]))
	}

	state := e.State()
	assert.Equal(t, MaxTurns, state.CurrentTurn)
	assert.Equal(t, PhaseEpilogue, state.Phase)
	// The model offered choices on the final turn; they must be discarded.
	assert.Empty(t, state.Choices)
	assert.Len(t, state.History, MaxTurns-1)
}

func TestGenerationFailureAnchorsAndRetries(t *testing.T) {
	text := &fakeTextProvider{name: "fake", err: NewEmptyResultError("fake")}
	e, store := newTestEngine(text, nil)

	err := e.StartSession(context.Background(), "noir-mystery", "")
	require.Error(t, err)

	state := e.State()
	assert.Equal(t, PhaseMenu, state.Phase, "no settled turn yet, so the anchor is the menu")
	assert.NotEmpty(t, state.LastError)

	// The failed state is persisted so a reload shows the error banner.
	saved, ok, _ := store.Load(state.ID)
	require.True(t, ok)
	assert.NotEmpty(t, saved.LastError)

	text.err = nil
	text.out = turnJSON
	require.NoError(t, e.Retry(context.Background()))

	state = e.State()
	assert.Equal(t, PhasePlaying, state.Phase)
	assert.Empty(t, state.LastError)
	assert.Equal(t, 1, state.CurrentTurn)
}

func TestFailureMidStoryAnchorsToPlaying(t *testing.T) {
	text := &fakeTextProvider{name: "fake", out: turnJSON}
	e, _ := newTestEngine(text, nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	text.out = ""
	text.err = NewTimeoutError("fake", context.DeadlineExceeded)
	err := e.SelectChoice(context.Background(), "Check the docks")
	require.Error(t, err)

	state := e.State()
	assert.Equal(t, PhasePlaying, state.Phase)
	assert.NotEmpty(t, state.LastError)
	assert.Len(t, state.History, 1, "the committed choice survives the failure")
}

// reentrantProgressor calls back into the engine the moment a turn settles,
// while the generation cycle is still winding down.
type reentrantProgressor struct {
	eng    *Engine
	choice string
	fired  bool
	err    error
}

func (p *reentrantProgressor) UpdateOutput(msg string) {
	if p.fired || msg != "Turn ready." {
		return
	}
	p.fired = true
	p.err = p.eng.SelectChoice(context.Background(), p.choice)
}

func TestChoiceDuringGenerationIsRejected(t *testing.T) {
	text := &fakeTextProvider{name: "fake", out: turnJSON}
	p := &reentrantProgressor{choice: "Check the docks"}
	e := NewEngine(&Orchestrator{TextPrimary: text}, NewMemoryStore(), p)
	p.eng = e

	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))

	require.True(t, p.fired)
	assert.ErrorIs(t, p.err, ErrGenerationInProgress)

	// The overlapping choice must not have touched the session.
	state := e.State()
	assert.Equal(t, PhasePlaying, state.Phase)
	assert.Equal(t, 1, state.CurrentTurn)
	assert.Empty(t, state.History)
	assert.Empty(t, state.LastError)

	// Once the cycle has settled the same choice goes through.
	require.NoError(t, e.SelectChoice(context.Background(), "Check the docks"))
	assert.Equal(t, 2, e.State().CurrentTurn)
}

func TestRetryWithoutError(t *testing.T) {
	e, _ := newTestEngine(&fakeTextProvider{name: "fake", out: turnJSON}, nil)
	assert.Error(t, e.Retry(context.Background()))
}

func TestReset(t *testing.T) {
	e, store := newTestEngine(&fakeTextProvider{name: "fake", out: turnJSON}, nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))
	id := e.ID()

	require.NoError(t, e.Reset())

	state := e.State()
	assert.Equal(t, PhaseMenu, state.Phase)
	assert.Empty(t, state.History)
	assert.Empty(t, state.Narrative)
	_, ok, _ := store.Load(id)
	assert.False(t, ok)
}

func TestRestoreEngineRepairsLoadingPhase(t *testing.T) {
	state := SessionState{
		ID:          "abc",
		CurrentTurn: 3,
		MaxTurns:    MaxTurns,
		Phase:       PhaseLoading,
		Narrative:   "mid-story",
		History:     []TurnRecord{{TurnNumber: 1, Narrative: "opening"}},
	}
	e := RestoreEngine(state, &Orchestrator{}, NewMemoryStore(), nil)
	assert.Equal(t, PhasePlaying, e.State().Phase, "a restored session never resumes into loading")
}

func TestTextFallbackIsSurfaced(t *testing.T) {
	o := &Orchestrator{
		TextPrimary:   &fakeTextProvider{name: "a", err: NewEmptyResultError("a")},
		TextSecondary: &fakeTextProvider{name: "b", out: turnJSON},
	}
	e := NewEngine(o, NewMemoryStore(), nil)
	require.NoError(t, e.StartSession(context.Background(), "noir-mystery", ""))
	assert.True(t, e.State().UsedFallback)
}
