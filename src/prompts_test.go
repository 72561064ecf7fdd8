package taleweave

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func noirState() SessionState {
	return SessionState{
		ID:             "test",
		CurrentTurn:    1,
		MaxTurns:       MaxTurns,
		Genre:          "Noir Mystery",
		ArtStylePrompt: "Black and white, high contrast ink style, heavy shadows, 1940s film noir atmosphere.",
		Phase:          PhaseLoading,
	}
}

func TestBuildStoryPromptOpening(t *testing.T) {
	state := noirState()
	prompt := BuildStoryPrompt(state)

	assert.Contains(t, prompt, "Noir Mystery")
	assert.Contains(t, prompt, "beginning of the story")
	assert.Contains(t, prompt, "turn 1 of 10")
	assert.Contains(t, prompt, "exactly three distinct choices")
	assert.Contains(t, prompt, `"narrative"`)
	assert.NotContains(t, prompt, "The story so far")
}

func TestBuildStoryPromptDeterministic(t *testing.T) {
	state := noirState()
	assert.Equal(t, BuildStoryPrompt(state), BuildStoryPrompt(state))
}

func TestBuildStoryPromptContinuation(t *testing.T) {
	state := noirState()
	choice := "Follow the informant into the alley."
	state.History = []TurnRecord{
		{TurnNumber: 1, Narrative: "The office smelled of old smoke.", ChoiceMade: &choice},
	}
	state.CurrentTurn = 2

	prompt := BuildStoryPrompt(state)
	assert.Contains(t, prompt, "The story so far")
	assert.Contains(t, prompt, "The office smelled of old smoke.")
	assert.Contains(t, prompt, `"Follow the informant into the alley."`)
	assert.Contains(t, prompt, "immediate consequence of that choice")
	assert.NotContains(t, prompt, "beginning of the story")
}

func TestBuildStoryPromptRendersFullHistory(t *testing.T) {
	state := noirState()
	for i := 1; i <= 6; i++ {
		c := "choice"
		state.History = append(state.History, TurnRecord{TurnNumber: i, Narrative: "scene", ChoiceMade: &c})
	}
	state.CurrentTurn = 7

	prompt := BuildStoryPrompt(state)
	for i := 1; i <= 6; i++ {
		assert.Contains(t, prompt, "--- Turn", "turn %d should be rendered", i)
	}
	assert.Contains(t, prompt, "--- Turn 6 ---")
	assert.Contains(t, prompt, "climax")
}

func TestBuildStoryPromptFinalTurn(t *testing.T) {
	state := noirState()
	state.CurrentTurn = MaxTurns

	prompt := BuildStoryPrompt(state)
	assert.Contains(t, prompt, "final turn")
	assert.Contains(t, prompt, `must be empty`)
	assert.NotContains(t, prompt, "exactly three distinct choices")
}

func TestBuildStoryPromptLanguage(t *testing.T) {
	state := noirState()
	state.Language = "German"
	assert.Contains(t, BuildStoryPrompt(state), "in German")
}

func TestPacingDirective(t *testing.T) {
	for turn := 1; turn <= MaxTurns; turn++ {
		assert.NotEmpty(t, PacingDirective(turn), "turn %d", turn)
	}
	assert.Contains(t, PacingDirective(7), "climax")
	assert.Empty(t, PacingDirective(0))
	assert.Empty(t, PacingDirective(11))
}
