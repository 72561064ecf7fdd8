package taleweave

import (
	"fmt"
	"strings"
)

// pacingDirectives steer the dramatic arc across the ten turns. Turn 7 is
// the climax; everything after winds down toward the epilogue.
var pacingDirectives = map[int]string{
	1:  "Open the story. Establish the protagonist, the setting, and a hook that pulls the reader in.",
	2:  "Develop the world. Introduce a complication or a character who matters later.",
	3:  "Raise the stakes. The protagonist commits to a course of action.",
	4:  "Deepen the conflict. Something the protagonist believed turns out to be wrong.",
	5:  "A setback or revelation. The easy path closes.",
	6:  "Build toward the climax. Tension should be near its peak.",
	7:  "This is the climax. The central conflict comes to a head in a dramatic confrontation.",
	8:  "The immediate aftermath. Show the cost and consequences of the climax.",
	9:  "Begin resolving the remaining threads. The end is in sight.",
	10: "Write the epilogue. Resolve the story completely and give the protagonist a definitive ending.",
}

const storyJSONDirective = `Respond with a single JSON object and nothing else. No prose before or
after it, no markdown fences. The object has exactly these fields:
{
  "narrative": "2-4 paragraphs of story text",
  "imagePrompt": "one sentence visual description of the current scene",
  "choices": ["first choice", "second choice", "third choice"]
}`

const epilogueChoicesDirective = `This is the final turn. The "choices" array must be empty: []. The
narrative must bring the story to a complete and satisfying close.`

// PacingDirective returns the arc guidance for the given turn, or an empty
// string outside 1..MaxTurns.
func PacingDirective(turn int) string {
	return pacingDirectives[turn]
}

// BuildStoryPrompt assembles the complete prompt for one turn. It is a pure
// function of the session state: the same state always yields the same
// prompt, which keeps retries reproducible.
func BuildStoryPrompt(state SessionState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are narrating an interactive %s story told over %d turns.\n",
		state.Genre, state.MaxTurns)
	fmt.Fprintf(&b, "Illustrations for this story use the art style: %s\n", state.ArtStylePrompt)
	b.WriteString("The imagePrompt field must begin with that art style description.\n")
	if state.Language != "" {
		fmt.Fprintf(&b, "Write the narrative and choices in %s.\n", state.Language)
	}
	b.WriteString("\n")

	if len(state.History) == 0 {
		b.WriteString("This is the beginning of the story. There is no history yet.\n")
	} else {
		b.WriteString("The story so far:\n\n")
		for _, rec := range state.History {
			fmt.Fprintf(&b, "--- Turn %d ---\n%s\n", rec.TurnNumber, rec.Narrative)
			if rec.ChoiceMade != nil {
				fmt.Fprintf(&b, "The reader chose: %q\n", *rec.ChoiceMade)
			}
			b.WriteString("\n")
		}
		if last := state.History[len(state.History)-1]; last.ChoiceMade != nil {
			fmt.Fprintf(&b, "Continue the story directly from the reader's last choice, %q. The next scene must be an immediate consequence of that choice.\n\n", *last.ChoiceMade)
		}
	}

	fmt.Fprintf(&b, "Now write turn %d of %d.\n", state.CurrentTurn, state.MaxTurns)
	if d := PacingDirective(state.CurrentTurn); d != "" {
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if state.IsFinalTurn() {
		b.WriteString(epilogueChoicesDirective)
	} else {
		b.WriteString(`Offer exactly three distinct choices for what the protagonist does next.
Each choice must be a single sentence in the second person.`)
	}
	b.WriteString("\n\n")
	b.WriteString(storyJSONDirective)

	return b.String()
}
