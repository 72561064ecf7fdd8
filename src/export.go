package taleweave

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StoryMarkdown renders the full story as a markdown document: title,
// every historical turn with the choice that followed it, then the current
// narrative (the epilogue, once the story is finished).
func StoryMarkdown(state SessionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# A %s Story\n\n", state.Genre)
	for _, rec := range state.History {
		fmt.Fprintf(&b, "## Turn %d\n\n%s\n\n", rec.TurnNumber, rec.Narrative)
		if rec.ChoiceMade != nil {
			fmt.Fprintf(&b, "*You chose: %s*\n\n", *rec.ChoiceMade)
		}
	}
	if state.Narrative != "" {
		if state.Phase == PhaseEpilogue {
			b.WriteString("## Epilogue\n\n")
		} else {
			fmt.Fprintf(&b, "## Turn %d\n\n", state.CurrentTurn)
		}
		b.WriteString(state.Narrative)
		b.WriteString("\n")
	}
	return b.String()
}

// SaveStory writes the story markdown and each turn's image reference under
// outputDir.
func SaveStory(state SessionState, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	storyPath := filepath.Join(outputDir, "Story.md")
	if err := os.WriteFile(storyPath, []byte(StoryMarkdown(state)), 0o644); err != nil {
		return fmt.Errorf("saving story: %w", err)
	}
	for _, rec := range state.History {
		if rec.Image == nil {
			continue
		}
		imgPath := filepath.Join(outputDir, fmt.Sprintf("Turn_%02d.txt", rec.TurnNumber))
		if err := os.WriteFile(imgPath, []byte(*rec.Image), 0o644); err != nil {
			return fmt.Errorf("saving turn image: %w", err)
		}
	}
	return nil
}
