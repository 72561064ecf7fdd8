package taleweave

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoryResponseCleanJSON(t *testing.T) {
	raw := `{"narrative": "The rain fell.", "imagePrompt": "a wet street", "choices": ["Go left", "Go right", "Wait"]}`
	res, salvaged := ParseStoryResponse(raw)
	assert.Equal(t, "The rain fell.", res.Narrative)
	assert.Equal(t, "a wet street", res.ImagePrompt)
	assert.Equal(t, []string{"Go left", "Go right", "Wait"}, res.Choices)
	assert.False(t, salvaged)
	assert.False(t, res.UsedFallback)
}

func TestParseStoryResponseFencedJSON(t *testing.T) {
	raw := "Here is the turn:\n```json\n{\"narrative\": \"A door creaks.\", \"imagePrompt\": \"an old door\", \"choices\": [\"Open it\"]}\n```\nEnjoy!"
	res, _ := ParseStoryResponse(raw)
	assert.Equal(t, "A door creaks.", res.Narrative)
	assert.Equal(t, []string{"Open it"}, res.Choices)
}

func TestParseStoryResponseSurroundingProse(t *testing.T) {
	raw := `Sure! Here's turn 3: {"narrative": "Dawn broke.", "imagePrompt": "sunrise", "choices": ["Ride on"]} Hope you like it.`
	res, _ := ParseStoryResponse(raw)
	assert.Equal(t, "Dawn broke.", res.Narrative)
}

func TestParseStoryResponseTruncated(t *testing.T) {
	// Output cut off mid-generation: unterminated string, unclosed braces.
	raw := `{"narrative": "The bridge swayed in the wind", "imagePrompt": "a rope bridge`
	res, _ := ParseStoryResponse(raw)
	assert.Equal(t, "The bridge swayed in the wind", res.Narrative)
	assert.Equal(t, "a rope bridge", res.ImagePrompt)
}

func TestParseStoryResponseUnescapedQuotes(t *testing.T) {
	raw := `{"narrative": "She said "run" and he did.", "imagePrompt": "two figures running", "choices": ["Follow them", "Stay put"]}`
	res, _ := ParseStoryResponse(raw)
	require.NotEmpty(t, res.Narrative)
	assert.Contains(t, res.Narrative, "and he did")
	assert.Equal(t, "two figures running", res.ImagePrompt)
	assert.Len(t, res.Choices, 2)
}

func TestParseStoryResponseGarbage(t *testing.T) {
	raw := "I cannot produce JSON today, but once upon a time there was a fox."
	res, salvaged := ParseStoryResponse(raw)
	assert.True(t, salvaged)
	assert.False(t, res.UsedFallback, "the caller owns the fallback flag")
	assert.Contains(t, res.Narrative, "fox")
	assert.Equal(t, genericChoices, res.Choices)
}

func TestParseStoryResponseEmpty(t *testing.T) {
	res, salvaged := ParseStoryResponse("")
	assert.True(t, salvaged)
	assert.Equal(t, placeholderNarrative, res.Narrative)
	assert.Len(t, res.Choices, 3)
}

func TestParseStoryResponseFallbackTruncates(t *testing.T) {
	raw := strings.Repeat("all work and no play ", 100)
	res, salvaged := ParseStoryResponse(raw)
	assert.True(t, salvaged)
	assert.LessOrEqual(t, len(res.Narrative), 620)
	assert.True(t, strings.HasSuffix(res.Narrative, "..."))
}

func TestParseStoryResponseFallbackCutsOnRuneBoundary(t *testing.T) {
	// Spaceless multibyte prose forces the hard cut; it must not split a rune.
	raw := "I:" + strings.Repeat("物語は続く。", 60)
	res, salvaged := ParseStoryResponse(raw)
	assert.True(t, salvaged)
	assert.True(t, utf8.ValidString(res.Narrative))
	assert.True(t, strings.HasSuffix(res.Narrative, "..."))
}

func TestParseStoryResponseNormalization(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    GenerationResult
		choices int
	}{
		{
			name:    "choices clamped to three",
			raw:     `{"narrative": "n", "choices": ["a", "b", "c", "d", "e"]}`,
			choices: 3,
		},
		{
			name:    "empty choices dropped",
			raw:     `{"narrative": "n", "choices": ["a", "  ", "b"]}`,
			choices: 2,
		},
		{
			name:    "choices not an array",
			raw:     `{"narrative": "n", "choices": "go left"}`,
			choices: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := ParseStoryResponse(tt.raw)
			assert.Equal(t, "n", res.Narrative)
			assert.Len(t, res.Choices, tt.choices)
		})
	}
}

func TestParseStoryResponseMissingNarrative(t *testing.T) {
	res, _ := ParseStoryResponse(`{"imagePrompt": "a tower", "choices": ["Climb"]}`)
	assert.Equal(t, placeholderNarrative, res.Narrative)
	assert.Equal(t, "a tower", res.ImagePrompt)
}

func TestFixJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": "b"}`, `{"a": "b"}`},
		{`{"a": "b"`, `{"a": "b"}`},
		{`{"a": ["x", "y"`, `{"a": ["x", "y"]}`},
		{`{"a": "unterminated`, `{"a": "unterminated"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fixJSON(tt.in))
	}
}

func TestExtractObject(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractObject(`noise {"a": 1} trailing`))
	assert.Equal(t, `{"a": {"b": 2}}`, extractObject(`{"a": {"b": 2}} extra`))
	assert.Equal(t, `{"a": "}"}`, extractObject(`{"a": "}"} x`))
}
