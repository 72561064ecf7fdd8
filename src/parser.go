package taleweave

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// placeholderNarrative stands in when a payload parses but carries no story
// text at all.
const placeholderNarrative = "The story continues..."

// genericChoices is the last-resort choice set when no choices survive
// repair. The player can always keep playing.
var genericChoices = []string{
	"Continue onward.",
	"Take a different approach.",
	"Stop and take stock of the situation.",
}

// storyPayload decodes each field independently so one malformed field does
// not discard the others.
type storyPayload struct {
	Narrative   json.RawMessage `json:"narrative"`
	ImagePrompt json.RawMessage `json:"imagePrompt"`
	Choices     json.RawMessage `json:"choices"`
}

// ParseStoryResponse turns raw model output into a GenerationResult. It is
// total: every input produces a playable result. Repair stages run in order
// of increasing aggressiveness and the first one that yields story text
// wins. The second return reports whether the last-resort salvage stage
// ran; the caller folds it into the session's fallback flag.
func ParseStoryResponse(raw string) (GenerationResult, bool) {
	body := extractObject(stripCodeFence(raw))

	if res, ok := parseStrict(body); ok {
		parserStage.WithLabelValues("strict").Inc()
		return res, false
	}
	if res, ok := parseStrict(fixJSON(body)); ok {
		parserStage.WithLabelValues("brace_repair").Inc()
		return res, false
	}
	if res, ok := extractFields(body); ok {
		parserStage.WithLabelValues("field_extraction").Inc()
		return res, false
	}
	if res, ok := parseStrict(escapeInnerQuotes(body)); ok {
		parserStage.WithLabelValues("escape_repair").Inc()
		return res, false
	}
	parserStage.WithLabelValues("fallback").Inc()
	return fallbackResult(raw), true
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	s = s[start+3:]
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine == "" || isFenceTag(firstLine) {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// extractObject returns the first top-level {...} block, tracking strings
// and escapes so braces inside values do not confuse the depth count. When
// no balanced close exists the tail from the first brace is returned and
// later stages deal with it.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// fixJSON closes unterminated strings and appends the closers for any
// unbalanced braces and brackets. It repairs truncated output, not invalid
// output.
func fixJSON(s string) string {
	var stack []byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func parseStrict(body string) (GenerationResult, bool) {
	var payload storyPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return GenerationResult{}, false
	}
	var res GenerationResult
	var narrative, imagePrompt string
	if json.Unmarshal(payload.Narrative, &narrative) == nil {
		res.Narrative = strings.TrimSpace(narrative)
	}
	if json.Unmarshal(payload.ImagePrompt, &imagePrompt) == nil {
		res.ImagePrompt = strings.TrimSpace(imagePrompt)
	}
	var choices []string
	if json.Unmarshal(payload.Choices, &choices) == nil {
		res.Choices = normalizeChoices(choices)
	}
	if res.Narrative == "" {
		res.Narrative = placeholderNarrative
	}
	return res, true
}

// extractFields pulls each field out of broken JSON by scanning for its key
// and reading the value up to a structural boundary. Unescaped quotes inside
// a value do not terminate it unless they sit right before a delimiter,
// which is the best a repair pass can do without a grammar.
func extractFields(body string) (GenerationResult, bool) {
	var res GenerationResult
	narrative, ok := extractStringField(body, "narrative")
	if !ok {
		return GenerationResult{}, false
	}
	res.Narrative = narrative
	if res.Narrative == "" {
		res.Narrative = placeholderNarrative
	}
	if v, ok := extractStringField(body, "imagePrompt"); ok {
		res.ImagePrompt = v
	}
	res.Choices = normalizeChoices(extractStringArray(body, "choices"))
	return res, true
}

// extractStringField finds `"key": "value"` and returns the unescaped value.
// A quote inside the value only closes it when followed by a comma that
// starts the next key, a closing brace or bracket, or end of input.
func extractStringField(s, key string) (string, bool) {
	start, ok := findValueStart(s, key)
	if !ok || start >= len(s) || s[start] != '"' {
		return "", false
	}
	start++
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			if isValueBoundary(s, i+1) {
				return unescapeValue(s[start:i]), true
			}
		}
	}
	return unescapeValue(s[start:]), true
}

// extractStringArray collects the quoted strings of `"key": [...]`.
func extractStringArray(s, key string) []string {
	start, ok := findValueStart(s, key)
	if !ok || start >= len(s) || s[start] != '[' {
		return nil
	}
	var out []string
	i := start + 1
	for i < len(s) && s[i] != ']' {
		if s[i] != '"' {
			i++
			continue
		}
		vStart := i + 1
		j := vStart
		for j < len(s) {
			if s[j] == '\\' {
				j += 2
				continue
			}
			if s[j] == '"' && isArrayBoundary(s, j+1) {
				break
			}
			j++
		}
		if j >= len(s) {
			out = append(out, unescapeValue(s[vStart:]))
			break
		}
		out = append(out, unescapeValue(s[vStart:j]))
		i = j + 1
	}
	return out
}

// findValueStart locates the first non-space byte after `"key":`.
func findValueStart(s, key string) (int, bool) {
	idx := strings.Index(s, `"`+key+`"`)
	if idx == -1 {
		return 0, false
	}
	i := idx + len(key) + 2
	for i < len(s) && s[i] != ':' {
		i++
	}
	if i >= len(s) {
		return 0, false
	}
	i++
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i, i < len(s)
}

// isValueBoundary reports whether position i (just past a quote) ends a
// field value: closing brace/bracket, end of input, or a comma leading into
// the next quoted key.
func isValueBoundary(s string, i int) bool {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) || s[i] == '}' || s[i] == ']' {
		return true
	}
	if s[i] != ',' {
		return false
	}
	i++
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i < len(s) && s[i] == '"'
}

// isArrayBoundary is the same idea inside an array: comma or closing
// bracket.
func isArrayBoundary(s string, i int) bool {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i >= len(s) || s[i] == ',' || s[i] == ']'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func unescapeValue(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t", `\\`, `\`)
	return strings.TrimSpace(r.Replace(s))
}

// escapeInnerQuotes rewrites the body so quotes inside string values become
// escaped, then the result can go through the strict parser again. A quote
// is treated as a closer only when the next non-space byte is structural.
func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			if isClosingQuote(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isClosingQuote(s string, i int) bool {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) {
		return true
	}
	switch s[i] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

// fallbackResult salvages what it can from hopeless output: strip the JSON
// scaffolding, keep the prose, cap the length, and hand the player generic
// choices so the story is never stuck.
func fallbackResult(raw string) GenerationResult {
	text := stripCodeFence(raw)
	text = strings.NewReplacer("{", " ", "}", " ", "[", " ", "]", " ", `"`, " ", `\n`, " ").Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 600 {
		cut := strings.LastIndexByte(text[:600], ' ')
		if cut < 200 {
			// No usable space to break on; back up to a rune boundary so
			// the cut never splits a multibyte character.
			cut = 600
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		text = text[:cut] + "..."
	}
	if text == "" {
		text = placeholderNarrative
	}
	return GenerationResult{
		Narrative: text,
		Choices:   append([]string(nil), genericChoices...),
	}
}

// normalizeChoices trims entries, drops empties, and clamps to three.
func normalizeChoices(choices []string) []string {
	out := make([]string, 0, 3)
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
		if len(out) == 3 {
			break
		}
	}
	return out
}
