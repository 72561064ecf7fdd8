package taleweave

// MaxTurns is the fixed length of a story: ten turns, then the epilogue.
const MaxTurns = 10

// Phase identifies where a session is in its lifecycle.
type Phase string

const (
	PhaseMenu     Phase = "menu"
	PhaseLoading  Phase = "loading"
	PhasePlaying  Phase = "playing"
	PhaseEpilogue Phase = "epilogue"
)

// TurnRecord is one completed turn, immutable once appended to history.
type TurnRecord struct {
	TurnNumber int     `json:"turnNumber"`
	Narrative  string  `json:"narrative"`
	Image      *string `json:"image"`
	ChoiceMade *string `json:"choiceMade"`
}

// SessionState is the single source of truth for an in-progress story.
// Narrative, Image and Choices hold the current (not yet historical) turn
// content; they move into History when the player picks a choice.
type SessionState struct {
	ID             string       `json:"id"`
	CurrentTurn    int          `json:"currentTurn"`
	MaxTurns       int          `json:"maxTurns"`
	Genre          string       `json:"genre"`
	ArtStylePrompt string       `json:"artStylePrompt"`
	AccentColor    string       `json:"accentColor"`
	Language       string       `json:"language"`
	Phase          Phase        `json:"phase"`
	History        []TurnRecord `json:"history"`
	Narrative      string       `json:"narrative"`
	Image          string       `json:"image,omitempty"`
	Choices        []string     `json:"choices"`
	UsedFallback   bool         `json:"usedFallback"`
	LastError      string       `json:"lastError,omitempty"`
}

// IsFinalTurn reports whether the session is on its last story turn.
func (s *SessionState) IsFinalTurn() bool {
	return s.CurrentTurn >= s.MaxTurns
}

// GenerationResult is the parsed outcome of one text-generation call.
type GenerationResult struct {
	Narrative    string   `json:"narrative"`
	ImagePrompt  string   `json:"imagePrompt"`
	Choices      []string `json:"choices"`
	UsedFallback bool     `json:"usedFallback"`
}

// GenreProfile is a static genre entry. Selecting a genre copies its
// ArtStylePrompt and AccentColor into the session; after that the session
// never references the table again.
type GenreProfile struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	ArtStylePrompt string `json:"artStylePrompt"`
	AccentColor    string `json:"accentColor"`
}

// Progressor receives human-readable progress updates while a generation
// cycle is running. The HTTP layer streams these over a websocket; tests and
// the CLI can ignore them.
type Progressor interface {
	UpdateOutput(message string)
}

type nullProgressor struct{}

func (nullProgressor) UpdateOutput(string) {}
