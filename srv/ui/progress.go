package ui

import (
	"sync"
	"time"
)

// WSMessage is one progress update pushed over the websocket.
type WSMessage struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionProgress collects progress messages for one session and fans them
// out to connected websockets. It satisfies the engine's progress interface,
// so engine internals never see a websocket. Messages are kept so a client
// that connects mid-generation can replay what it missed.
type SessionProgress struct {
	sessionID string

	mu          sync.RWMutex
	messages    []WSMessage
	subscribers map[chan WSMessage]struct{}
}

func NewSessionProgress(sessionID string) *SessionProgress {
	return &SessionProgress{
		sessionID:   sessionID,
		subscribers: make(map[chan WSMessage]struct{}),
	}
}

// UpdateOutput records a progress message and broadcasts it. A subscriber
// that cannot keep up loses messages rather than blocking generation.
func (p *SessionProgress) UpdateOutput(message string) {
	msg := WSMessage{
		Type:      "progress",
		SessionID: p.sessionID,
		Message:   message,
		Timestamp: time.Now(),
	}

	p.mu.Lock()
	p.messages = append(p.messages, msg)
	for ch := range p.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	p.mu.Unlock()
}

// Subscribe returns a channel of future messages plus a replay of everything
// sent so far. The caller must Unsubscribe when done.
func (p *SessionProgress) Subscribe() (chan WSMessage, []WSMessage) {
	ch := make(chan WSMessage, 32)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[ch] = struct{}{}
	replay := make([]WSMessage, len(p.messages))
	copy(replay, p.messages)
	return ch, replay
}

func (p *SessionProgress) Unsubscribe(ch chan WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subscribers[ch]; ok {
		delete(p.subscribers, ch)
		close(ch)
	}
}
