package ui

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket streams progress messages for the request's session. Past
// messages are replayed first so a client that reconnects mid-generation
// still sees the whole sequence.
func (ui *GameUI) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session_id")
	if err != nil || !isValidSession(cookie.Value) {
		http.Error(w, "No session found", http.StatusBadRequest)
		return
	}
	sessionID := cookie.Value

	// Materializes the engine and its progress feed if needed.
	ui.engineFor(sessionID)
	progress := ui.progressFor(sessionID)
	if progress == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	updates, replay := progress.Subscribe()
	defer progress.Unsubscribe(updates)

	for _, msg := range replay {
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Str("session", sessionID).Msg("replay write failed")
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("session", sessionID).Msg("websocket closed")
				}
				return
			}
			if messageType == websocket.CloseMessage {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
