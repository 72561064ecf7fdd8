package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taleweave "github.com/taleweave/taleweave/src"
)

const turnJSON = `{"narrative": "The fog rolled in.", "imagePrompt": "", "choices": ["Check the docks", "Call it a night", "Follow the tail"]}`

type fakeTextProvider struct {
	out string
}

func (f *fakeTextProvider) Name() string { return "fake" }

func (f *fakeTextProvider) Generate(context.Context, string) (string, error) {
	return f.out, nil
}

func newTestUI() *GameUI {
	orch := &taleweave.Orchestrator{TextPrimary: &fakeTextProvider{out: turnJSON}}
	return NewGameUI(orch, taleweave.NewMemoryStore(), nil)
}

func doRequest(ui *GameUI, method, path, sessionID, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ui.ServeHTTP(w, req)
	return w
}

func waitForSettled(t *testing.T, ui *GameUI, sessionID string) sessionResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(ui, http.MethodGet, "/api/session", sessionID, "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		if !resp.Generating && resp.Phase != taleweave.PhaseLoading {
			return resp
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session never settled")
	return sessionResponse{}
}

func TestHandleGenres(t *testing.T) {
	w := doRequest(newTestUI(), http.MethodGet, "/api/genres", uuid.New().String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var genres []taleweave.GenreProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	assert.NotEmpty(t, genres)
	ids := make([]string, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, g.ID)
	}
	assert.Contains(t, ids, "noir-mystery")
}

func TestStartSessionFlow(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	w := doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := waitForSettled(t, ui, sessionID)
	assert.Equal(t, taleweave.PhasePlaying, resp.Phase)
	assert.Equal(t, 1, resp.CurrentTurn)
	assert.Len(t, resp.Choices, 3)
}

func TestStartSessionUnknownGenre(t *testing.T) {
	w := doRequest(newTestUI(), http.MethodPost, "/api/session", uuid.New().String(), `{"genreId": "soap-opera"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChoiceFlow(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	waitForSettled(t, ui, sessionID)

	w := doRequest(ui, http.MethodPost, "/api/session/choice", sessionID, `{"choice": "Check the docks"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := waitForSettled(t, ui, sessionID)
	assert.Equal(t, 2, resp.CurrentTurn)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "Check the docks", *resp.History[0].ChoiceMade)
}

func TestChoiceRejectsUnknown(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	waitForSettled(t, ui, sessionID)

	w := doRequest(ui, http.MethodPost, "/api/session/choice", sessionID, `{"choice": "Fly to the moon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChoiceBeforeStart(t *testing.T) {
	w := doRequest(newTestUI(), http.MethodPost, "/api/session/choice", uuid.New().String(), `{"choice": "x"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteSession(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	waitForSettled(t, ui, sessionID)

	w := doRequest(ui, http.MethodDelete, "/api/session", sessionID, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	resp := waitForSettled(t, ui, sessionID)
	assert.Equal(t, taleweave.PhaseMenu, resp.Phase)
	assert.Empty(t, resp.History)
}

func TestExportRequiresFinishedStory(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	waitForSettled(t, ui, sessionID)

	w := doRequest(ui, http.MethodGet, "/api/session/export", sessionID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionSurvivesEngineEviction(t *testing.T) {
	ui := newTestUI()
	sessionID := uuid.New().String()

	doRequest(ui, http.MethodPost, "/api/session", sessionID, `{"genreId": "noir-mystery"}`)
	waitForSettled(t, ui, sessionID)

	// Simulate eviction: the engine is dropped but the store still has the
	// session, so the next request revives it.
	ui.dropEngine(sessionID)

	resp := waitForSettled(t, ui, sessionID)
	assert.Equal(t, taleweave.PhasePlaying, resp.Phase)
	assert.Len(t, resp.Choices, 3)
}
