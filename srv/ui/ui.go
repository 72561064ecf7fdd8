// Package ui serves the interactive story web API.
package ui

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	taleweave "github.com/taleweave/taleweave/src"
)

// GameUI owns the HTTP surface: one story engine per browser session,
// keyed by the session cookie. Engines for idle sessions are evicted; the
// session store brings them back on the next request.
type GameUI struct {
	router    chi.Router
	orch      *taleweave.Orchestrator
	store     taleweave.SessionStore
	engines   map[string]*taleweave.Engine
	enginesM  sync.RWMutex
	progress  map[string]*SessionProgress
	pending   map[string]bool
	lastSeen  *cache.Cache
	storybook StorybookCompiler
}

// StorybookCompiler renders a finished session as a PDF.
type StorybookCompiler interface {
	Compile(state taleweave.SessionState) ([]byte, error)
}

func NewGameUI(orch *taleweave.Orchestrator, store taleweave.SessionStore, storybook StorybookCompiler) *GameUI {
	ui := &GameUI{
		router:    chi.NewRouter(),
		orch:      orch,
		store:     store,
		engines:   make(map[string]*taleweave.Engine),
		progress:  make(map[string]*SessionProgress),
		pending:   make(map[string]bool),
		lastSeen:  cache.New(24*time.Hour, 1*time.Hour),
		storybook: storybook,
	}
	ui.setupRoutes()
	ui.startCleanup()
	return ui
}

func (ui *GameUI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ui.router.ServeHTTP(w, r)
}

func (ui *GameUI) setupRoutes() {
	ui.router.Use(middleware.RequestID)
	ui.router.Use(middleware.Recoverer)
	ui.router.Use(requestLogger)
	ui.router.Use(corsMiddleware)
	ui.router.Use(ui.sessionCookie)

	ui.router.Get("/api/genres", ui.handleGenres)
	ui.router.Get("/api/session", ui.handleGetSession)
	ui.router.Delete("/api/session", ui.handleDeleteSession)
	ui.router.Get("/api/session/export", ui.handleExport)
	ui.router.Get("/ws", ui.handleWebSocket)

	// Generation endpoints trigger paid model calls, so they get a per-IP
	// rate limit on top of the one-generation-per-session rule.
	ui.router.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(30, time.Minute))
		r.Post("/api/session", ui.handleStartSession)
		r.Post("/api/session/choice", ui.handleChoice)
		r.Post("/api/session/retry", ui.handleRetry)
	})

	fileServer := http.FileServer(http.Dir("static"))
	ui.router.Handle("/*", fileServer)
}

// sessionCookie ensures every request carries a session id.
func (ui *GameUI) sessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session_id")
		if err != nil || !isValidSession(cookie.Value) {
			sessionID := uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     "session_id",
				Value:    sessionID,
				Path:     "/",
				MaxAge:   86400 * 7,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			r.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// engineFor returns the engine for a session, reviving it from the store
// when it was evicted or the process restarted.
func (ui *GameUI) engineFor(sessionID string) *taleweave.Engine {
	ui.enginesM.RLock()
	eng, ok := ui.engines[sessionID]
	ui.enginesM.RUnlock()
	if ok {
		ui.touch(sessionID)
		return eng
	}

	ui.enginesM.Lock()
	defer ui.enginesM.Unlock()
	if eng, ok := ui.engines[sessionID]; ok {
		return eng
	}

	progress := NewSessionProgress(sessionID)
	state := taleweave.SessionState{
		ID:       sessionID,
		MaxTurns: taleweave.MaxTurns,
		Phase:    taleweave.PhaseMenu,
	}
	if ui.store != nil {
		if saved, found, err := ui.store.Load(sessionID); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("loading persisted session")
		} else if found {
			state = saved
		}
	}
	eng = taleweave.RestoreEngine(state, ui.orch, ui.store, progress)
	ui.engines[sessionID] = eng
	ui.progress[sessionID] = progress
	ui.touch(sessionID)
	return eng
}

func (ui *GameUI) progressFor(sessionID string) *SessionProgress {
	ui.enginesM.RLock()
	defer ui.enginesM.RUnlock()
	return ui.progress[sessionID]
}

func (ui *GameUI) touch(sessionID string) {
	ui.lastSeen.Set(sessionID, time.Now(), cache.DefaultExpiration)
}

func (ui *GameUI) startCleanup() {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ui.evictIdleEngines()
		}
	}()
}

// evictIdleEngines drops in-memory engines whose lastSeen entry expired.
// Their state lives on in the session store.
func (ui *GameUI) evictIdleEngines() {
	ui.enginesM.Lock()
	defer ui.enginesM.Unlock()
	for sessionID, eng := range ui.engines {
		if eng.Generating() || ui.pending[sessionID] {
			continue
		}
		if _, found := ui.lastSeen.Get(sessionID); !found {
			delete(ui.engines, sessionID)
			delete(ui.progress, sessionID)
			log.Debug().Str("session", sessionID).Msg("evicted idle engine")
		}
	}
}

func (ui *GameUI) dropEngine(sessionID string) {
	ui.enginesM.Lock()
	defer ui.enginesM.Unlock()
	delete(ui.engines, sessionID)
	delete(ui.progress, sessionID)
	delete(ui.pending, sessionID)
}

// generating reports whether an operation for the session is running or
// queued. The engine flag alone is not enough: there is a window between
// accepting a request and the goroutine reaching the engine.
func (ui *GameUI) generating(sessionID string, eng *taleweave.Engine) bool {
	ui.enginesM.RLock()
	pending := ui.pending[sessionID]
	ui.enginesM.RUnlock()
	return pending || eng.Generating()
}

func (ui *GameUI) setPending(sessionID string, v bool) {
	ui.enginesM.Lock()
	ui.pending[sessionID] = v
	ui.enginesM.Unlock()
}
