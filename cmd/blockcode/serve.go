package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/controller"
	"github.com/shundroid/three-blockly/host"
	"github.com/shundroid/three-blockly/internal/config"
	"github.com/shundroid/three-blockly/locale"
	"github.com/shundroid/three-blockly/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server hosting editor pages",
	Long: `Start an HTTP server where every session is one editor page.

Endpoints:
  POST   /sessions                 Open a page {lang?, query?, xml?}
  GET    /sessions/{id}            Page state and dialogs shown since last poll
  POST   /sessions/{id}/tab        Switch tab {tab, text?, discard?}
  POST   /sessions/{id}/run        Run the program {wait?, answers?}
  POST   /sessions/{id}/discard    Delete all blocks {confirm?}
  POST   /sessions/{id}/resize     Layout change
  POST   /sessions/{id}/language   Switch language {lang, query}
  DELETE /sessions/{id}            Close the page
  GET    /locales                  Language menu
  GET    /health                   Health check`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	def := config.Default()
	serveCmd.Flags().IntP(config.KeyPort, "p", def.Port, "Port to listen on")
	serveCmd.Flags().Duration(config.KeySessionTTL, def.SessionTTL, "Close pages idle for this long")
	rootCmd.AddCommand(serveCmd)
}

// pageSession is one editor page held by the server.
type pageSession struct {
	id     string
	locale string
	ws     *workspace.Workspace
	page   *host.Page
	ctl    *controller.Controller
	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes requests against this page.
	mu       sync.Mutex
	lastUsed time.Time
}

type sessionManager struct {
	sessions map[string]*pageSession
	mu       sync.Mutex
	ttl      time.Duration
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

func newSessionManager(ttl time.Duration, logger *slog.Logger) *sessionManager {
	sm := &sessionManager{
		sessions: make(map[string]*pageSession),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go sm.cleanup()
	return sm
}

func (sm *sessionManager) add(s *pageSession) {
	sm.mu.Lock()
	s.lastUsed = time.Now()
	sm.sessions[s.id] = s
	sm.mu.Unlock()
	sm.logger.Info("session opened", "session", s.id, "locale", s.locale)
}

func (sm *sessionManager) get(id string) (*pageSession, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if ok {
		s.lastUsed = time.Now()
	}
	return s, ok
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()
	if ok {
		s.cancel()
		sm.logger.Info("session closed", "session", id)
	}
	return ok
}

// expire closes sessions idle since before now minus the TTL.
func (sm *sessionManager) expire(now time.Time) int {
	sm.mu.Lock()
	var stale []*pageSession
	for id, s := range sm.sessions {
		if now.Sub(s.lastUsed) > sm.ttl {
			stale = append(stale, s)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, s := range stale {
		s.cancel()
		sm.logger.Info("session expired", "session", s.id)
	}
	return len(stale)
}

func (sm *sessionManager) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			sm.expire(now)
		case <-sm.done:
			return
		}
	}
}

func (sm *sessionManager) closeAll() {
	sm.once.Do(func() { close(sm.done) })
	sm.mu.Lock()
	all := sm.sessions
	sm.sessions = make(map[string]*pageSession)
	sm.mu.Unlock()
	for _, s := range all {
		s.cancel()
	}
}

func (sm *sessionManager) count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// server serves editor pages over HTTP.
type server struct {
	runner        controller.Runner
	sessions      *sessionManager
	defaultLocale string
	logger        *slog.Logger
}

func newServer(runner controller.Runner, sessions *sessionManager, defaultLocale string, logger *slog.Logger) *server {
	return &server{
		runner:        runner,
		sessions:      sessions,
		defaultLocale: defaultLocale,
		logger:        logger,
	}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSession)
	mux.HandleFunc("GET /sessions/{id}", s.withSession(s.sessionState))
	mux.HandleFunc("POST /sessions/{id}/tab", s.withSession(s.switchTab))
	mux.HandleFunc("POST /sessions/{id}/run", s.withSession(s.runProgram))
	mux.HandleFunc("POST /sessions/{id}/discard", s.withSession(s.discard))
	mux.HandleFunc("POST /sessions/{id}/resize", s.withSession(s.resize))
	mux.HandleFunc("POST /sessions/{id}/language", s.withSession(s.changeLanguage))
	mux.HandleFunc("DELETE /sessions/{id}", s.closeSession)
	mux.HandleFunc("GET /locales", s.locales)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

type createSessionRequest struct {
	Lang  string `json:"lang,omitempty"`
	Query string `json:"query,omitempty"`
	XML   string `json:"xml,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Locale    string `json:"locale"`
	RTL       bool   `json:"rtl"`
}

type stateResponse struct {
	SessionID string               `json:"session_id"`
	Locale    string               `json:"locale"`
	View      controller.View      `json:"view"`
	Blocks    int                  `json:"blocks"`
	Panes     map[string]host.Pane `json:"panes"`
	Dialogs   []host.Dialog        `json:"dialogs"`
}

type tabRequest struct {
	Tab     string  `json:"tab"`
	Text    *string `json:"text,omitempty"`
	Discard bool    `json:"discard,omitempty"`
}

type runRequest struct {
	Wait    bool     `json:"wait,omitempty"`
	Answers []string `json:"answers,omitempty"`
}

type runResponse struct {
	RunID      string        `json:"run_id"`
	Finished   bool          `json:"finished"`
	DurationMs int64         `json:"duration_ms,omitempty"`
	Error      string        `json:"error,omitempty"`
	Dialogs    []host.Dialog `json:"dialogs,omitempty"`
}

type discardRequest struct {
	Confirm bool `json:"confirm,omitempty"`
}

type discardResponse struct {
	Cleared bool          `json:"cleared"`
	State   stateResponse `json:"state"`
}

type languageRequest struct {
	Lang  string `json:"lang"`
	Query string `json:"query,omitempty"`
}

type languageResponse struct {
	Query string `json:"query"`
	XML   string `json:"xml"`
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	lang := s.defaultLocale
	switch {
	case req.Query != "":
		lang = locale.Resolve(req.Query, locale.Names, s.defaultLocale)
	case req.Lang != "":
		if _, ok := locale.Names[req.Lang]; !ok {
			msg := fmt.Sprintf("unknown locale %q", req.Lang)
			if sug, ok := locale.Suggest(req.Lang, locale.Names); ok {
				msg += fmt.Sprintf(", did you mean %q?", sug)
			}
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		lang = req.Lang
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ps := &pageSession{
		id:     id,
		locale: lang,
		ws:     workspace.New(),
		page:   host.NewPage(),
		ctx:    ctx,
		cancel: cancel,
	}
	var opts []controller.Option
	if req.XML != "" {
		opts = append(opts, controller.WithInitialTree(req.XML))
	}
	ps.ctl = newController(ps.ws, ps.page, s.runner, lang, append(opts, controller.WithLogger(s.logger.With("session", id)))...)
	if err := ps.ctl.Start(); err != nil {
		cancel()
		http.Error(w, fmt.Sprintf("failed to open page: %v", err), http.StatusInternalServerError)
		return
	}
	s.sessions.add(ps)

	writeJSON(w, http.StatusOK, createSessionResponse{
		SessionID: id,
		Locale:    lang,
		RTL:       locale.IsRightToLeft(lang, locale.RightToLeft),
	})
}

// withSession resolves {id} and holds the page lock for the handler.
func (s *server) withSession(fn func(http.ResponseWriter, *http.Request, *pageSession)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, ok := s.sessions.get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		ps.mu.Lock()
		defer ps.mu.Unlock()
		fn(w, r, ps)
	}
}

func (s *server) state(ps *pageSession) stateResponse {
	return stateResponse{
		SessionID: ps.id,
		Locale:    ps.locale,
		View:      ps.ctl.View(),
		Blocks:    ps.ws.BlockCount(),
		Panes:     ps.page.Panes(),
		Dialogs:   ps.page.DrainDialogs(),
	}
}

func (s *server) sessionState(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	writeJSON(w, http.StatusOK, s.state(ps))
}

func (s *server) switchTab(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	var req tabRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	view, err := controller.ParseView(req.Tab)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Text != nil && ps.ctl.View() == controller.ViewSerializedTree {
		ps.page.SetPaneText(controller.ViewSerializedTree, *req.Text)
	}
	ps.page.QueueConfirm(req.Discard)
	err = ps.ctl.SwitchTo(view)
	ps.page.ClearConfirms()

	// Render failures have already been shown as an alert.
	status := http.StatusOK
	if errors.Is(err, controller.ErrSwitchCancelled) {
		status = http.StatusConflict
	}
	writeJSON(w, status, s.state(ps))
}

func (s *server) runProgram(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ps.page.ClearPrompts()
	for _, a := range req.Answers {
		ps.page.QueuePrompt(a, true)
	}
	run, err := ps.ctl.Run(ps.ctx)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, runResponse{
			Error:   err.Error(),
			Dialogs: ps.page.DrainDialogs(),
		})
		return
	}

	resp := runResponse{RunID: run.ID}
	if req.Wait {
		select {
		case <-run.Done():
		case <-r.Context().Done():
			return
		}
		result := run.Wait()
		resp.Finished = true
		resp.DurationMs = result.Duration.Milliseconds()
		if result.Error != nil {
			resp.Error = result.Error.Error()
		}
		resp.Dialogs = ps.page.DrainDialogs()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) discard(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	var req discardRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ps.page.QueueConfirm(req.Confirm)
	cleared := ps.ctl.Discard()
	ps.page.ClearConfirms()
	writeJSON(w, http.StatusOK, discardResponse{Cleared: cleared, State: s.state(ps)})
}

func (s *server) resize(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	ps.ctl.Resize()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) changeLanguage(w http.ResponseWriter, r *http.Request, ps *pageSession) {
	var req languageRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, ok := locale.Names[req.Lang]; !ok {
		http.Error(w, fmt.Sprintf("unknown locale %q", req.Lang), http.StatusBadRequest)
		return
	}
	query, stash := ps.ctl.ChangeLanguage(req.Query, req.Lang)
	writeJSON(w, http.StatusOK, languageResponse{Query: query, XML: stash})
}

func (s *server) closeSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions.close(r.PathValue("id")) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Error(w, "session not found", http.StatusNotFound)
}

func (s *server) locales(w http.ResponseWriter, r *http.Request) {
	selected := s.defaultLocale
	if q := r.URL.RawQuery; q != "" {
		selected = locale.Resolve("?"+q, locale.Names, s.defaultLocale)
	}
	writeJSON(w, http.StatusOK, locale.Menu(locale.Names, selected))
}

// decodeBody reads an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	exec, err := newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	log := logger()
	sessions := newSessionManager(cfg.SessionTTL, log)
	defer sessions.closeAll()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: newServer(exec, sessions, resolveLocale(cfg.Locale), log).handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("blockcode server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-cmd.Context().Done():
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
