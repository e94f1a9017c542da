package app

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"docqa/internal/extractor"
	"docqa/internal/rag"
	"docqa/internal/session"
	"docqa/internal/translate"
)

//go:embed web/index.html
var indexHTML []byte

// Server exposes the App over HTTP.
type Server struct {
	app  *App
	addr string
	mux  *http.ServeMux
}

func NewServer(a *App, addr string) *Server {
	s := &Server{app: a, addr: addr, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/languages", s.handleLanguages)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("DELETE /api/cache/translations", s.handleClearCache)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/document", s.handleUpload)
	s.mux.HandleFunc("DELETE /api/sessions/{id}/document", s.handleClear)
	s.mux.HandleFunc("GET /api/sessions/{id}/document/translation", s.handleTranslateDocument)
	s.mux.HandleFunc("PUT /api/sessions/{id}/language", s.handleSetLanguage)
	s.mux.HandleFunc("POST /api/sessions/{id}/questions", s.handleAsk)

	return s
}

func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Listening on http://%s", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": s.app.Languages(),
		"default":   s.app.DefaultLanguage(),
		"formats":   s.app.SupportedFormats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Stats(r.Context()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearTranslationCache(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, s.app.CreateSession())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.app.extractor.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, fmt.Errorf("%w: upload exceeds %d bytes", extractor.ErrTooLarge, limit))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "multipart field \"file\" is required", Kind: "bad_request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", extractor.ErrExtraction, err))
		return
	}

	info, err := s.app.Upload(r.Context(), r.PathValue("id"), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Clear(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTranslateDocument(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	text, err := s.app.TranslateDocument(r.Context(), r.PathValue("id"), lang)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": lang, "text": text})
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Kind: "bad_request"})
		return
	}
	lang, err := s.app.SetLanguage(r.PathValue("id"), req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": lang})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Kind: "bad_request"})
		return
	}
	turn, err := s.app.Ask(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// errorStatus maps domain errors to an HTTP status and a stable kind string.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnsupportedLanguage), errors.Is(err, ErrEmptyQuestion):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, extractor.ErrExtraction):
		return http.StatusUnprocessableEntity, "extraction"
	case errors.Is(err, session.ErrNoDocument):
		return http.StatusConflict, "no_document"
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, session.ErrIndexing):
		return http.StatusConflict, "indexing"
	case errors.Is(err, rag.ErrGeneration):
		return http.StatusBadGateway, "generation"
	case errors.Is(err, translate.ErrTranslation):
		return http.StatusBadGateway, "translation"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to write response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("🌐 %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
