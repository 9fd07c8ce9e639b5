package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"webmon/internal/source"
	"webmon/pkg/matcher"
)

// SourceName labels pattern updates pushed through the API. A push replaces
// earlier API pushes only.
const SourceName = "api"

type PatternsUpdateRequest struct {
	Patterns []string `json:"patterns"`
}

type PatternsResponse struct {
	Stats    matcher.Stats `json:"stats"`
	Patterns []string      `json:"patterns"`
}

type ClassifyResponse struct {
	URL     string `json:"url"`
	Pattern string `json:"pattern"`
}

type Server struct {
	port          string
	verbose       bool
	table         *matcher.AtomicTable
	updateChannel chan<- source.Update
	srv           *http.Server
}

func NewServer(port string, verbose bool, table *matcher.AtomicTable, updateChannel chan<- source.Update) *Server {
	s := &Server{
		port:          port,
		verbose:       verbose,
		table:         table,
		updateChannel: updateChannel,
	}
	s.srv = &http.Server{
		Addr:              port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/patterns", s.handlePatterns)
	mux.HandleFunc("/api/classify", s.handleClassify)
	return mux
}

func (s *Server) Start() error {
	log.Info().Msgf("API server starting on %s", s.port)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t := s.table.Load()
		writeJSON(w, http.StatusOK, PatternsResponse{
			Stats:    t.Stats(),
			Patterns: t.Patterns(),
		})
	case http.MethodPost:
		s.handlePatternsUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePatternsUpdate(w http.ResponseWriter, r *http.Request) {
	var req PatternsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if req.Patterns == nil {
		http.Error(w, "patterns is required", http.StatusBadRequest)
		return
	}

	if s.verbose {
		log.Info().Msgf("Received pattern update request with %d entries", len(req.Patterns))
	}

	select {
	case s.updateChannel <- source.Update{Source: SourceName, Patterns: req.Patterns}:
	case <-r.Context().Done():
		http.Error(w, "update not accepted", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"message": "Pattern update queued",
		"count":   len(req.Patterns),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u := r.URL.Query().Get("url")
	writeJSON(w, http.StatusOK, ClassifyResponse{
		URL:     u,
		Pattern: s.table.Classify(u),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode API response")
	}
}
