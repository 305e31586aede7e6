package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/diagramtools/mermaidfix/pkg/buildinfo"
	"github.com/diagramtools/mermaidfix/pkg/diagram"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
)

// sanitizeRequest is the POST /v1/sanitize body.
type sanitizeRequest struct {
	Text         string `json:"text"`
	DeclaredType string `json:"declaredType,omitempty"`
	Grammar      string `json:"grammar,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`
}

// sanitizeResponse mirrors pipeline.Result for API consumers.
type sanitizeResponse struct {
	Text      string             `json:"text"`
	Notice    string             `json:"notice,omitempty"`
	Grammar   diagram.Grammar    `json:"grammar"`
	Strategy  int                `json:"strategy"`
	CacheHit  bool               `json:"cacheHit"`
	Telemetry pipeline.Telemetry `json:"telemetry"`
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req sanitizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "request body is not valid JSON")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "text is required")
		return
	}
	if req.Grammar != "" && !diagram.ValidGrammars[diagram.Grammar(req.Grammar)] {
		writeError(w, http.StatusBadRequest, "INVALID_GRAMMAR", "grammar must be flowchart, classDiagram, or erDiagram")
		return
	}

	res := s.runner.Run(r.Context(), pipeline.Options{
		Text:         req.Text,
		DeclaredType: req.DeclaredType,
		Grammar:      diagram.Grammar(req.Grammar),
		Refresh:      req.Refresh,
	})

	writeJSON(w, http.StatusOK, sanitizeResponse{
		Text:      res.Text,
		Notice:    res.Notice,
		Grammar:   res.Grammar,
		Strategy:  int(res.Strategy),
		CacheHit:  res.CacheHit,
		Telemetry: res.Telemetry,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// pinger is implemented by cache backends with a live connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.cache.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "cache unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":  code,
		"error": message,
	})
}
