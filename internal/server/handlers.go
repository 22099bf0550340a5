package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bimmerbailey/loglore/internal/redact"
	"github.com/bimmerbailey/loglore/internal/troubleshoot"
)

// logRequest is the body accepted by both POST endpoints.
type logRequest struct {
	Text     string         `json:"text"`
	Mode     string         `json:"mode"`
	Metadata map[string]any `json:"metadata"`
}

type redactResponse struct {
	Redacted      string `json:"redacted"`
	RedactedCount int    `json:"redacted_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "LogLore API v" + Version,
		"status":    "running",
		"endpoints": []string{"/redact_log", "/ai_troubleshoot", "/health"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"provider":  s.service.ProviderName(),
		"version":   Version,
	})
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if isBlank(req.Text) {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	redacted, n, err := s.redactor.RedactAndCount(req.Text)
	if err != nil {
		s.redactionFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redactResponse{Redacted: redacted, RedactedCount: n})
}

func (s *Server) handleTroubleshoot(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	res, err := s.service.Analyze(r.Context(), troubleshoot.Request{
		Text:     req.Text,
		Mode:     req.Mode,
		Metadata: stringifyMetadata(req.Metadata),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, troubleshoot.ErrEmptyLog):
		writeError(w, http.StatusBadRequest, "text is required")
	case errors.Is(err, troubleshoot.ErrRedaction):
		s.redactionFailed(w, r, err)
	case errors.Is(err, troubleshoot.ErrLLM) && res != nil:
		// The client still gets the redacted log and severity.
		s.logger.Warn("llm call failed", "request_id", requestID(r.Context()), "error", err)
		writeJSON(w, http.StatusOK, res)
	default:
		s.logger.Error("troubleshoot failed", "request_id", requestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a logRequest, enforcing the body size limit.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (logRequest, bool) {
	var req logRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func (s *Server) redactionFailed(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("redaction failed", "request_id", requestID(r.Context()), "error", err)
	if errors.Is(err, redact.ErrInputTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "input too large to redact")
		return
	}
	writeError(w, http.StatusInternalServerError, "redaction failed")
}

// stringifyMetadata flattens arbitrary JSON metadata values to strings.
func stringifyMetadata(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case float64, bool:
			out[k] = fmt.Sprint(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
