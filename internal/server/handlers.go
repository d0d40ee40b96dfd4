package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/soyeahso/agentcore/internal/entrypoint"
)

// PingResponse is the liveness answer expected by the hosting runtime.
type PingResponse struct {
	Status           string `json:"status"`
	TimeOfLastUpdate int64  `json:"time_of_last_update"`
}

// handlePing reports the process as healthy once it is serving.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{
		Status:           "Healthy",
		TimeOfLastUpdate: s.startedAt.Unix(),
	})
}

// handleInvocations decodes the body and answers with the entrypoint's
// envelope. Both result and error envelopes are 200; only an unreadable
// body is a 400.
func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.log.Debug().Err(err).Msg("rejecting invocation body")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": (&entrypoint.ValidationError{Message: err.Error()}).Error(),
		})
		return
	}

	env := s.entry.Invoke(r.Context(), payload)
	writeJSON(w, http.StatusOK, env)
}

// decodePayload reads one JSON value. Any JSON value decodes; the
// entrypoint decides whether its shape is acceptable.
func decodePayload(r io.Reader) (any, error) {
	var payload any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return nil, errors.New("request body is empty")
		default:
			return nil, errors.New("request body is not valid JSON")
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("request body is not valid JSON")
	}
	return payload, nil
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
