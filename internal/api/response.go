package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/provider"
)

// Client-facing messages for an unconfigured provider
const (
	msgAssetsNotConfigured   = "NFT fetching requires ALCHEMY_API_KEY configuration"
	msgActivityNotConfigured = "Wallet stats requires ALCHEMY_API_KEY configuration"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Ensure we always write a response, even if JSON encoding fails
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		_, _ = w.Write([]byte(`{"success":false,"data":null,"error":"Internal server error"}`))
	}
}

// writeData writes a success envelope. cached is omitted for uncached endpoints.
func writeData(w http.ResponseWriter, data interface{}, cached *bool) {
	writeJSON(w, http.StatusOK, models.Envelope{Success: true, Data: data, Cached: cached})
}

// writeError writes a failure envelope and logs err when present
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	s.writeErrorCached(w, r, status, message, err, nil)
}

func (s *Server) writeErrorCached(w http.ResponseWriter, r *http.Request, status int, message string, err error, cached *bool) {
	if err != nil {
		event := zerolog.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = zerolog.Ctx(r.Context()).Error()
		}
		event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg(message)
	}
	writeJSON(w, status, models.Envelope{Success: false, Data: nil, Error: message, Cached: cached})
}

// writeUpstreamError maps a resolver error according to the resolver's failure policy.
// Suppressing resolvers degrade to an empty success; propagating resolvers report a
// missing provider as 503 and anything else as 500 with the error text.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, policy models.FailurePolicy, notConfigured string, err error, cached *bool) {
	switch {
	case policy == models.FailureSuppress:
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("suppressed upstream failure")
		writeData(w, nil, cached)
	case errors.Is(err, provider.ErrProviderNotConfigured):
		s.writeErrorCached(w, r, http.StatusServiceUnavailable, notConfigured, err, cached)
	default:
		s.writeErrorCached(w, r, http.StatusInternalServerError, err.Error(), err, cached)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
