package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sybvouch/identity/internal/models"
)

const (
	// maxBatchAddresses bounds a batch naming read
	maxBatchAddresses = 100

	// maxBodyBytes bounds JSON request bodies
	maxBodyBytes = 64 << 10

	defaultVouchPage = 100
	maxVouchPage     = 1000

	defaultGraphSize = 1000
	maxGraphSize     = 1000

	defaultSearchResults = 10
	maxSearchResults     = 100
	maxSearchTermLength  = 42
)

// addressParam validates and normalizes the {address} path parameter. On failure it
// writes the 400 envelope and returns false.
func (s *Server) addressParam(w http.ResponseWriter, r *http.Request, cached *bool) (string, bool) {
	address := mux.Vars(r)["address"]
	if !models.IsValidAddress(address) {
		s.writeErrorCached(w, r, http.StatusBadRequest, models.ErrInvalidAddress, nil, cached)
		return "", false
	}
	return models.NormalizeAddress(address), true
}

// handleNaming serves GET /api/naming/{address}
func (s *Server) handleNaming(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, boolPtr(false))
	if !ok {
		return
	}

	record, cached := s.services.Naming.Lookup(r.Context(), address)
	writeData(w, record, &cached)
}

// handleNamingBatch serves POST /api/naming/batch: cached records only, never resolved
func (s *Server) handleNamingBatch(w http.ResponseWriter, r *http.Request) {
	var request models.BatchNamingRequest
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if len(request.Addresses) == 0 || len(request.Addresses) > maxBatchAddresses {
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("addresses must contain between 1 and %d entries", maxBatchAddresses), nil)
		return
	}

	addresses := make([]string, len(request.Addresses))
	for i, address := range request.Addresses {
		if !models.IsValidAddress(address) {
			s.writeError(w, r, http.StatusBadRequest, models.ErrInvalidAddress, nil)
			return
		}
		addresses[i] = models.NormalizeAddress(address)
	}

	writeData(w, s.services.Naming.Peek(r.Context(), addresses), nil)
}

// handleAssets serves GET /api/assets/{address}?refresh=true
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, boolPtr(false))
	if !ok {
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"

	inventory, cached, err := s.services.Assets.Lookup(r.Context(), address, refresh)
	if err != nil {
		s.writeUpstreamError(w, r, s.services.Assets.Policy(), msgAssetsNotConfigured, err, boolPtr(false))
		return
	}
	writeData(w, inventory, &cached)
}

// handleToken serves GET /api/assets/{contract}/{tokenId}
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	contract := vars["contract"]
	if !models.IsValidAddress(contract) {
		s.writeError(w, r, http.StatusBadRequest, models.ErrInvalidAddress, nil)
		return
	}

	asset, err := s.services.Tokens.FetchOne(r.Context(), models.NormalizeAddress(contract), vars["tokenId"])
	if err != nil {
		s.writeUpstreamError(w, r, s.services.Tokens.Policy(), msgAssetsNotConfigured, err, nil)
		return
	}
	writeData(w, asset, nil)
}

// handleGetProfile serves GET /api/profile/{address}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	writeData(w, s.services.Profiles.Get(r.Context(), address), nil)
}

// handleSetProfile serves POST /api/profile/{address}: a full replacement
func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	var update models.ProfileUpdate
	if err := decodeBody(r, &update); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile, err := s.services.Profiles.Set(r.Context(), address, update)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, profile, nil)
}

// handleDeleteProfile serves DELETE /api/profile/{address}
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	if err := s.services.Profiles.Delete(r.Context(), address); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, nil, nil)
}

// handleActivity serves GET /api/activity/{address}; always live
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	stats, err := s.services.Activity.Fetch(r.Context(), address)
	if err != nil {
		s.writeUpstreamError(w, r, s.services.Activity.Policy(), msgActivityNotConfigured, err, nil)
		return
	}
	writeData(w, stats, nil)
}

// handleIdentity serves GET /api/identity/{address}
func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	writeData(w, s.services.Identity.Compose(r.Context(), address), nil)
}

// handleNetwork serves GET /api/network
func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Graph.NetworkStats(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, stats, nil)
}

// handleVouches serves GET /api/network/vouches?first=&skip=
func (s *Server) handleVouches(w http.ResponseWriter, r *http.Request) {
	first, err := intQuery(r, "first", defaultVouchPage)
	if err != nil || first < 1 || first > maxVouchPage {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("first must be between 1 and %d", maxVouchPage), err)
		return
	}
	skip, err := intQuery(r, "skip", 0)
	if err != nil || skip < 0 {
		s.writeError(w, r, http.StatusBadRequest, "skip must be a non-negative integer", err)
		return
	}

	vouches, err := s.services.Graph.Vouches(r.Context(), first, skip)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, vouches, nil)
}

// handleNetworkGraph serves GET /api/network/graph?first=
func (s *Server) handleNetworkGraph(w http.ResponseWriter, r *http.Request) {
	first, err := intQuery(r, "first", defaultGraphSize)
	if err != nil || first < 1 || first > maxGraphSize {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("first must be between 1 and %d", maxGraphSize), err)
		return
	}

	graph, err := s.services.Graph.NetworkGraph(r.Context(), first)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, graph, nil)
}

// handleSearchUsers serves GET /api/network/search?q=&first=: users whose address
// contains q
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" || len(term) > maxSearchTermLength {
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("q must contain between 1 and %d characters", maxSearchTermLength), nil)
		return
	}
	first, err := intQuery(r, "first", defaultSearchResults)
	if err != nil || first < 1 || first > maxSearchResults {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("first must be between 1 and %d", maxSearchResults), err)
		return
	}

	users, err := s.services.Graph.SearchUsers(r.Context(), term, first)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, users, nil)
}

// handleNetworkUser serves GET /api/network/{address}
func (s *Server) handleNetworkUser(w http.ResponseWriter, r *http.Request) {
	address, ok := s.addressParam(w, r, nil)
	if !ok {
		return
	}

	user, err := s.services.Graph.UserDetails(r.Context(), address)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	writeData(w, user, nil)
}

// decodeBody decodes a bounded JSON body. An empty body is an error.
func decodeBody(r *http.Request, dest interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dest)
	if errors.Is(err, io.EOF) {
		return errors.New("request body is empty")
	}
	return err
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
