package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/observability"
	"github.com/sybvouch/identity/internal/subgraph"
)

// NamingService is the cache-through naming lookup
type NamingService interface {
	Lookup(ctx context.Context, address string) (*models.NamingRecord, bool)
	Peek(ctx context.Context, addresses []string) map[string]*models.NamingRecord
	Policy() models.FailurePolicy
}

// AssetService is the cache-through asset inventory lookup
type AssetService interface {
	Lookup(ctx context.Context, address string, refresh bool) (*models.AssetInventory, bool, error)
	Policy() models.FailurePolicy
}

// TokenService loads a single token
type TokenService interface {
	FetchOne(ctx context.Context, contract, tokenID string) (*models.Asset, error)
	Policy() models.FailurePolicy
}

// ActivityService loads live wallet activity
type ActivityService interface {
	Fetch(ctx context.Context, address string) (*models.ActivityStats, error)
	Policy() models.FailurePolicy
}

// ProfileService is the durable profile store
type ProfileService interface {
	Get(ctx context.Context, address string) *models.UserProfile
	Set(ctx context.Context, address string, update models.ProfileUpdate) (*models.UserProfile, error)
	Delete(ctx context.Context, address string) error
}

// IdentityService composes the display identity
type IdentityService interface {
	Compose(ctx context.Context, address string) *models.WalletIdentity
}

// GraphService reads the trust graph
type GraphService interface {
	NetworkStats(ctx context.Context) (*subgraph.NetworkStats, error)
	UserDetails(ctx context.Context, address string) (*subgraph.UserDetails, error)
	Vouches(ctx context.Context, first, skip int) ([]subgraph.Vouch, error)
	NetworkGraph(ctx context.Context, first int) (*subgraph.NetworkGraph, error)
	SearchUsers(ctx context.Context, term string, first int) ([]subgraph.User, error)
}

// HealthChecker reports whether the key-value store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the handlers orchestrate
type Services struct {
	Naming   NamingService
	Assets   AssetService
	Tokens   TokenService
	Activity ActivityService
	Profiles ProfileService
	Identity IdentityService
	Graph    GraphService
	Store    HealthChecker
	Metrics  *observability.Metrics
}

// Version is reported by /health
var Version = "dev"

// Server represents the API server
type Server struct {
	router   *mux.Router
	services Services
	address  string
	server   *http.Server
	logger   zerolog.Logger
}

// NewServer creates a new API server
func NewServer(address string, services Services) *Server {
	server := &Server{
		router:   mux.NewRouter(),
		services: services,
		address:  address,
		logger:   logging.Component("api"),
	}

	server.setupRoutes()

	return server
}

// Handler returns the routed handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.services.Metrics != nil {
		s.router.Handle("/metrics", s.services.Metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/naming/batch", s.handleNamingBatch).Methods("POST", "OPTIONS")
	api.HandleFunc("/naming/{address}", s.handleNaming).Methods("GET", "OPTIONS")

	api.HandleFunc("/assets/{address}", s.handleAssets).Methods("GET", "OPTIONS")
	api.HandleFunc("/assets/{contract}/{tokenId:[0-9]+}", s.handleToken).Methods("GET", "OPTIONS")

	api.HandleFunc("/profile/{address}", s.handleGetProfile).Methods("GET", "OPTIONS")
	api.HandleFunc("/profile/{address}", s.handleSetProfile).Methods("POST")
	api.HandleFunc("/profile/{address}", s.handleDeleteProfile).Methods("DELETE")

	api.HandleFunc("/activity/{address}", s.handleActivity).Methods("GET", "OPTIONS")
	api.HandleFunc("/identity/{address}", s.handleIdentity).Methods("GET", "OPTIONS")

	api.HandleFunc("/network", s.handleNetwork).Methods("GET", "OPTIONS")
	api.HandleFunc("/network/vouches", s.handleVouches).Methods("GET", "OPTIONS")
	api.HandleFunc("/network/graph", s.handleNetworkGraph).Methods("GET", "OPTIONS")
	api.HandleFunc("/network/search", s.handleSearchUsers).Methods("GET", "OPTIONS")
	api.HandleFunc("/network/{address}", s.handleNetworkUser).Methods("GET", "OPTIONS")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "Not found", nil)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
}

// handleHealth returns the health status of the service
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	store := "ok"
	if s.services.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.services.Store.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("store ping failed")
			status = "degraded"
			store = "unavailable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"store":     store,
		"timestamp": time.Now().UTC(),
		"service":   "identity",
		"version":   Version,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info().Str("address", s.address).Msg("starting identity API server")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down identity API server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
