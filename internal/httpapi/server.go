package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kisuya/reasoncard/internal/apperr"
	"github.com/kisuya/reasoncard/internal/auth"
	"github.com/kisuya/reasoncard/internal/brief"
	"github.com/kisuya/reasoncard/internal/catalog"
	"github.com/kisuya/reasoncard/internal/clockid"
	"github.com/kisuya/reasoncard/internal/compare"
	"github.com/kisuya/reasoncard/internal/metrics"
	"github.com/kisuya/reasoncard/internal/notifier"
	"github.com/kisuya/reasoncard/internal/reasonengine"
	"github.com/kisuya/reasoncard/internal/reportsm"
	"github.com/kisuya/reasoncard/internal/store"
)

// ServerConfig holds the listener and timeout knobs (grounded on
// sawpanic-cryptorun/internal/interfaces/http/server.go's ServerConfig).
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	AllowedOrigins []string // exact scheme://host:port strings
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// Server is reasoncard's HTTP/JSON surface (spec.md §6).
type Server struct {
	router *mux.Router
	server *http.Server
	cfg    ServerConfig
	log    zerolog.Logger

	allowedOrigins map[string]bool

	store     *store.Store
	tokens    *auth.Tokens
	catalog   *catalog.Catalog
	metrics   *metrics.Registry
	engine    *reasonengine.Engine
	queue     *reasonengine.Queue
	reports   *reportsm.Machine
	notifier  *notifier.Notifier
	briefs    *brief.Builder
	compare   *compare.Classifier
	clock     clockid.Clock
	minter    clockid.Minter
}

// Deps bundles every collaborator the handlers call into. Optional
// fields (Queue) may be nil: Resolve falls back to an inline rerun.
type Deps struct {
	Store    *store.Store
	Tokens   *auth.Tokens
	Catalog  *catalog.Catalog
	Metrics  *metrics.Registry
	Engine   *reasonengine.Engine
	Queue    *reasonengine.Queue
	Reports  *reportsm.Machine
	Notifier *notifier.Notifier
	Briefs   *brief.Builder
	Compare  *compare.Classifier
	Clock    clockid.Clock
	Minter   clockid.Minter
}

func NewServer(cfg ServerConfig, deps Deps, log zerolog.Logger) *Server {
	allowed := defaultAllowedOrigins()
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	s := &Server{
		router:         mux.NewRouter(),
		cfg:            cfg,
		log:            log.With().Str("component", "httpapi").Logger(),
		allowedOrigins: allowed,
		store:          deps.Store,
		tokens:         deps.Tokens,
		catalog:        deps.Catalog,
		metrics:        deps.Metrics,
		engine:         deps.Engine,
		queue:          deps.Queue,
		reports:        deps.Reports,
		notifier:       deps.Notifier,
		briefs:         deps.Briefs,
		compare:        deps.Compare,
		clock:          deps.Clock,
		minter:         deps.Minter,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api.HandleFunc("/v1/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/v1/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.PathPrefix("/v1").Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/symbols/search", s.handleSymbolSearch).Methods(http.MethodGet)

	authed.HandleFunc("/watchlist", s.handleListWatchlist).Methods(http.MethodGet)
	authed.HandleFunc("/watchlist", s.handleAddWatchlist).Methods(http.MethodPost)
	authed.HandleFunc("/watchlist/{id}", s.handleRemoveWatchlist).Methods(http.MethodDelete)

	authed.HandleFunc("/thresholds", s.handleListThresholds).Methods(http.MethodGet)
	authed.HandleFunc("/thresholds", s.handleUpsertThreshold).Methods(http.MethodPut)

	authed.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	authed.HandleFunc("/events/{id}", s.handleGetEvent).Methods(http.MethodGet)

	authed.HandleFunc("/events/{eventID}/reasons/{reasonID}/feedback", s.handleUpsertFeedback).Methods(http.MethodPut)

	authed.HandleFunc("/reason-reports", s.handleFileReport).Methods(http.MethodPost)
	authed.HandleFunc("/reason-reports/{id}/review", s.handleReviewReport).Methods(http.MethodPost)
	authed.HandleFunc("/reason-reports/{id}/resolve", s.handleResolveReport).Methods(http.MethodPost)

	authed.HandleFunc("/events/{id}/revision-history", s.handleRevisionHistory).Methods(http.MethodGet)
	authed.HandleFunc("/events/{id}/compare", s.handleCompare).Methods(http.MethodGet)

	authed.HandleFunc("/briefs", s.handleListBriefs).Methods(http.MethodGet)
	authed.HandleFunc("/briefs/{id}", s.handleGetBrief).Methods(http.MethodGet)
	authed.HandleFunc("/briefs/{id}/read", s.handleMarkBriefRead).Methods(http.MethodPost)

	authed.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/{id}/read", s.handleMarkNotificationRead).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

func muxRouteTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

func apperrInvalidToken() error {
	return apperr.New(apperr.CodeInvalidToken, "missing or malformed bearer token")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, requestIDFrom(r.Context()), apperr.NotFound("route"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.server.Shutdown(ctx)
}
