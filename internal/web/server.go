package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/datafetcher"
	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/metrics"
	"github.com/yield-navigator/pyn/internal/navigator"
	"github.com/yield-navigator/pyn/internal/state"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

const (
	maxRequestBodyBytes = 4 << 20
	defaultPort         = "8080"
)

// Engine is the recommendation service the handlers delegate to.
type Engine interface {
	Recommend(ctx context.Context, req navigator.Request) (types.RecommendationSet, error)
	Pools(ctx context.Context, details []types.PoolDetailRecord) ([]types.Pool, error)
	Transform(raw []types.RawMarket, details []types.PoolDetailRecord) []types.Pool
	Params() types.ScoringParameters
}

// SnapshotStore reads persisted recommendation snapshots.
type SnapshotStore interface {
	RecentSnapshots(limit int) ([]types.RecommendationSnapshot, error)
	SnapshotByID(id int64) (*types.RecommendationSnapshot, error)
	Stats() (*state.RecommendationStats, error)
	Ping() error
}

// DBSnapshotStore reads snapshots through the state package.
type DBSnapshotStore struct{}

func (DBSnapshotStore) RecentSnapshots(limit int) ([]types.RecommendationSnapshot, error) {
	return state.GetRecentSnapshots(limit)
}

func (DBSnapshotStore) SnapshotByID(id int64) (*types.RecommendationSnapshot, error) {
	return state.GetSnapshotByID(id)
}

func (DBSnapshotStore) Stats() (*state.RecommendationStats, error) {
	return state.GetRecommendationStats()
}

func (DBSnapshotStore) Ping() error {
	return state.TestDBConnection()
}

// Config holds the dependencies of the web server. Engine is required, Snapshots is optional
// and the snapshot routes answer 503 without it.
type Config struct {
	Port      string
	Engine    Engine
	Snapshots SnapshotStore
	Metrics   *metrics.Registry
}

// WebServer serves the recommendation API
type WebServer struct {
	router    *mux.Router
	port      string
	engine    Engine
	snapshots SnapshotStore
	metrics   *metrics.Registry
	started   time.Time
	server    *http.Server
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config) (*WebServer, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("web server configuration validation failed: engine cannot be nil")
	}
	port := cfg.Port
	if port == "" {
		port = defaultPort
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		engine:    cfg.Engine,
		snapshots: cfg.Snapshots,
		metrics:   cfg.Metrics,
		started:   time.Now(),
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	if ws.metrics != nil {
		ws.router.Handle("/metrics", ws.metrics.Handler()).Methods("GET")
	}

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/recommendations", ws.handleRecommendations).Methods("POST")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/transform", ws.handleTransformPools).Methods("POST")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/snapshots/{id:[0-9]+}", ws.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/stats", ws.handleGetStats).Methods("GET")
	api.HandleFunc("/scoring-parameters", ws.handleGetScoringParameters).Methods("GET")

	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the root handler. CORS wraps the router so preflight requests are answered
// before route matching.
func (ws *WebServer) Handler() http.Handler {
	return ws.corsMiddleware(ws.router)
}

// Start starts the web server and blocks until it stops
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	err := ws.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a started server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	webLogger.Info().Msg("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleHealth returns server health. The database is only checked when snapshots are configured.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbStatus := "disabled"
	healthy := true
	if ws.snapshots != nil {
		dbStatus = "ok"
		if err := ws.snapshots.Ping(); err != nil {
			webLogger.Warn().Err(err).Msg("Health check: database unreachable")
			dbStatus = "unreachable"
			healthy = false
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !healthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "pendle-yield-navigator",
			"version": "1.0.0",
		},
		"database": dbStatus,
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// recommendationRequest is the body of POST /api/recommendations. Assets win over holdings,
// and holdings win over wallet.
type recommendationRequest struct {
	Assets     []types.Asset            `json:"assets"`
	Holdings   []types.RawHolding       `json:"holdings"`
	Wallet     string                   `json:"wallet"`
	Posture    string                   `json:"posture"`
	Allocation *types.Allocation        `json:"allocation"`
	Details    []types.PoolDetailRecord `json:"details"`
}

func (ws *WebServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var body recommendationRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req := navigator.Request{
		Assets:     body.Assets,
		Allocation: body.Allocation,
		Details:    body.Details,
	}
	if len(req.Assets) == 0 && len(body.Holdings) > 0 {
		req.Assets = datafetcher.HoldingsToAssets(body.Holdings)
	}
	if len(req.Assets) == 0 && body.Wallet != "" {
		req.Wallet = strings.TrimSpace(body.Wallet)
	}
	if body.Posture != "" {
		posture, err := types.ParseRiskPosture(body.Posture)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "invalid_posture", err.Error())
			return
		}
		req.Posture = posture
	}

	set, err := ws.engine.Recommend(r.Context(), req)
	if err != nil {
		status, code := statusForError(err)
		if status >= http.StatusInternalServerError {
			webLogger.Error().Err(err).Str("request_id", set.ID).Msg("Recommendation request failed")
			ws.writeErrorResponse(w, status, code, "Failed to build recommendations")
			return
		}
		ws.writeErrorResponse(w, status, code, err.Error())
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, newRecommendationSetView(set))
}

// handleGetPools returns the current pool list, optionally filtered by ?tag= and ?symbol=
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools, err := ws.engine.Pools(r.Context(), nil)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load pools")
		ws.writeErrorResponse(w, http.StatusBadGateway, "upstream_error", "Failed to load pools")
		return
	}

	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	filtered := make([]types.Pool, 0, len(pools))
	for _, p := range pools {
		if tag != "" && !strings.EqualFold(string(p.StrategyTag), tag) {
			continue
		}
		if symbol != "" && !utils.SymbolsEqual(p.UnderlyingAsset.Symbol, symbol) {
			continue
		}
		filtered = append(filtered, p)
	}

	response := map[string]interface{}{
		"pools": newPoolViews(filtered),
		"count": len(filtered),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

type transformRequest struct {
	Markets []types.RawMarket        `json:"markets"`
	Details []types.PoolDetailRecord `json:"details"`
}

// handleTransformPools normalizes caller-supplied raw markets
func (ws *WebServer) handleTransformPools(w http.ResponseWriter, r *http.Request) {
	var body transformRequest
	if err := decodeJSONBody(w, r, &body); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pools := ws.engine.Transform(body.Markets, body.Details)
	response := map[string]interface{}{
		"pools": newPoolViews(pools),
		"count": len(pools),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshots returns the most recent snapshots
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := ws.snapshots.RecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve snapshots")
		return
	}

	views := make([]snapshotView, 0, len(snapshots))
	for _, s := range snapshots {
		views = append(views, newSnapshotView(s))
	}

	response := map[string]interface{}{
		"snapshots": views,
		"count":     len(views),
		"limit":     limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSnapshot returns a specific snapshot by ID
func (ws *WebServer) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid snapshot ID")
		return
	}

	snap, err := ws.snapshots.SnapshotByID(id)
	if err != nil {
		status, code := statusForError(err)
		if status >= http.StatusInternalServerError {
			webLogger.Error().Err(err).Int64("snapshotId", id).Msg("Failed to get snapshot")
			ws.writeErrorResponse(w, status, code, "Failed to retrieve snapshot")
			return
		}
		ws.writeErrorResponse(w, status, code, "Snapshot not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, newSnapshotView(*snap))
}

// handleGetStats returns aggregated snapshot statistics
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if !ws.requireSnapshots(w) {
		return
	}

	stats, err := ws.snapshots.Stats()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recommendation stats")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve stats")
		return
	}

	response := map[string]interface{}{
		"totalSnapshots":  stats.TotalSnapshots,
		"okSnapshots":     stats.OKSnapshots,
		"noInputCount":    stats.NoInputCount,
		"noMatchCount":    stats.NoMatchCount,
		"distinctWallets": stats.DistinctWallets,
		"totalValueUSD":   stats.TotalValueUSD,
		"avgWeightedAPY":  stats.AvgWeightedAPY * percent,
	}
	if !stats.LastSnapshotAt.IsZero() {
		response["lastSnapshotAt"] = stats.LastSnapshotAt
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetScoringParameters returns the scoring parameters in use
func (ws *WebServer) handleGetScoringParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters": ws.engine.Params(),
		"timestamp":  time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) requireSnapshots(w http.ResponseWriter) bool {
	if ws.snapshots == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "persistence_disabled", "Snapshot storage is not configured")
		return false
	}
	return true
}

// statusForError maps service errors to an HTTP status and a stable error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, analyzer.ErrNoInput):
		return http.StatusBadRequest, "no_input"
	case errors.Is(err, analyzer.ErrNoMatchingPools):
		return http.StatusNotFound, "no_match"
	case errors.Is(err, state.ErrSnapshotNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, analyzer.ErrInvalidAllocation),
		errors.Is(err, config.ErrInvalidParameters),
		errors.Is(err, datafetcher.ErrInvalidWallet),
		errors.Is(err, navigator.ErrNoPortfolioSource):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, datafetcher.ErrUpstreamUnavailable),
		errors.Is(err, datafetcher.ErrUpstreamStatus),
		errors.Is(err, datafetcher.ErrInvalidResponse):
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	response := map[string]interface{}{
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records them under the matched route template
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		ws.metrics.ObserveHTTP(route, r.Method, wrapper.statusCode, duration)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
