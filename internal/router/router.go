package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/holovote/internal/telemetry"
	"go.uber.org/zap"
)

// APIPrefix is where every entity route is mounted
const APIPrefix = "/api/v1"

// Version is reported by the banner endpoint
var Version = "1.0.0"

// Handler is implemented by every group of API routes
type Handler interface {
	RegisterRoutes(router *mux.Router, logger *zap.Logger)
}

type Router struct {
	mux       *mux.Router
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

func NewRouter(tel *telemetry.Telemetry, logger *zap.Logger, handlers []Handler) *Router {
	r := &Router{
		mux:       mux.NewRouter(),
		telemetry: tel,
		logger:    logger.Named("http"),
	}

	r.mux.Use(requestIDMiddleware, r.loggingMiddleware)
	if tel != nil {
		r.mux.Use(r.metricsMiddleware)
		r.mux.Handle("/metrics", tel.Handler()).Methods(http.MethodGet)
	}
	r.mux.Use(r.recoveryMiddleware, corsMiddleware)

	r.mux.HandleFunc("/", r.handleRoot).Methods(http.MethodGet)
	r.mux.HandleFunc("/health", r.handleHealth).Methods(http.MethodGet)

	api := r.mux.PathPrefix(APIPrefix).Subrouter()
	for _, h := range handlers {
		h.RegisterRoutes(api, r.logger)
	}

	// preflight for any route
	r.mux.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// CreateServer wraps the router in an http.Server listening on addr
func (r *Router) CreateServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a fetch may wait on the external catalog through several retries
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Welcome to the Star Wars API mirror",
		"docs_url": APIPrefix,
		"version":  Version,
	})
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
