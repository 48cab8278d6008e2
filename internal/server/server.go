// Package server wires the import API into an HTTP handler.
package server

import (
	"net/http"

	"github.com/rumor-ml/commons.systems/bankimport/internal/handlers"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
)

// Server represents the statement import API server
type Server struct {
	mux *http.ServeMux
}

// New creates a new server instance around an importer and its history store.
func New(imp *importer.Importer, hist history.Store) *Server {
	s := &Server{mux: http.NewServeMux()}
	s.setupRoutes(imp, hist)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(imp *importer.Importer, hist history.Store) {
	s.mux.HandleFunc("/health", handlers.HealthCheck)

	apiHandler := handlers.NewAPIHandler(imp, hist)
	s.mux.HandleFunc("/api/banks", apiHandler.GetBanks)
	s.mux.HandleFunc("/api/preview", apiHandler.PreviewStatement)
	s.mux.HandleFunc("/api/import", apiHandler.ImportStatement)
	s.mux.HandleFunc("/api/history", apiHandler.GetHistory)
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// cors allows browser clients on other origins to call the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
