package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"totalreturn/pkg/totalreturn"
)

// NewRouter builds the HTTP API router.
func NewRouter(core *totalreturn.Core, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, logger: logger}

	r.Get("/api/health", h.health)

	// Uploaded CSV documents, one store per kind (activity, positions).
	r.Post("/api/uploads/{kind}", h.uploadCSV)
	r.Get("/api/uploads/{kind}", h.listUploads)
	r.Delete("/api/uploads/{kind}", h.clearUploads)
	r.Delete("/api/uploads/{kind}/{filename}", h.deleteUpload)

	// Reconciliation results.
	r.Get("/api/summary", h.getSummary)
	r.Get("/api/portfolio", h.getPortfolio)
	r.Post("/api/portfolio/insights", h.postInsights)

	return r
}

type handler struct {
	core   *totalreturn.Core
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
