package jobs

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter exposes the manager over HTTP:
//
//	GET    /health
//	POST   /campaigns/{id}/jobs
//	GET    /campaigns/{id}/jobs
//	DELETE /campaigns/{id}/jobs
func NewRouter(m *Manager, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if id, ok := m.Running(); ok {
			body["running"] = id
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Route("/campaigns/{id}/jobs", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body Request
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			st, err := m.Start(chi.URLParam(req, "id"), body)
			switch {
			case errors.Is(err, ErrInvalidMode):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, ErrBusy):
				writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "running": st})
			case err != nil:
				writeError(w, http.StatusInternalServerError, err.Error())
			default:
				writeJSON(w, http.StatusAccepted, st)
			}
		})

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, m.Status(chi.URLParam(req, "id")))
		})

		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			if err := m.Stop(id); err != nil {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"campaign_id": id, "status": "stopping"})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("jobs: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
