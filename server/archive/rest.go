package archive

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	middlewares "github.com/marcopiovanello/yt-dlp-gui/server/middleware"
)

type Handler struct {
	service *Service
}

// Dependency injection container.
func Container(db *sql.DB) (*Handler, *Service, error) {
	repo, err := NewRepository(db)
	if err != nil {
		return nil, nil, err
	}

	s := &Service{repo: repo}
	return &Handler{service: s}, s, nil
}

func ApplyRouter(h *Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/", h.List())
		r.Delete("/{id}", h.Delete())
	}
}

func (h *Handler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entities, err := h.service.List(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := json.NewEncoder(w).Encode(entities); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func (h *Handler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
