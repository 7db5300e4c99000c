package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	middlewares "github.com/marcopiovanello/yt-dlp-gui/server/middleware"
)

const maxCookiesSize = 4 << 20

type Handler struct {
	service *Service
}

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	return routes(Provide(args))
}

func routes(h *Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)

		r.Get("/session", h.Session())
		r.Get("/session/busy", h.Busy())
		r.Put("/session/url", h.SetURL())
		r.Post("/session/start", h.Start())
		r.Post("/session/select", h.Select())
		r.Post("/session/cancel", h.Cancel())

		r.Put("/cookies", h.SetCookies())

		r.Get("/version", h.GetVersion())
		r.Post("/update", h.UpdateExecutable())
	}
}

func (h *Handler) Session() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.service.Session())
	}
}

func (h *Handler) Busy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, busyResponse{Busy: h.service.Busy()})
	}
}

func (h *Handler) SetURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := h.service.SetURL(r.Context(), req.URL); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, h.service.Session())
	}
}

func (h *Handler) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest
		// the body is optional
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		if err := h.service.Start(r.Context(), req.URL); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, h.service.Session())
	}
}

func (h *Handler) Select() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := h.service.Select(r.Context(), req.key()); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, h.service.Session())
	}
}

func (h *Handler) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Cancel(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handler) SetCookies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// netscape cookie file, sent as is
		cookies, err := io.ReadAll(io.LimitReader(r.Body, maxCookiesSize))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := h.service.SetCookies(r.Context(), string(cookies)); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) GetVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rpcVersion, downloaderVersion, err := h.service.GetVersion(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, versionResponse{
			RPCVersion:        rpcVersion,
			DownloaderVersion: downloaderVersion,
		})
	}
}

func (h *Handler) UpdateExecutable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.UpdateExecutable(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, errs.ErrNoURL),
		errors.Is(err, errs.ErrNoSelection),
		errors.Is(err, errs.ErrUnknownFormat),
		errors.Is(err, errs.ErrEmptyCookies):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
