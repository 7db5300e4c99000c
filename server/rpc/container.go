package rpc

import (
	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	middlewares "github.com/marcopiovanello/yt-dlp-gui/server/middleware"
)

// Dependency injection container.
func Container(c *session.Controller, opts downloaders.Options) *Service {
	return &Service{
		controller: c,
		opts:       opts,
	}
}

// RPC service must be registered before applying this router!
func ApplyRouter() func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/ws", WebSocket)
		r.Post("/http", Post)
	}
}
