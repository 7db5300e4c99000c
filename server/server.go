// a stupid package name...
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/marcopiovanello/yt-dlp-gui/server/archive"
	"github.com/marcopiovanello/yt-dlp-gui/server/archiver"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/kv"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/logging"
	middlewares "github.com/marcopiovanello/yt-dlp-gui/server/middleware"
	"github.com/marcopiovanello/yt-dlp-gui/server/openid"
	"github.com/marcopiovanello/yt-dlp-gui/server/rest"
	ytdlpRPC "github.com/marcopiovanello/yt-dlp-gui/server/rpc"
	"github.com/marcopiovanello/yt-dlp-gui/server/status"
	"github.com/marcopiovanello/yt-dlp-gui/server/stream"
	"github.com/marcopiovanello/yt-dlp-gui/server/user"
	"golang.org/x/sync/errgroup"

	bolt "go.etcd.io/bbolt"
)

const defaultShutdownTimeout = 10 * time.Second

type RunConfig struct {
	// ShutdownTimeout bounds how long in-flight work may take to stop.
	ShutdownTimeout time.Duration
}

type serverConfig struct {
	db         *bolt.DB
	sessionBus EventBus.Bus
	logBus     EventBus.Bus
	controller *session.Controller
	archive    *archive.Handler
	opts       downloaders.Options
}

func Run(ctx context.Context, rc *RunConfig) error {
	conf := config.Instance()

	if err := os.MkdirAll(conf.Paths.LocalDatabasePath, 0o755); err != nil {
		return err
	}

	// ---- LOGGING ---------------------------------------------------
	// logs have their own bus, a log record written while the session
	// bus is publishing would otherwise re-enter it
	logBus := EventBus.New()

	closeLogs, err := logging.Setup(conf.Logging, logging.NewObservableLogger(logBus))
	if err != nil {
		return err
	}
	defer closeLogs()
	// ----------------------------------------------------------------

	boltdb, err := bolt.Open(filepath.Join(conf.Paths.LocalDatabasePath, "bolt.db"), 0600, &bolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return err
	}
	defer boltdb.Close()

	sqlitedb, err := archive.Open(filepath.Join(conf.Paths.LocalDatabasePath, "archive.db"))
	if err != nil {
		return err
	}
	defer sqlitedb.Close()

	archiveHandler, archiveService, err := archive.Container(sqlitedb)
	if err != nil {
		return err
	}
	archiver.Register(archiveService)

	sessionBus := session.NewBus()
	if err := archiver.Listen(sessionBus); err != nil {
		return err
	}

	store, err := kv.NewStore(boltdb)
	if err != nil {
		return err
	}
	if err := store.EventListener(sessionBus); err != nil {
		return err
	}

	opts := downloaders.OptionsFromConfig(conf)
	controller := session.NewController(session.Options{Downloader: opts}, sessionBus)

	scfg := serverConfig{
		db:         boltdb,
		sessionBus: sessionBus,
		logBus:     logBus,
		controller: controller,
		archive:    archiveHandler,
		opts:       opts,
	}

	srv := newServer(scfg)

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return controller.Run(gctx)
	})

	g.Go(func() error {
		restoreSession(gctx, store, controller)
		return nil
	})

	g.Go(func() error {
		slog.Info("yt-dlp-gui started", slog.String("address", address))

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("http server stopped")
		return nil
	})

	g.Go(func() error {
		gracefulShutdown(gctx, srv, controller, rc.ShutdownTimeout)
		return nil
	})

	err = g.Wait()

	// flush pending archive and persistence writes before the databases close
	sessionBus.WaitAsync()

	return err
}

func restoreSession(ctx context.Context, store *kv.Store, controller *session.Controller) {
	sess, err := store.Restore()
	if err != nil {
		slog.Warn("failed to restore session", slog.Any("err", err))
		return
	}
	if sess.URL == "" {
		return
	}

	if err := controller.SetURL(ctx, sess.URL); err != nil {
		slog.Warn("failed to restore session", slog.Any("err", err))
		return
	}

	slog.Info("restored last session", slog.String("url", sess.URL))
}

func newServer(c serverConfig) *http.Server {
	service := ytdlpRPC.Container(c.controller, c.opts)
	rpc.Register(service)

	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)
	// use in dev
	// r.Use(middleware.Logger)

	// Authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", user.Login)
		r.Get("/logout", user.Logout)

		r.Route("/openid", func(r chi.Router) {
			r.Get("/login", openid.Login)
			r.Get("/signin", openid.SingIn)
			r.Get("/logout", openid.Logout)
		})
	})

	// RPC handlers
	r.Route("/rpc", ytdlpRPC.ApplyRouter())

	// REST API handlers
	r.Route("/api/v1", func(r chi.Router) {
		rest.ApplyRouter(&rest.ContainerArgs{
			Controller: c.controller,
			Options:    c.opts,
		})(r)

		// Archive routes
		r.Route("/archive", archive.ApplyRouter(c.archive))
	})

	// Status
	r.Route("/status", func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		status.ApplyRouter(c.controller, c.opts.DownloadPath)(r)
	})

	// Live progress, outcomes and logs
	r.Route("/events", func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/ws", stream.Handler(c.sessionBus, c.logBus))
	})

	return &http.Server{Handler: r}
}

// gracefulShutdown stops the session first so no process outlives the
// server, then drains the http server.
func gracefulShutdown(ctx context.Context, srv *http.Server, controller *session.Controller, timeout time.Duration) {
	<-ctx.Done()
	slog.Info("shutdown signal received")

	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := controller.Shutdown(shutdownCtx); err != nil {
		slog.Warn("session did not stop in time", slog.Any("err", err))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server did not stop in time", slog.Any("err", err))
	}
}
