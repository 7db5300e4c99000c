package rest

import (
	"context"
	"log/slog"

	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/updater"
)

// TODO: load from release properties instead of hardcoding
const CURRENT_RPC_VERSION = "1.0.0"

type Service struct {
	controller *session.Controller
	opts       downloaders.Options
}

func NewService(controller *session.Controller, opts downloaders.Options) *Service {
	return &Service{
		controller: controller,
		opts:       opts,
	}
}

func (s *Service) Session() session.State {
	return s.controller.Snapshot()
}

func (s *Service) Busy() bool {
	return s.controller.Busy()
}

func (s *Service) SetURL(ctx context.Context, url string) error {
	return s.controller.SetURL(ctx, url)
}

func (s *Service) Start(ctx context.Context, url string) error {
	return s.controller.Start(ctx, url)
}

func (s *Service) Select(ctx context.Context, format string) error {
	return s.controller.Select(ctx, format)
}

func (s *Service) Cancel(ctx context.Context) error {
	return s.controller.Cancel(ctx)
}

func (s *Service) SetCookies(ctx context.Context, cookies string) error {
	return s.controller.UpdateCookies(ctx, []byte(cookies))
}

func (s *Service) GetVersion(ctx context.Context) (string, string, error) {
	v, err := updater.Version(ctx, s.opts.Executable, s.opts.Process)
	if err != nil {
		return CURRENT_RPC_VERSION, "", err
	}
	return CURRENT_RPC_VERSION, v, nil
}

// UpdateExecutable runs the downloader self update while no operation can
// use the executable.
func (s *Service) UpdateExecutable(ctx context.Context) error {
	return s.controller.RunExclusive(ctx, func(ctx context.Context) error {
		slog.Info("updating downloader", slog.String("executable", s.opts.Executable))
		return updater.UpdateExecutable(ctx, s.opts.Executable, s.opts.Process)
	})
}
