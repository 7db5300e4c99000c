package rpc

import (
	"context"
	"log/slog"

	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/sys"
	"github.com/marcopiovanello/yt-dlp-gui/server/updater"
)

type Service struct {
	controller *session.Controller
	opts       downloaders.Options
}

type NoArgs struct{}

// Session retrieves the current session snapshot
func (s *Service) Session(args NoArgs, state *session.State) error {
	*state = s.controller.Snapshot()
	return nil
}

// Busy reports whether a probe, download or update is running
func (s *Service) Busy(args NoArgs, busy *bool) error {
	*busy = s.controller.Busy()
	return nil
}

func (s *Service) SetURL(args string, result *string) error {
	if err := s.controller.SetURL(context.Background(), args); err != nil {
		return err
	}
	*result = s.controller.Snapshot().URL
	return nil
}

// Start probes or downloads, see session.Controller.Start.
// The result is the id of the started operation.
func (s *Service) Start(args string, result *string) error {
	id, err := s.controller.StartOperation(context.Background(), args)
	if err != nil {
		return err
	}
	*result = id
	return nil
}

// Select picks a format by identifier or label and returns its label
func (s *Service) Select(args string, selected *string) error {
	if err := s.controller.Select(context.Background(), args); err != nil {
		return err
	}
	// the label is what a user picked from the list
	if f, ok := s.controller.Snapshot().SelectedFormat(); ok {
		*selected = f.Label
	}
	return nil
}

func (s *Service) Cancel(args NoArgs, result *struct{}) error {
	return s.controller.Cancel(context.Background())
}

func (s *Service) SetCookies(args string, result *struct{}) error {
	return s.controller.UpdateCookies(context.Background(), []byte(args))
}

// FreeSpace gets the space available in the download directory
func (s *Service) FreeSpace(args NoArgs, free *uint64) error {
	path := s.opts.DownloadPath
	if path == "" {
		path = "."
	}

	freeSpace, err := sys.FreeSpace(path)
	if err != nil {
		return err
	}

	*free = freeSpace
	return nil
}

// Updates the downloader using its builtin function
func (s *Service) UpdateExecutable(args NoArgs, updated *bool) error {
	slog.Info("Updating downloader executable to the latest release")

	err := s.controller.RunExclusive(context.Background(), func(ctx context.Context) error {
		return updater.UpdateExecutable(ctx, s.opts.Executable, s.opts.Process)
	})
	if err != nil {
		slog.Error("Failed updating downloader", slog.Any("err", err))
		*updated = false
		return err
	}

	*updated = true
	slog.Info("Succesfully updated downloader")

	return nil
}
