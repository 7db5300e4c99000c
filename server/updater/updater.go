package updater

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

const versionTimeout = 10 * time.Second

// UpdateExecutable updates the downloader using its builtin updater.
func UpdateExecutable(ctx context.Context, executable string, opts process.Options) error {
	out := process.Run(ctx, executable, []string{"-U"}, opts, func(line string) {
		slog.Info("updater", slog.String("line", line))
	})
	if !out.OK() {
		return errors.Join(errors.New("failed to update "+executable), out.Err)
	}
	return nil
}

// Version returns the version string reported by the downloader.
func Version(ctx context.Context, executable string, opts process.Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var version string

	out := process.Run(ctx, executable, []string{"--version"}, opts, func(line string) {
		if version == "" {
			version = strings.TrimSpace(line)
		}
	})

	if out.Kind == process.Cancelled {
		return "", errors.New("requesting the downloader version took too long")
	}
	if !out.OK() {
		return "", out.Err
	}

	return version, nil
}
