package downloaders

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
)

// suffixFor derives the rename suffix of a finished download: the resolution
// for video, the on-disk size for audio. An empty suffix means no rename.
func suffixFor(f formats.Format, found bool, size int64) string {
	if !found {
		return ""
	}
	if f.Kind == formats.KindAudio {
		return "." + formats.FormatSize(float64(size)/(1024*1024))
	}
	if f.Resolution == "" {
		return ""
	}
	return "." + f.Resolution
}

// withSuffix inserts suffix right before the extension of path.
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// renameOutput renames the downloaded file at path according to the format it
// was downloaded with. It returns the final path and size of the file. On
// error the file is left where it was.
func renameOutput(path string, f formats.Format, found bool) (string, int64, error) {
	if path == "" {
		return "", 0, fmt.Errorf("%w: destination unknown", errs.ErrRename)
	}

	info, err := os.Stat(path)
	if err != nil {
		return path, 0, fmt.Errorf("%w: %w", errs.ErrRename, err)
	}
	if info.IsDir() {
		return path, 0, fmt.Errorf("%w: %s is a directory", errs.ErrRename, path)
	}

	size := info.Size()

	suffix := suffixFor(f, found, size)
	if suffix == "" {
		return path, size, nil
	}

	target := withSuffix(path, suffix)

	if _, err := os.Stat(target); err == nil {
		return path, size, fmt.Errorf("%w: %s already exists", errs.ErrRename, target)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, size, fmt.Errorf("%w: %w", errs.ErrRename, err)
	}

	if err := os.Rename(path, target); err != nil {
		return path, size, fmt.Errorf("%w: %w", errs.ErrRename, err)
	}

	slog.Info("renamed download",
		slog.String("from", filepath.Base(path)),
		slog.String("to", filepath.Base(target)),
		slog.String("size", humanize.IBytes(uint64(size))),
	)

	return target, size, nil
}
