package downloaders

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

// Download fetches a single format of a URL, merged with the best audio
// stream, and renames the result after it finished.
type Download struct {
	URL      string
	FormatId string
	// Catalog the format was selected from, used to derive the rename suffix.
	Catalog formats.Catalog
	Options Options
	OnLine  func(string)
}

// Result describes the file a successful download left on disk. Path is empty
// when the downloader never announced a destination.
type Result struct {
	URL      string
	FormatId string
	Label    string
	Path     string
	Size     int64
	Renamed  bool
}

func NewDownload(url, formatId string, catalog formats.Catalog, opts Options) *Download {
	return &Download{
		URL:      url,
		FormatId: formatId,
		Catalog:  catalog,
		Options:  opts.withDefaults(),
	}
}

func (d *Download) selector() string {
	if f, ok := d.Catalog.ById(d.FormatId); ok && f.Kind == formats.KindAudio {
		return d.FormatId
	}
	return d.FormatId + "+bestaudio[ext=" + d.Options.PreferredAudioExt + "]"
}

// Args returns the downloader arguments of the download.
func (d *Download) Args() ([]string, error) {
	if err := validateURL(d.URL); err != nil {
		return nil, err
	}
	if d.FormatId == "" {
		return nil, errs.ErrNoSelection
	}

	cookies, err := cookieArgs(d.URL, d.Options)
	if err != nil {
		return nil, err
	}

	args := []string{"-f", d.selector()}
	args = append(args, cookies...)
	args = append(args, "--merge-output-format", d.Options.MergeOutputFormat)

	if p := d.Options.DownloadPath; p != "" && p != "." {
		args = append(args, "-P", p)
	}
	if ff := d.Options.FFmpegPath; ff != "" && filepath.Base(ff) != ff {
		args = append(args, "--ffmpeg-location", ff)
	}

	args = append(args, d.URL, "--newline")

	return argsSanitizer(args), nil
}

// Run executes the download. The rename step only runs after a successful
// exit and never turns the outcome into a failure.
func (d *Download) Run(ctx context.Context) (Result, process.Outcome) {
	res := Result{URL: d.URL, FormatId: d.FormatId}

	format, found := d.Catalog.ById(d.FormatId)
	if found {
		res.Label = format.Label
	}

	args, err := d.Args()
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrMissingCredentials):
			slog.Warn("download refused", slog.String("url", d.URL), slog.Any("err", err))
			return res, process.Failure("missing credentials", err)
		case errors.Is(err, errs.ErrNoSelection):
			return res, process.Failure("no format selected", err)
		}
		return res, process.Failure("invalid url", err)
	}

	var (
		dest   formats.Destination
		logger = newLineLogger("download", d.URL)
	)

	out := process.Run(ctx, d.Options.Executable, args, d.Options.Process, func(line string) {
		logger.log(line)
		dest.Observe(line)
		if d.OnLine != nil {
			d.OnLine(line)
		}
	})

	switch out.Kind {
	case process.Cancelled:
		return res, out
	case process.Failed:
		if out.Is(errs.ErrProcessNonZeroExit) {
			return res, process.Failure("download failed", out.Err)
		}
		return res, out
	}

	path := dest.Path()
	if path != "" && !filepath.IsAbs(path) && d.Options.Process.Dir != "" {
		path = filepath.Join(d.Options.Process.Dir, path)
	}

	final, size, err := renameOutput(path, format, found)
	if err != nil {
		slog.Warn("skipping rename",
			slog.String("url", d.URL),
			slog.String("format", d.FormatId),
			slog.Any("err", err),
		)
	}

	res.Path = final
	res.Size = size
	res.Renamed = err == nil && final != path

	slog.Info("download completed",
		slog.String("url", d.URL),
		slog.String("format", d.FormatId),
		slog.String("path", res.Path),
	)

	return res, out
}
