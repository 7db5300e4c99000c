package downloaders

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

// Probe lists the formats available for a URL without downloading anything.
type Probe struct {
	URL     string
	Options Options
	// OnLine receives every raw output line, unparsed.
	OnLine func(string)
}

func NewProbe(url string, opts Options) *Probe {
	return &Probe{URL: url, Options: opts.withDefaults()}
}

// Args returns the downloader arguments of the probe.
func (p *Probe) Args() ([]string, error) {
	if err := validateURL(p.URL); err != nil {
		return nil, err
	}

	cookies, err := cookieArgs(p.URL, p.Options)
	if err != nil {
		return nil, err
	}

	args := []string{"-F"}
	args = append(args, cookies...)
	args = append(args, p.URL, "--newline")

	return argsSanitizer(args), nil
}

// Run executes the probe and returns the catalog it produced. The catalog is
// only meaningful when the outcome succeeded.
func (p *Probe) Run(ctx context.Context) (formats.Catalog, process.Outcome) {
	args, err := p.Args()
	if err != nil {
		if errors.Is(err, errs.ErrMissingCredentials) {
			slog.Warn("probe refused", slog.String("url", p.URL), slog.Any("err", err))
			return formats.Catalog{}, process.Failure("missing credentials", err)
		}
		return formats.Catalog{}, process.Failure("invalid url", err)
	}

	var (
		builder = formats.NewBuilder()
		logger  = newLineLogger("probe", p.URL)
	)

	out := process.Run(ctx, p.Options.Executable, args, p.Options.Process, func(line string) {
		logger.log(line)
		builder.AddLine(line)
		if p.OnLine != nil {
			p.OnLine(line)
		}
	})

	switch out.Kind {
	case process.Cancelled:
		return formats.Catalog{}, out
	case process.Failed:
		if out.Is(errs.ErrProcessNonZeroExit) {
			return formats.Catalog{}, process.Failure("probe failed", out.Err)
		}
		return formats.Catalog{}, out
	}

	catalog := builder.Build()
	if catalog.IsEmpty() {
		return formats.Catalog{}, process.Failure("no compatible formats", errs.ErrProbeNoResults)
	}

	slog.Info("probe completed", slog.String("url", p.URL), slog.Int("formats", catalog.Len()))

	return catalog, out
}
