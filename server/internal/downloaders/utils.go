package downloaders

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var unsafeArgRe = regexp.MustCompile(`(\$\{)|(\&\&)`)

func argsSanitizer(params []string) []string {
	params = slices.DeleteFunc(params, func(e string) bool {
		return unsafeArgRe.MatchString(e)
	})

	params = slices.DeleteFunc(params, func(e string) bool {
		return e == ""
	})

	return params
}

// validateURL rejects values the downloader would read as an option.
func validateURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("empty url")
	}
	if strings.HasPrefix(url, "-") {
		return fmt.Errorf("invalid url %q", url)
	}
	if unsafeArgRe.MatchString(url) {
		return fmt.Errorf("invalid url %q", url)
	}
	return nil
}

// lineLogger logs every output line at debug and at most one per second at
// info so that progress is visible without flooding the log.
type lineLogger struct {
	op       string
	url      string
	throttle rate.Sometimes
}

func newLineLogger(op, url string) *lineLogger {
	return &lineLogger{
		op:       op,
		url:      url,
		throttle: rate.Sometimes{Interval: time.Second},
	}
}

func (l *lineLogger) log(line string) {
	slog.Debug(l.op, slog.String("url", l.url), slog.String("line", line))

	l.throttle.Do(func() {
		slog.Info(l.op+" progress", slog.String("url", l.url), slog.String("line", line))
	})
}
