package downloaders

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
)

// CookiesRequired reports whether rawURL belongs to one of hosts. A host
// matches itself and all of its subdomains.
func CookiesRequired(rawURL string, hosts []string) bool {
	host := ""
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		host = strings.ToLower(u.Hostname())
	}

	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == "" {
			// no scheme, e.g. "youtu.be/abc"
			if strings.Contains(strings.ToLower(rawURL), h) {
				return true
			}
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	return false
}

// cookieArgs returns the cookie flag for url, or errs.ErrMissingCredentials
// when the host needs a cookie file that does not exist.
func cookieArgs(url string, opts Options) ([]string, error) {
	if !CookiesRequired(url, opts.RequiredHosts) {
		return nil, nil
	}

	if opts.CookiesPath == "" {
		return nil, fmt.Errorf("%w: no cookie file configured", errs.ErrMissingCredentials)
	}

	if _, err := os.Stat(opts.CookiesPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errs.ErrMissingCredentials, opts.CookiesPath)
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrMissingCredentials, err)
	}

	return []string{"--cookies", opts.CookiesPath}, nil
}
