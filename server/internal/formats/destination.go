package formats

import (
	"regexp"
	"strings"
)

var (
	destinationRe = regexp.MustCompile(`^\[download\]\s+Destination:\s+(.+)$`)
	mergerRe      = regexp.MustCompile(`^\[Merger\]\s+Merging formats into\s+"(.+)"$`)
	alreadyRe     = regexp.MustCompile(`^\[download\]\s+(.+?)\s+has already been downloaded`)
)

// Destination tracks the file announced by a download run. A merge
// announcement wins over the intermediate per-stream destinations.
type Destination struct {
	path   string
	merged bool
}

// Observe inspects one output line and reports whether it announced a file.
func (d *Destination) Observe(line string) bool {
	line = strings.TrimSpace(line)

	if m := mergerRe.FindStringSubmatch(line); m != nil {
		d.path, d.merged = m[1], true
		return true
	}
	if d.merged {
		return false
	}
	if m := destinationRe.FindStringSubmatch(line); m != nil {
		d.path = strings.TrimSpace(m[1])
		return true
	}
	if m := alreadyRe.FindStringSubmatch(line); m != nil {
		d.path = m[1]
		return true
	}
	return false
}

// Path returns the last announced file, empty when none was seen.
func (d *Destination) Path() string { return d.path }
