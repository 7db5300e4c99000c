package formats

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindVideo Kind = iota
	KindAudio
)

func (k Kind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "video"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "audio":
		*k = KindAudio
	case "video":
		*k = KindVideo
	default:
		return fmt.Errorf("unknown format kind %q", b)
	}
	return nil
}

// Candidate is what a single line of the format listing yields. Everything
// beyond the identifier is best effort.
type Candidate struct {
	FormatId   string
	Kind       Kind
	Resolution string // e.g. "1080p", video only
	FrameRate  int    // 0 when unknown
	SizeMB     float64
	HasSize    bool
	Approx     bool // size was announced with ~ or ≈
}

var (
	videoCodecRe = regexp.MustCompile(`(?i)\b(avc1[\w.]*|h\.?264)\b`)
	audioCodecRe = regexp.MustCompile(`(?i)\b(mp4a[\w.]*|aac)\b`)

	formatIdRe   = regexp.MustCompile(`^[A-Za-z0-9][\w.+=-]*$`)
	resolutionRe = regexp.MustCompile(`^(\d+)x(\d+)$`)

	fpsTokenRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)fps$`)
	fpsLineRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*fps\b`)

	sizeTokenRe = regexp.MustCompile(`(?i)^([~=≈]?)(\d+(?:\.\d+)?)(KiB|MiB|GiB)$`)
	sizeLineRe  = regexp.MustCompile(`(?i)([~=≈]?)\s*(\d+(?:\.\d+)?)\s*(KiB|MiB|GiB)\b`)
)

// the bare FPS column of the listing, right after the resolution
const maxColumnFrameRate = 240

// ParseLine turns one line of `-F` output into a Candidate. Lines that do not
// describe an H.264 video stream or an AAC audio stream yield false.
func ParseLine(line string) (Candidate, bool) {
	hasVideoCodec := videoCodecRe.MatchString(line)
	hasAudioCodec := audioCodecRe.MatchString(line)
	if !hasVideoCodec && !hasAudioCodec {
		return Candidate{}, false
	}

	tokens := strings.Fields(line)
	if len(tokens) == 0 || !formatIdRe.MatchString(tokens[0]) {
		return Candidate{}, false
	}

	c := Candidate{FormatId: tokens[0]}

	resIdx := -1
	for i, tok := range tokens[1:] {
		if m := resolutionRe.FindStringSubmatch(tok); m != nil {
			c.Resolution = m[2] + "p"
			resIdx = i + 1
			break
		}
	}

	c.FrameRate = parseFrameRate(line, tokens, resIdx)
	c.SizeMB, c.HasSize, c.Approx = parseSize(line, tokens)

	switch {
	// muxed streams carry both codecs, the resolution decides
	case hasVideoCodec && c.Resolution != "":
		c.Kind = KindVideo
	case hasAudioCodec:
		c.Kind = KindAudio
		c.Resolution = ""
	default:
		return Candidate{}, false
	}

	return c, true
}

func parseFrameRate(line string, tokens []string, resIdx int) int {
	for _, tok := range tokens[1:] {
		if m := fpsTokenRe.FindStringSubmatch(tok); m != nil {
			if fps, ok := floorPositive(m[1]); ok {
				return fps
			}
		}
	}

	if m := fpsLineRe.FindStringSubmatch(line); m != nil {
		if fps, ok := floorPositive(m[1]); ok {
			return fps
		}
	}

	if resIdx > 0 && resIdx+1 < len(tokens) {
		// fractional columns like 29.970 are floored as well
		if n, ok := floorPositive(tokens[resIdx+1]); ok && n <= maxColumnFrameRate {
			return n
		}
	}

	return 0
}

func floorPositive(s string) (int, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 {
		return 0, false
	}
	return int(math.Floor(v)), true
}

func parseSize(line string, tokens []string) (float64, bool, bool) {
	for i := 1; i < len(tokens); i++ {
		if m := sizeTokenRe.FindStringSubmatch(tokens[i]); m != nil {
			if mb, ok := toMegabytes(m[2], m[3]); ok {
				// columnar listings separate the marker: "~ 37.79MiB"
				approx := isApprox(m[1]) || (m[1] == "" && isApprox(tokens[i-1]))
				return mb, true, approx
			}
		}
	}

	if m := sizeLineRe.FindStringSubmatch(line); m != nil {
		if mb, ok := toMegabytes(m[2], m[3]); ok {
			return mb, true, isApprox(m[1])
		}
	}

	return 0, false, false
}

func isApprox(prefix string) bool { return prefix == "~" || prefix == "≈" }

func toMegabytes(value, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v < 0 {
		return 0, false
	}

	switch strings.ToLower(unit) {
	case "kib":
		return v / 1024, true
	case "mib":
		return v, true
	case "gib":
		return v * 1024, true
	}
	return 0, false
}
