//go:build !windows

package downloaders

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

const (
	videoLine = "137 mp4 1920x1080 avc1 30fps ~76.46MiB"
	audioLine = "140 m4a audio only m4a aac"
)

// fakeDownloader writes a shell script standing in for yt-dlp. Every
// invocation appends its arguments to the returned log file.
func fakeDownloader(t *testing.T, body string) (Options, string) {
	t.Helper()

	dir := t.TempDir()
	invocations := filepath.Join(dir, "invocations.log")
	script := filepath.Join(dir, "yt-dlp")

	content := "#!/bin/sh\necho \"$*\" >> '" + invocations + "'\n" + body + "\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write fake downloader: %v", err)
	}

	work := filepath.Join(dir, "work")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}

	opts := Options{
		Executable:    script,
		RequiredHosts: []string{"youtube.com", "youtu.be"},
		CookiesPath:   filepath.Join(dir, "cookies.txt"),
		Process: process.Options{
			GracePeriod: 200 * time.Millisecond,
			KillGrace:   200 * time.Millisecond,
			Dir:         work,
		},
	}

	return opts.withDefaults(), invocations
}

func invocationCount(t *testing.T, path string) int {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(data), "\n")
}

func TestProbeCompleted(t *testing.T) {
	opts, _ := fakeDownloader(t, "echo '[info] Available formats for abc:'\necho '"+videoLine+"'\necho '"+audioLine+"'")

	var lines []string
	p := NewProbe("https://example.com/watch?v=abc", opts)
	p.OnLine = func(l string) { lines = append(lines, l) }

	catalog, out := p.Run(context.Background())

	if !out.OK() {
		t.Fatalf("Expected success, got %s", out)
	}
	if len(lines) != 3 {
		t.Errorf("Expected every raw line to be observed, got %q", lines)
	}

	got := catalog.Formats()
	if len(got) != 2 {
		t.Fatalf("Expected 2 formats, got %d", len(got))
	}
	if got[0].Label != "1080p/H.264/30fps/76.46MB" || got[0].FormatId != "137" {
		t.Errorf("Unexpected first entry %+v", got[0])
	}
	if got[1].Label != "Audio/AAC" || got[1].FormatId != "140" {
		t.Errorf("Unexpected second entry %+v", got[1])
	}
}

func TestProbeNoResults(t *testing.T) {
	opts, _ := fakeDownloader(t, "echo '248 webm 1920x1080 vp9'")

	catalog, out := NewProbe("https://example.com/v", opts).Run(context.Background())

	if out.Reason != "no compatible formats" || !out.Is(errs.ErrProbeNoResults) {
		t.Errorf("Expected no compatible formats, got %s", out)
	}
	if !catalog.IsEmpty() {
		t.Error("Expected an empty catalog")
	}
}

func TestProbeFailed(t *testing.T) {
	opts, _ := fakeDownloader(t, "echo '"+videoLine+"'\necho 'ERROR: unsupported url'\nexit 1")

	catalog, out := NewProbe("https://example.com/v", opts).Run(context.Background())

	if out.Kind != process.Failed || out.Reason != "probe failed" {
		t.Errorf("Expected probe failed, got %s", out)
	}
	if !catalog.IsEmpty() {
		t.Error("Expected failed probe to yield no catalog")
	}
}

func TestProbeMissingCredentials(t *testing.T) {
	opts, invocations := fakeDownloader(t, "echo '"+videoLine+"'")

	_, out := NewProbe("https://www.youtube.com/watch?v=abc", opts).Run(context.Background())

	if out.Reason != "missing credentials" || !out.Is(errs.ErrMissingCredentials) {
		t.Errorf("Expected missing credentials, got %s", out)
	}
	if n := invocationCount(t, invocations); n != 0 {
		t.Errorf("Expected zero process invocations, got %d", n)
	}
}

func TestProbeCancelled(t *testing.T) {
	opts, _ := fakeDownloader(t, "echo '"+videoLine+"'\nsleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewProbe("https://example.com/v", opts)
	p.OnLine = func(string) { cancel() }

	begin := time.Now()
	_, out := p.Run(ctx)

	if out.Kind != process.Cancelled {
		t.Errorf("Expected cancelled, got %s", out)
	}
	if elapsed := time.Since(begin); elapsed > 3*time.Second {
		t.Errorf("Cancellation took too long: %v", elapsed)
	}
}

func TestProbeArgs(t *testing.T) {
	opts, _ := fakeDownloader(t, "")

	if err := os.WriteFile(opts.CookiesPath, []byte("# Netscape HTTP Cookie File\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url      string
		expected []string
		wantErr  bool
	}{
		{
			url:      "https://example.com/v",
			expected: []string{"-F", "https://example.com/v", "--newline"},
		},
		{
			url:      "https://youtu.be/abc",
			expected: []string{"-F", "--cookies", opts.CookiesPath, "https://youtu.be/abc", "--newline"},
		},
		{url: "--exec=rm", wantErr: true},
		{url: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			args, err := NewProbe(tt.url, opts).Args()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got args %q", args)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !slices.Equal(args, tt.expected) {
				t.Errorf("Expected %q, got %q", tt.expected, args)
			}
		})
	}
}

func testCatalog() formats.Catalog {
	b := formats.NewBuilder()
	b.AddLine(videoLine)
	b.AddLine(audioLine)
	return b.Build()
}

func TestDownloadArgs(t *testing.T) {
	opts, _ := fakeDownloader(t, "")
	opts.DownloadPath = "/srv/media"
	opts.FFmpegPath = "/opt/ffmpeg/bin/ffmpeg"

	args, err := NewDownload("https://example.com/v", "137", testCatalog(), opts).Args()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := []string{
		"-f", "137+bestaudio[ext=m4a]",
		"--merge-output-format", "mp4",
		"-P", "/srv/media",
		"--ffmpeg-location", "/opt/ffmpeg/bin/ffmpeg",
		"https://example.com/v", "--newline",
	}
	if !slices.Equal(args, expected) {
		t.Errorf("Expected %q, got %q", expected, args)
	}

	opts.DownloadPath = "."
	opts.FFmpegPath = "ffmpeg"

	args, _ = NewDownload("https://example.com/v", "140", testCatalog(), opts).Args()
	expected = []string{"-f", "140", "--merge-output-format", "mp4", "https://example.com/v", "--newline"}
	if !slices.Equal(args, expected) {
		t.Errorf("Expected %q, got %q", expected, args)
	}
}

func TestDownloadRenamesVideo(t *testing.T) {
	opts, _ := fakeDownloader(t, `echo '[download] Destination: clip [abc].f137.mp4'
echo '[download] 100% of 76.46MiB'
printf 'data' > 'clip [abc].mp4'
echo '[Merger] Merging formats into "clip [abc].mp4"'`)

	res, out := NewDownload("https://example.com/v", "137", testCatalog(), opts).Run(context.Background())

	if !out.OK() {
		t.Fatalf("Expected success, got %s", out)
	}

	expected := filepath.Join(opts.Process.Dir, "clip [abc].1080p.mp4")
	if res.Path != expected || !res.Renamed {
		t.Errorf("Expected renamed path %q, got %+v", expected, res)
	}
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("Expected renamed file on disk: %v", err)
	}
	if res.Size != 4 {
		t.Errorf("Expected size 4, got %d", res.Size)
	}
}

func TestDownloadRenamesAudio(t *testing.T) {
	opts, _ := fakeDownloader(t, `head -c 1048576 /dev/zero > song.m4a
echo '[download] Destination: song.m4a'`)

	res, out := NewDownload("https://example.com/v", "140", testCatalog(), opts).Run(context.Background())

	if !out.OK() {
		t.Fatalf("Expected success, got %s", out)
	}

	expected := filepath.Join(opts.Process.Dir, "song.1.00MB.m4a")
	if res.Path != expected {
		t.Errorf("Expected %q, got %q", expected, res.Path)
	}
}

func TestDownloadKeepsNameWhenFormatUnknown(t *testing.T) {
	opts, _ := fakeDownloader(t, `printf 'data' > clip.mp4
echo '[download] Destination: clip.mp4'`)

	res, out := NewDownload("https://example.com/v", "22", testCatalog(), opts).Run(context.Background())

	if !out.OK() {
		t.Fatalf("Expected success, got %s", out)
	}
	if res.Renamed || res.Path != filepath.Join(opts.Process.Dir, "clip.mp4") {
		t.Errorf("Expected untouched file, got %+v", res)
	}
}

func TestDownloadRenameFailureIsNotFatal(t *testing.T) {
	tests := map[string]string{
		"no destination announced": `echo '[download] 100%'`,
		"announced file missing":   `echo '[download] Destination: gone.mp4'`,
		"target exists": `printf 'a' > clip.mp4
printf 'b' > clip.1080p.mp4
echo '[download] Destination: clip.mp4'`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			opts, _ := fakeDownloader(t, body)

			res, out := NewDownload("https://example.com/v", "137", testCatalog(), opts).Run(context.Background())

			if !out.OK() {
				t.Errorf("Expected success, got %s", out)
			}
			if res.Renamed {
				t.Errorf("Expected no rename, got %+v", res)
			}
		})
	}
}

func TestDownloadFailed(t *testing.T) {
	opts, _ := fakeDownloader(t, `printf 'data' > clip.mp4
echo '[download] Destination: clip.mp4'
exit 1`)

	res, out := NewDownload("https://example.com/v", "137", testCatalog(), opts).Run(context.Background())

	if out.Reason != "download failed" {
		t.Errorf("Expected download failed, got %s", out)
	}
	if _, err := os.Stat(filepath.Join(opts.Process.Dir, "clip.mp4")); err != nil {
		t.Errorf("Expected the file to be left alone: %v", err)
	}
	if res.Renamed {
		t.Error("Expected no rename after a failed download")
	}
}

func TestDownloadMissingCredentials(t *testing.T) {
	opts, invocations := fakeDownloader(t, "")

	_, out := NewDownload("https://youtube.com/watch?v=abc", "137", testCatalog(), opts).Run(context.Background())

	if !out.Is(errs.ErrMissingCredentials) {
		t.Errorf("Expected missing credentials, got %s", out)
	}
	if n := invocationCount(t, invocations); n != 0 {
		t.Errorf("Expected zero process invocations, got %d", n)
	}
}

func TestCookiesRequired(t *testing.T) {
	hosts := []string{"youtube.com", "youtu.be"}

	tests := map[string]bool{
		"https://www.youtube.com/watch?v=abc":   true,
		"https://m.youtube.com/watch?v=abc":     true,
		"https://youtu.be/abc":                  true,
		"youtu.be/abc":                          true,
		"HTTPS://WWW.YOUTUBE.COM/watch?v=abc":   true,
		"https://www.bilibili.com/video/BV1xx":  false,
		"https://notyoutube.com/v":              false,
		"https://example.com/?next=youtube.com": false,
	}

	for url, expected := range tests {
		if got := CookiesRequired(url, hosts); got != expected {
			t.Errorf("CookiesRequired(%q): expected %v, got %v", url, expected, got)
		}
	}
}
