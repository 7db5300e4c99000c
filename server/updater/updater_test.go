//go:build !windows

package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

var opts = process.Options{GracePeriod: 200 * time.Millisecond, KillGrace: 200 * time.Millisecond}

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	script := writeScript(t, `echo "2025.03.31"`)

	v, err := Version(context.Background(), script, opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if v != "2025.03.31" {
		t.Errorf("Expected 2025.03.31, got %q", v)
	}
}

func TestUpdateExecutable(t *testing.T) {
	ok := writeScript(t, `[ "$1" = "-U" ] || exit 2
echo "yt-dlp is up to date"`)

	if err := UpdateExecutable(context.Background(), ok, opts); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	failing := writeScript(t, "echo 'ERROR: unable to write'\nexit 1")

	if err := UpdateExecutable(context.Background(), failing, opts); err == nil {
		t.Error("Expected an error for a failing update")
	}
}
