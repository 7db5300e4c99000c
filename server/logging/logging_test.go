package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asaskevich/EventBus"
)

func TestRotableLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := NewRotableLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Write([]byte("before\n"))

	if err := l.Rotate(); err != nil {
		t.Fatalf("Expected rotation to succeed, got %v", err)
	}

	l.Write([]byte("after\n"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "after\n" {
		t.Errorf("Expected a fresh file after rotation, got %q", data)
	}

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) != 1 {
		t.Fatalf("Expected one rotated file, got %v", matches)
	}
	rotated, _ := os.ReadFile(matches[0])
	if string(rotated) != "before\n" {
		t.Errorf("Expected rotated content, got %q", rotated)
	}
}

func TestObservableLogger(t *testing.T) {
	bus := EventBus.New()

	var got []string
	bus.Subscribe(TopicLog, func(line string) { got = append(got, line) })

	o := NewObservableLogger(bus)
	o.Write([]byte("level=INFO msg=hello\n"))

	if len(got) != 1 || !strings.Contains(got[0], "msg=hello") || strings.HasSuffix(got[0], "\n") {
		t.Errorf("Unexpected published lines %q", got)
	}
}
