package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestService(t *testing.T) (*Handler, *Service) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	h, s, err := Container(db)
	if err != nil {
		t.Fatal(err)
	}
	return h, s
}

func TestArchiveAndList(t *testing.T) {
	_, s := newTestService(t)
	ctx := context.Background()

	older := &Entity{
		Path:      "/media/first.1080p.mp4",
		Source:    "https://example.com/a",
		FormatId:  "137",
		Label:     "1080p/H.264/30fps/76.46MB",
		Size:      2048,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	newer := &Entity{
		Path:     "/media/second.3.52MB.m4a",
		Source:   "https://example.com/b",
		FormatId: "140",
		Label:    "Audio/AAC",
		Size:     3690987,
	}

	for _, e := range []*Entity{older, newer} {
		if err := s.Archive(ctx, e); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	entities, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entities))
	}
	if entities[0].Id != newer.Id {
		t.Errorf("Expected most recent entry first, got %+v", entities[0])
	}
	if entities[1].Title != "first.1080p.mp4" {
		t.Errorf("Expected title derived from path, got %q", entities[1].Title)
	}
	if entities[1].SizeHuman != "2.0 KiB" {
		t.Errorf("Expected human readable size, got %q", entities[1].SizeHuman)
	}

	if err := s.Delete(ctx, older.Id); err != nil {
		t.Fatal(err)
	}
	if entities, _ := s.List(ctx, 10); len(entities) != 1 {
		t.Errorf("Expected 1 entry after delete, got %d", len(entities))
	}
}

func TestListHandler(t *testing.T) {
	h, s := newTestService(t)

	s.Archive(context.Background(), &Entity{Path: "clip.mp4", Source: "https://example.com/v", FormatId: "22"})

	r := chi.NewRouter()
	r.Route("/archive", ApplyRouter(h))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/archive/?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var entities []Entity
	if err := json.NewDecoder(rec.Body).Decode(&entities); err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 || entities[0].Title != "clip.mp4" {
		t.Errorf("Unexpected response %+v", entities)
	}
}
