package archiver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server/archive"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
)

func TestDownloadsAreArchived(t *testing.T) {
	db, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, s, err := archive.Container(db)
	if err != nil {
		t.Fatal(err)
	}

	config.Instance().AutoArchive = true
	defer func() { config.Instance().AutoArchive = false }()

	Register(s)

	bus := session.NewBus()
	if err := Listen(bus); err != nil {
		t.Fatal(err)
	}

	bus.Publish(session.TopicDownloaded, downloaders.Result{
		URL:      "https://example.com/v",
		FormatId: "137",
		Label:    "1080p/H.264",
		Path:     "/media/clip.1080p.mp4",
		Size:     1024,
	})
	bus.WaitAsync()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entities, err := s.List(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entities) == 1 {
			if entities[0].Title != "clip.1080p.mp4" || entities[0].Source != "https://example.com/v" {
				t.Errorf("Unexpected entry %+v", entities[0])
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("download was not archived")
}
