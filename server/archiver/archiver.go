package archiver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-gui/server/archive"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
)

var (
	ch             = make(chan *Message, 1)
	archiveService *archive.Service
	consumerOnce   sync.Once
)

type Message = archive.Entity

// Register sets the service completed downloads are archived into and starts
// the consumer.
func Register(s *archive.Service) {
	archiveService = s

	consumerOnce.Do(func() {
		go func() {
			for m := range ch {
				slog.Info(
					"archiving completed download",
					slog.String("title", m.Title),
					slog.String("source", m.Source),
				)
				if err := archiveService.Archive(context.Background(), m); err != nil {
					slog.Error("failed to archive download", slog.Any("err", err))
				}
			}
		}()
	})
}

func Publish(m *Message) {
	if config.Instance().AutoArchive && archiveService != nil {
		ch <- m
	}
}

// Listen archives every successful download published on the bus.
func Listen(bus EventBus.Bus) error {
	return bus.SubscribeAsync(session.TopicDownloaded, func(res downloaders.Result) {
		if res.Path == "" {
			return
		}
		Publish(&Message{
			Path:     res.Path,
			Source:   res.URL,
			FormatId: res.FormatId,
			Label:    res.Label,
			Size:     res.Size,
		})
	}, false)
}
