package status

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-gui/server/sys"
)

type Status struct {
	Activity    session.Activity `json:"activity"`
	Busy        bool             `json:"busy"`
	URL         string           `json:"url,omitempty"`
	Selected    string           `json:"selected,omitempty"`
	Processes   int              `json:"processes"`
	FreeSpace   uint64           `json:"free_space"`
	FreeSpaceHR string           `json:"free_space_human,omitempty"`
}

// Snapshotter is satisfied by *session.Controller.
type Snapshotter interface {
	Snapshot() session.State
}

func New(s Snapshotter, downloadPath string) Status {
	st := s.Snapshot()

	res := Status{
		Activity:  st.Activity,
		Busy:      st.Busy(),
		URL:       st.URL,
		Selected:  st.Selected,
		Processes: process.Live(),
	}

	if downloadPath == "" {
		downloadPath = "."
	}
	free, err := sys.FreeSpace(downloadPath)
	if err != nil {
		slog.Warn("failed to read free space", slog.String("path", downloadPath), slog.Any("err", err))
		return res
	}
	res.FreeSpace = free
	res.FreeSpaceHR = humanize.IBytes(free)

	return res
}

func ApplyRouter(s Snapshotter, downloadPath string) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(New(s, downloadPath)); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		})
	}
}
