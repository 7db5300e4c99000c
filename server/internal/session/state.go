package session

import (
	"fmt"

	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
)

type Activity int

const (
	Idle Activity = iota
	Probing
	Downloading
)

func (a Activity) String() string {
	switch a {
	case Idle:
		return "idle"
	case Probing:
		return "probing"
	case Downloading:
		return "downloading"
	default:
		return fmt.Sprintf("activity(%d)", int(a))
	}
}

func (a Activity) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Activity) UnmarshalText(b []byte) error {
	for _, v := range []Activity{Idle, Probing, Downloading} {
		if v.String() == string(b) {
			*a = v
			return nil
		}
	}
	return fmt.Errorf("unknown activity %q", b)
}

// State is an immutable snapshot of the session. Only the controller loop
// produces new snapshots.
type State struct {
	URL         string   `json:"url"`
	Activity    Activity `json:"activity"`
	OperationId string   `json:"operation_id,omitempty"`
	// Updating is set while an exclusive maintenance task runs.
	Updating bool `json:"updating"`

	Formats  []formats.Format `json:"formats"`
	Selected string           `json:"selected,omitempty"`

	CookiesRequired bool          `json:"cookies_required"`
	LastOutcome     *OutcomeEvent `json:"last_outcome,omitempty"`

	catalog formats.Catalog
}

// Busy reports whether an operation or maintenance task is running.
func (s State) Busy() bool { return s.Activity != Idle || s.Updating }

// SelectedFormat returns the catalog entry of the current selection.
func (s State) SelectedFormat() (formats.Format, bool) {
	if s.Selected == "" {
		return formats.Format{}, false
	}
	return s.catalog.ById(s.Selected)
}
