package session

import (
	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

// Bus topics. Handlers receive exactly one argument of the listed type.
const (
	TopicLine       = "session:line"       // LineEvent
	TopicState      = "session:state"      // State
	TopicOutcome    = "session:outcome"    // OutcomeEvent
	TopicURL        = "session:url"        // string
	TopicDownloaded = "session:downloaded" // downloaders.Result
)

type LineEvent struct {
	OperationId string   `json:"operation_id"`
	Activity    Activity `json:"activity"`
	Line        string   `json:"line"`
}

type OutcomeEvent struct {
	OperationId string   `json:"operation_id"`
	Activity    Activity `json:"activity"`
	Kind        string   `json:"kind"`
	Reason      string   `json:"reason,omitempty"`
	// Path of the downloaded file, downloads only.
	Path string `json:"path,omitempty"`
}

func newOutcomeEvent(op *operation, out process.Outcome) OutcomeEvent {
	return OutcomeEvent{
		OperationId: op.id,
		Activity:    op.activity,
		Kind:        out.Kind.String(),
		Reason:      out.Reason,
	}
}

// NewBus returns the bus the controller publishes on.
func NewBus() EventBus.Bus { return EventBus.New() }

// worker -> loop messages
type workerMsg struct {
	opId string
	line string
	done *opResult
}

type opResult struct {
	catalog  formats.Catalog
	download downloaders.Result
	outcome  process.Outcome
}
