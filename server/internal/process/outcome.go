package process

import (
	"errors"

	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
)

type OutcomeKind int

const (
	Succeeded OutcomeKind = iota
	Failed
	Cancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of an external process invocation.
// Reason is meant for humans, Err for errors.Is.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	Err    error       `json:"-"`
}

func Success() Outcome { return Outcome{Kind: Succeeded} }

func Failure(reason string, err error) Outcome {
	return Outcome{Kind: Failed, Reason: reason, Err: err}
}

func Cancellation() Outcome {
	return Outcome{Kind: Cancelled, Reason: "cancelled", Err: errs.ErrCancelled}
}

func (o Outcome) OK() bool { return o.Kind == Succeeded }

// Is reports whether the outcome wraps target.
func (o Outcome) Is(target error) bool { return o.Err != nil && errors.Is(o.Err, target) }

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Reason
}
