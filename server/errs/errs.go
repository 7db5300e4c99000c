package errs

import "errors"

var (
	// ErrMissingDependency indicates that a required executable could not be found.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrMissingCredentials indicates that the cookie file required by the host is absent.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrProcessSpawn indicates that the external process could not be started.
	ErrProcessSpawn = errors.New("failed to spawn process")
	// ErrProbeNoResults indicates a successful probe that yielded no selectable format.
	ErrProbeNoResults = errors.New("no compatible formats")
	// ErrProcessNonZeroExit indicates that the external process exited with a non-zero code.
	ErrProcessNonZeroExit = errors.New("nonzero exit")
	// ErrCancelled indicates a user or shutdown initiated cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrRename indicates that the post-download rename could not be performed.
	ErrRename = errors.New("rename failed")
	// ErrUnresponsive indicates a process that survived the forced kill window.
	ErrUnresponsive = errors.New("process did not terminate")
)

var (
	ErrBusy          = errors.New("an operation is already running")
	ErrNoURL         = errors.New("no url set")
	ErrNoSelection   = errors.New("no format selected")
	ErrUnknownFormat = errors.New("unknown format")
	ErrStopped       = errors.New("session controller stopped")
	ErrEmptyCookies  = errors.New("empty cookie content")
)
