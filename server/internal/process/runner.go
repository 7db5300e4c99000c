package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alessio/shellescape"
	"github.com/google/uuid"
	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
)

const (
	DefaultGracePeriod = 3 * time.Second
	DefaultKillGrace   = time.Second

	// how long a naturally exited process may keep its output pipe open
	// through leftover children before the stream is cut
	drainTimeout = 10 * time.Second

	maxLineSize = 1024 * 1024
)

type Options struct {
	// GracePeriod is how long a cancelled process gets to exit after the
	// termination request before it is killed.
	GracePeriod time.Duration
	// KillGrace is how long to wait for the kill to take effect.
	KillGrace time.Duration
	Dir       string
	Env       []string
}

func (o Options) withDefaults() Options {
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.KillGrace <= 0 {
		o.KillGrace = DefaultKillGrace
	}
	return o
}

// Runner owns a single invocation of an external executable. Standard output
// and standard error are merged into one line stream.
type Runner struct {
	Id string

	executable string
	opts       Options

	cmd    *exec.Cmd
	stream *os.File
	lines  chan string

	cancel     chan struct{}
	cancelOnce sync.Once
	closeOnce  sync.Once
	cancelled  atomic.Bool
	drained    atomic.Bool
	streamErr  atomic.Pointer[error]

	exited  chan struct{}
	settled chan struct{}
	waitErr error
}

// Start spawns executable with args. A missing executable is reported as
// errs.ErrMissingDependency, any other start failure as errs.ErrProcessSpawn.
func Start(executable string, args []string, opts Options) (*Runner, error) {
	opts = opts.withDefaults()

	cmd := exec.Command(executable, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrProcessSpawn, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	r := &Runner{
		Id:         uuid.NewString(),
		executable: executable,
		opts:       opts,
		cmd:        cmd,
		stream:     pr,
		lines:      make(chan string),
		cancel:     make(chan struct{}),
		exited:     make(chan struct{}),
		settled:    make(chan struct{}),
	}

	slog.Info("spawning process",
		slog.String("id", r.shortId()),
		slog.String("cmd", shellescape.QuoteCommand(append([]string{executable}, args...))),
	)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", errs.ErrMissingDependency, executable, err)
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrProcessSpawn, err)
	}

	// the child holds its own copy of the write end
	pw.Close()

	register(r)

	go r.scan()
	go r.wait()

	return r, nil
}

func (r *Runner) scan() {
	scanner := bufio.NewScanner(r.stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		select {
		case r.lines <- line:
		case <-r.cancel:
			close(r.lines)
			return
		}
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, os.ErrClosed) {
		close(r.lines)
		return
	}

	slog.Warn("output stream error",
		slog.String("id", r.shortId()),
		slog.Any("err", err),
	)
	r.streamErr.Store(&err)
	close(r.lines)

	// the child blocks on a full pipe unless someone keeps reading
	io.Copy(io.Discard, r.stream)
}

func (r *Runner) wait() {
	r.waitErr = r.cmd.Wait()
	unregister(r)
	close(r.exited)

	slog.Debug("process exited",
		slog.String("id", r.shortId()),
		slog.Int("code", r.cmd.ProcessState.ExitCode()),
	)

	time.AfterFunc(drainTimeout, r.closeStream)
}

func (r *Runner) closeStream() {
	r.closeOnce.Do(func() { r.stream.Close() })
}

// ReadLine blocks until the next output line is available. It returns false at
// the end of the stream or once the runner has been cancelled.
func (r *Runner) ReadLine() (string, bool) {
	if r.cancelled.Load() {
		return "", false
	}

	select {
	case line, ok := <-r.lines:
		if !ok {
			r.drained.Store(true)
			return "", false
		}
		return line, true
	case <-r.cancel:
		return "", false
	}
}

// Cancel asks the process to terminate and unblocks any pending ReadLine.
// A process still alive after the grace period is killed. Safe to call more
// than once.
func (r *Runner) Cancel() {
	r.cancelOnce.Do(func() {
		close(r.cancel)
		// the output already ended, the process is on its way out
		if r.drained.Load() {
			return
		}
		r.cancelled.Store(true)
		go r.terminate()
	})
}

func (r *Runner) terminate() {
	defer close(r.settled)
	defer r.closeStream()

	select {
	case <-r.exited:
		return
	default:
	}

	if err := terminate(r.cmd.Process); err != nil {
		slog.Debug("termination request failed", slog.String("id", r.shortId()), slog.Any("err", err))
	}

	select {
	case <-r.exited:
		return
	case <-time.After(r.opts.GracePeriod):
	}

	slog.Warn("process ignored termination request, killing",
		slog.String("id", r.shortId()),
		slog.Duration("grace", r.opts.GracePeriod),
	)

	if err := kill(r.cmd.Process); err != nil {
		slog.Warn("kill failed", slog.String("id", r.shortId()), slog.Any("err", err))
	}

	select {
	case <-r.exited:
	case <-time.After(r.opts.KillGrace):
		slog.Error("process did not terminate", slog.String("id", r.shortId()))
	}
}

// Wait blocks until the process exits and returns its exit code. Once
// cancelled it never waits longer than the grace and kill windows.
func (r *Runner) Wait() (int, error) {
	select {
	case <-r.exited:
	case <-r.settled:
		select {
		case <-r.exited:
		default:
			return -1, errs.ErrUnresponsive
		}
	}

	var exitErr *exec.ExitError
	if r.waitErr != nil && !errors.As(r.waitErr, &exitErr) {
		return -1, r.waitErr
	}

	return r.cmd.ProcessState.ExitCode(), nil
}

// Result waits for the process and maps its exit into an Outcome.
func (r *Runner) Result() Outcome {
	code, err := r.Wait()

	if r.cancelled.Load() {
		return Cancellation()
	}
	if err != nil {
		return Failure("process error", err)
	}
	if streamErr := r.streamErr.Load(); streamErr != nil {
		return Failure("process error", *streamErr)
	}
	if code != 0 {
		return Failure("nonzero exit", fmt.Errorf("%w: exit code %d", errs.ErrProcessNonZeroExit, code))
	}

	return Success()
}

func (r *Runner) shortId() string {
	return strings.Split(r.Id, "-")[0]
}

// Run starts the executable, hands every output line to onLine and returns
// the terminal outcome. Cancelling ctx cancels the process.
func Run(ctx context.Context, executable string, args []string, opts Options, onLine func(string)) Outcome {
	r, err := Start(executable, args, opts)
	if err != nil {
		return SpawnFailure(err)
	}

	stop := context.AfterFunc(ctx, r.Cancel)
	defer stop()

	for {
		line, ok := r.ReadLine()
		if !ok {
			break
		}
		if onLine != nil {
			onLine(line)
		}
	}

	return r.Result()
}

// SpawnFailure converts an error returned by Start into an Outcome.
func SpawnFailure(err error) Outcome {
	if errors.Is(err, errs.ErrMissingDependency) {
		return Failure("missing dependency", err)
	}
	return Failure("failed to start process", err)
}

var (
	registryMu sync.Mutex
	registry   = make(map[*Runner]struct{})
)

func register(r *Runner) {
	registryMu.Lock()
	registry[r] = struct{}{}
	registryMu.Unlock()
}

func unregister(r *Runner) {
	registryMu.Lock()
	delete(registry, r)
	registryMu.Unlock()
}

// Live returns the number of spawned processes that have not exited yet.
func Live() int {
	registryMu.Lock()
	defer registryMu.Unlock()
	return len(registry)
}

// KillAll forcibly kills every process still alive and returns how many
// were signalled.
func KillAll() int {
	registryMu.Lock()
	alive := make([]*Runner, 0, len(registry))
	for r := range registry {
		alive = append(alive, r)
	}
	registryMu.Unlock()

	for _, r := range alive {
		r.Cancel()
		if err := kill(r.cmd.Process); err != nil {
			slog.Warn("failed killing leftover process", slog.String("id", r.shortId()), slog.Any("err", err))
			continue
		}
		slog.Info("killed leftover process", slog.String("id", r.shortId()))
	}

	return len(alive)
}
