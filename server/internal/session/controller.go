package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/formats"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

type Options struct {
	Downloader downloaders.Options
	// SettleTimeout bounds how long a cancelled operation may take to report
	// back before the controller gives up on it. Defaults to the process
	// grace and kill windows plus one second.
	SettleTimeout time.Duration
}

// Controller sequences probe, selection and download for one URL at a time.
// All state is owned by the goroutine running Run; operations run on their
// own goroutine and only talk back through messages.
type Controller struct {
	opts   downloaders.Options
	settle time.Duration
	bus    EventBus.Bus

	cmds   chan command
	events chan workerMsg
	done   chan struct{}

	snapshot atomic.Pointer[State]

	// owned by the loop
	st       State
	op       *operation
	updating bool
	stopping bool
}

type operation struct {
	id       string
	activity Activity
	cancel   context.CancelFunc
}

type command struct {
	fn    func() error
	reply chan error
}

func NewController(opts Options, bus EventBus.Bus) *Controller {
	settle := opts.SettleTimeout
	if settle <= 0 {
		grace := opts.Downloader.Process.GracePeriod
		if grace <= 0 {
			grace = process.DefaultGracePeriod
		}
		kill := opts.Downloader.Process.KillGrace
		if kill <= 0 {
			kill = process.DefaultKillGrace
		}
		settle = grace + kill + time.Second
	}

	c := &Controller{
		opts:   opts.Downloader,
		settle: settle,
		bus:    bus,
		cmds:   make(chan command),
		events: make(chan workerMsg, 64),
		done:   make(chan struct{}),
	}
	c.commit()

	return c
}

// Run processes commands and operation messages until ctx is cancelled or
// Shutdown is called. An active operation is cancelled and awaited before
// Run returns. Bus handlers are invoked from this goroutine and must not call
// back into the controller synchronously.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	slog.Info("session controller started")

	for {
		select {
		case cmd := <-c.cmds:
			cmd.reply <- cmd.fn()
			if c.stopping {
				c.teardown()
				return nil
			}
		case msg := <-c.events:
			c.handle(msg)
		case <-ctx.Done():
			c.stopping = true
			c.teardown()
			return nil
		}
	}
}

func (c *Controller) teardown() {
	if !c.settleActive() {
		slog.Warn("shutting down with an unresponsive operation")
	}
	if n := process.KillAll(); n > 0 {
		slog.Warn("killed leftover processes", slog.Int("count", n))
	}
	slog.Info("session controller stopped")
}

func (c *Controller) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)

	select {
	case c.cmds <- command{fn: fn, reply: reply}:
	case <-c.done:
		return errs.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return errs.ErrStopped
		}
	}
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() State { return *c.snapshot.Load() }

// Busy reports whether an operation is running, e.g. to ask for
// confirmation before closing.
func (c *Controller) Busy() bool { return c.Snapshot().Busy() }

// SetURL changes the current URL. A different URL discards the catalog and
// selection. Not allowed while an operation is running.
func (c *Controller) SetURL(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)

	return c.do(ctx, func() error {
		if c.busy() {
			return errs.ErrBusy
		}
		c.changeURL(url)
		return nil
	})
}

// Start probes the URL when no catalog exists for it, otherwise downloads
// the selected format. A non-empty url different from the current one is set
// first. Any active operation is cancelled and awaited before the new one
// begins.
func (c *Controller) Start(ctx context.Context, url string) error {
	_, err := c.StartOperation(ctx, url)
	return err
}

// StartOperation is Start returning the id of the operation it began. The id
// is valid even when the operation already finished by the time the caller
// sees it.
func (c *Controller) StartOperation(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)

	var id string
	err := c.do(ctx, func() error {
		if c.updating {
			return errs.ErrBusy
		}

		if c.op != nil {
			c.settleActive()
		}
		if url != "" {
			c.changeURL(url)
		}

		if c.st.URL == "" {
			return errs.ErrNoURL
		}
		if c.st.catalog.IsEmpty() {
			id = c.begin(Probing)
			return nil
		}
		if c.st.Selected == "" {
			return errs.ErrNoSelection
		}

		id = c.begin(Downloading)
		return nil
	})

	return id, err
}

// Select picks a catalog entry by format identifier or display label.
func (c *Controller) Select(ctx context.Context, key string) error {
	return c.do(ctx, func() error {
		if c.busy() {
			return errs.ErrBusy
		}

		f, ok := c.st.catalog.ById(key)
		if !ok {
			f, ok = c.st.catalog.Lookup(key)
		}
		if !ok {
			return fmt.Errorf("%w: %s", errs.ErrUnknownFormat, key)
		}

		c.st.Selected = f.FormatId
		c.commit()
		return nil
	})
}

// Cancel requests cancellation of the active operation, if any. The outcome
// is published once the operation settled.
func (c *Controller) Cancel(ctx context.Context) error {
	return c.do(ctx, func() error {
		if c.op == nil {
			return nil
		}
		slog.Info("cancelling operation",
			slog.String("id", c.op.id),
			slog.String("activity", c.op.activity.String()),
		)
		c.op.cancel()
		return nil
	})
}

// UpdateCookies replaces the cookie file. The file is only written while no
// operation could be reading it.
func (c *Controller) UpdateCookies(ctx context.Context, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return errs.ErrEmptyCookies
	}

	return c.do(ctx, func() error {
		if c.busy() {
			return errs.ErrBusy
		}

		path := c.opts.CookiesPath
		if path == "" {
			return errors.New("no cookie file configured")
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return err
		}

		slog.Info("cookie file updated", slog.String("path", path))
		c.commit()
		return nil
	})
}

// RunExclusive runs fn while no operation can be started. It fails with
// errs.ErrBusy when an operation is already running.
func (c *Controller) RunExclusive(ctx context.Context, fn func(context.Context) error) error {
	err := c.do(ctx, func() error {
		if c.busy() {
			return errs.ErrBusy
		}
		c.updating = true
		c.commit()
		return nil
	})
	if err != nil {
		return err
	}

	defer c.do(context.Background(), func() error {
		c.updating = false
		c.commit()
		return nil
	})

	return fn(ctx)
}

// Shutdown cancels the active operation, waits for it within the bounded
// grace windows, kills any leftover process and stops the controller.
func (c *Controller) Shutdown(ctx context.Context) error {
	err := c.do(ctx, func() error {
		c.stopping = true
		return nil
	})
	if errors.Is(err, errs.ErrStopped) {
		return nil
	}
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) busy() bool { return c.op != nil || c.updating }

func (c *Controller) changeURL(url string) {
	if url == c.st.URL {
		return
	}

	c.st.URL = url
	c.st.LastOutcome = nil
	c.clearCatalog()
	c.commit()

	c.publish(TopicURL, url)
}

func (c *Controller) clearCatalog() {
	c.st.catalog = formats.Catalog{}
	c.st.Selected = ""
}

func (c *Controller) begin(activity Activity) string {
	ctx, cancel := context.WithCancel(context.Background())

	op := &operation{
		id:       uuid.NewString(),
		activity: activity,
		cancel:   cancel,
	}
	c.op = op

	url := c.st.URL
	onLine := func(line string) {
		c.send(workerMsg{opId: op.id, line: line})
	}

	slog.Info("starting operation",
		slog.String("id", op.id),
		slog.String("activity", activity.String()),
		slog.String("url", url),
	)

	switch activity {
	case Probing:
		p := downloaders.NewProbe(url, c.opts)
		p.OnLine = onLine

		c.spawn(op, func() opResult {
			catalog, out := p.Run(ctx)
			return opResult{catalog: catalog, outcome: out}
		})
	case Downloading:
		d := downloaders.NewDownload(url, c.st.Selected, c.st.catalog, c.opts)
		d.OnLine = onLine

		c.spawn(op, func() opResult {
			res, out := d.Run(ctx)
			return opResult{download: res, outcome: out}
		})
	}

	c.st.LastOutcome = nil
	c.commit()

	return op.id
}

// spawn runs fn on its own goroutine. Whatever happens, exactly one done
// message is delivered for op.
func (c *Controller) spawn(op *operation, fn func() opResult) {
	go func() {
		var res opResult

		defer func() {
			if r := recover(); r != nil {
				slog.Error("operation panicked",
					slog.String("id", op.id),
					slog.Any("panic", r),
				)
				res = opResult{outcome: process.Failure("internal error", fmt.Errorf("panic: %v", r))}
			}
			op.cancel()
			c.send(workerMsg{opId: op.id, done: &res})
		}()

		res = fn()
	}()
}

func (c *Controller) send(msg workerMsg) {
	select {
	case c.events <- msg:
	case <-c.done:
	}
}

func (c *Controller) handle(msg workerMsg) {
	// late messages of an operation that was given up on
	if c.op == nil || msg.opId != c.op.id {
		return
	}

	if msg.done == nil {
		c.publish(TopicLine, LineEvent{
			OperationId: c.op.id,
			Activity:    c.op.activity,
			Line:        msg.line,
		})
		return
	}

	c.finish(*msg.done)
}

func (c *Controller) finish(res opResult) {
	op := c.op
	c.op = nil

	ev := newOutcomeEvent(op, res.outcome)

	switch {
	case op.activity == Probing && res.outcome.OK():
		c.st.catalog = res.catalog
		c.st.Selected = ""
		if f, ok := res.catalog.First(); ok {
			c.st.Selected = f.FormatId
		}
	case op.activity == Downloading && res.outcome.OK():
		ev.Path = res.download.Path
		// the next start for the same URL probes again
		c.clearCatalog()
		c.publish(TopicDownloaded, res.download)
	default:
		c.clearCatalog()
	}

	c.st.LastOutcome = &ev

	level := slog.LevelInfo
	if !res.outcome.OK() {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "operation finished",
		slog.String("id", op.id),
		slog.String("activity", op.activity.String()),
		slog.String("outcome", res.outcome.String()),
		slog.Any("err", res.outcome.Err),
	)

	c.commit()
	c.publish(TopicOutcome, ev)
}

// settleActive cancels the active operation and processes its messages until
// it reported back. It reports false if the operation had to be abandoned.
func (c *Controller) settleActive() bool {
	op := c.op
	if op == nil {
		return true
	}

	op.cancel()

	timer := time.NewTimer(c.settle)
	defer timer.Stop()

	for c.op == op {
		select {
		case msg := <-c.events:
			c.handle(msg)
		case <-timer.C:
			slog.Error("operation did not settle",
				slog.String("id", op.id),
				slog.Duration("timeout", c.settle),
			)
			c.finish(opResult{outcome: process.Failure("process did not terminate", errs.ErrUnresponsive)})
			return false
		}
	}

	return true
}

func (c *Controller) commit() {
	s := c.st
	s.Formats = c.st.catalog.Formats()
	if s.Formats == nil {
		s.Formats = []formats.Format{}
	}
	s.Updating = c.updating
	s.CookiesRequired = s.URL != "" && downloaders.CookiesRequired(s.URL, c.opts.RequiredHosts)

	if c.op != nil {
		s.Activity = c.op.activity
		s.OperationId = c.op.id
	} else {
		s.Activity = Idle
		s.OperationId = ""
	}

	c.snapshot.Store(&s)
	c.publish(TopicState, s)
}

func (c *Controller) publish(topic string, arg any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(topic, arg)
}
