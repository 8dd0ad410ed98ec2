package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/graph"
)

// Controller is the single-writer session controller.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run() / Drain(): exactly one goroutine at a time
//   - State(), Document(): safe from any goroutine
type Controller struct {
	gateway Gateway
	shell   Shell
	recents Recents
	store   *graph.Store
	queue   *eventQueue
	clock   *Clock
	runTask TaskRunner
	logger  *slog.Logger

	defaultIdentifier string

	// Loop-owned state. Only touched from the goroutine running Run/Drain.
	state       State
	load        *LoadMachine
	pending     *pendingSave
	openTicket  int64 // bumped by Open, New and Close
	epoch       int64 // bumped whenever the bound document changes
	lastTitle   string
	titleIssued bool
	inflight    int // spawned tasks whose result is not processed yet

	published    atomic.Pointer[State]
	loopMu       sync.Mutex
	stopWhenIdle atomic.Bool
}

// pendingSave is a save waiting for the resolution of the current generation.
type pendingSave struct {
	path string
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore uses s as the graph store instead of a fresh one.
func WithStore(s *graph.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithTaskRunner replaces the goroutine-per-task runner.
// Tests use a manual runner to interleave events deterministically.
func WithTaskRunner(r TaskRunner) Option {
	return func(c *Controller) { c.runTask = r }
}

// WithRecents records successfully opened and saved documents.
func WithRecents(r Recents) Option {
	return func(c *Controller) { c.recents = r }
}

// WithDefaultIdentifier changes the identifier resolved for new documents.
func WithDefaultIdentifier(id string) Option {
	return func(c *Controller) { c.defaultIdentifier = id }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller in the Empty state.
func New(gw Gateway, shell Shell, opts ...Option) *Controller {
	c := &Controller{
		gateway:           gw,
		shell:             shell,
		queue:             newEventQueue(),
		clock:             NewClock(),
		runTask:           goRunner,
		logger:            slog.Default(),
		defaultIdentifier: DefaultIdentifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = graph.NewStore(nil)
	}
	c.store.OnChange(c.observe)
	c.state.Title = Title(false, "", false)
	c.publish()
	return c
}

// Submit enqueues an event. Returns false once the controller has stopped.
func (c *Controller) Submit(ev Event) bool {
	return c.queue.Enqueue(ev)
}

// SubmitMessage enqueues a decoded bus message.
func (c *Controller) SubmitMessage(msg bus.Message) bool {
	return c.Submit(Inbound{Message: msg})
}

// Run processes events until ctx is cancelled, Stop is called, or the
// controller goes idle after StopWhenIdle.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("session controller starting")

	for {
		if err := c.Drain(ctx); err != nil {
			c.queue.Close()
			return err
		}
		if c.idle() {
			c.logger.Info("session controller stopping: idle")
			c.queue.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			c.logger.Info("session controller stopping: context cancelled")
			c.queue.Close()
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel is closed by Stop; drain what is left and return.
			if c.queue.Len() == 0 && c.queue.Closed() {
				c.logger.Info("session controller stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain processes queued events until the queue is empty.
func (c *Controller) Drain(ctx context.Context) error {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := c.queue.TryDequeue()
		if !ok {
			return nil
		}
		c.process(ctx, ev)
	}
}

// Stop closes the queue; Run returns after the remaining events.
// Results of tasks still running are dropped.
func (c *Controller) Stop() {
	c.queue.Close()
}

// StopWhenIdle makes Run return once no event is queued and every spawned
// task has reported back, so in-flight opens, resolutions and saves finish.
func (c *Controller) StopWhenIdle() {
	c.stopWhenIdle.Store(true)
	c.Submit(wakeEvent{})
}

func (c *Controller) idle() bool {
	if !c.stopWhenIdle.Load() {
		return false
	}
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	return c.inflight == 0 && c.queue.Len() == 0
}

// Pending returns the number of queued events.
func (c *Controller) Pending() int {
	return c.queue.Len()
}

// State returns a copy of the session state as of the last processed event.
func (c *Controller) State() State {
	return *c.published.Load()
}

// Document returns a snapshot of the live graph.
func (c *Controller) Document() graph.Document {
	return c.store.Snapshot()
}

// Store exposes the graph store for read access by the rendering surface.
// Mutations must go through Submit.
func (c *Controller) Store() *graph.Store {
	return c.store
}

// process routes one event. Called only from the loop goroutine.
func (c *Controller) process(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case wakeEvent:
		return
	case taskDone:
		c.inflight--
		if e.event == nil {
			return
		}
		ev = e.event
	}

	switch e := ev.(type) {
	case Inbound:
		c.handleMessage(ctx, e.Message)
	case openPicked:
		c.onOpenPicked(ctx, e)
	case openRead:
		c.onOpenRead(ctx, e)
	case savePicked:
		c.onSavePicked(ctx, e)
	case saveWritten:
		c.onSaveWritten(ctx, e)
	case progressEvent:
		c.onProgress(ctx, e)
	case resolveFinished:
		c.onResolveFinished(ctx, e)
	default:
		c.logger.Error("unknown session event", "type", fmt.Sprintf("%T", ev))
	}

	c.syncTitle()
	c.publish()
}

func (c *Controller) handleMessage(ctx context.Context, msg bus.Message) {
	switch m := msg.(type) {
	case bus.Command:
		c.handleCommand(ctx, m.Kind)
	case bus.NodesChange:
		if c.editable("nodes-change") {
			c.store.ApplyNodeChanges(m.Changes)
		}
	case bus.EdgesChange:
		if c.editable("edges-change") {
			c.store.ApplyEdgeChanges(m.Changes)
		}
	case bus.Connect:
		if c.editable("connect") {
			if _, ok := c.store.Connect(m.Connection); !ok {
				c.logger.Debug("connection rejected",
					"kind", KindValidation,
					"source", m.Connection.Source,
					"target", m.Connection.Target,
				)
			}
		}
	case bus.ViewportChange:
		if c.editable("viewport-change") {
			c.store.SetViewport(m.Viewport)
		}
	case bus.DialogResult:
		// Dialog answers are consumed by the Shell implementation.
		c.logger.Warn("unexpected dialog result on command bus", "path", m.Path)
	default:
		c.logger.Error("unknown bus message", "type", fmt.Sprintf("%T", msg))
	}
}

func (c *Controller) handleCommand(ctx context.Context, kind bus.CommandKind) {
	c.logger.Debug("command", "kind", kind, "bound", c.state.Bound, "path", c.state.CurrentFilePath)

	switch kind {
	case bus.CommandNew:
		c.newDocument(ctx)
	case bus.CommandOpen:
		c.open(ctx)
	case bus.CommandSave:
		c.save(ctx)
	case bus.CommandSaveAs:
		c.saveAs(ctx)
	case bus.CommandClose:
		c.closeDocument()
	default:
		c.logger.Error("unknown command", "kind", kind)
	}
}

// editable reports whether graph edits are accepted. Without a bound
// document there is nothing to edit.
func (c *Controller) editable(op string) bool {
	if !c.state.Bound {
		c.logger.Debug("edit ignored: no document", "op", op)
		return false
	}
	return true
}

// observe is the store mutation observer. Every mutation while bound makes
// the session dirty; loads reset the flag after their replace returns.
func (c *Controller) observe(graph.Mutation) {
	if c.state.Bound {
		c.state.Dirty = true
	}
}

// spawn runs task off the loop and submits its result.
func (c *Controller) spawn(ctx context.Context, task func(context.Context) Event) {
	c.inflight++
	c.runTask(func() {
		c.Submit(taskDone{event: task(ctx)})
	})
}

// report emits one error event for a failed external operation.
func (c *Controller) report(err *Error) {
	c.logger.Error("operation failed",
		"op", err.Op,
		"kind", err.Kind,
		"path", err.Path,
		"error", err.Err,
	)
	c.shell.EmitError(err.Payload())
}

func (c *Controller) syncTitle() {
	title := Title(c.state.Bound, c.state.CurrentFilePath, c.state.Dirty)
	c.state.Title = title
	if c.titleIssued && title == c.lastTitle {
		return
	}
	c.lastTitle = title
	c.titleIssued = true
	c.shell.SetTitle(title)
}

func (c *Controller) publish() {
	s := c.state
	if c.load != nil {
		s.LoadGeneration = c.load.Generation()
		s.LoadStage = c.load.Stage()
		s.LoadFailed = c.load.Err() != nil
	} else {
		s.LoadGeneration = 0
		s.LoadStage = bus.StageNotStarted
		s.LoadFailed = false
	}
	s.SavePending = c.pending != nil
	c.published.Store(&s)
}

// LoadHistory returns the accepted stages of the current resolution.
// Must be called when the loop is idle (after Drain returns).
func (c *Controller) LoadHistory() []bus.Stage {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.load == nil {
		return nil
	}
	return c.load.History()
}
