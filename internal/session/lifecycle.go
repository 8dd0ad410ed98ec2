package session

import (
	"context"
	"fmt"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/graph"
)

// newDocument binds an empty, unnamed document and resolves the default
// identifier.
func (c *Controller) newDocument(ctx context.Context) {
	c.openTicket++
	c.bind(ctx, graph.Empty(), "", c.defaultIdentifier)
	c.logger.Info("new document", "generation", c.load.Generation())
}

// bind makes doc the current document. The dirty flag is cleared only after
// the replace returned, since the replace itself notifies the observer.
func (c *Controller) bind(ctx context.Context, doc graph.Document, path, identifier string) {
	c.epoch++
	c.dropPendingSave("document replaced")

	c.state.Bound = true
	c.store.Replace(doc)
	c.state.CurrentFilePath = path
	c.state.Dirty = false

	c.startResolution(ctx, identifier)
}

// open shows the open dialog. The read happens once a path is picked.
func (c *Controller) open(ctx context.Context) {
	c.openTicket++
	ticket := c.openTicket

	c.spawn(ctx, func(ctx context.Context) Event {
		path, ok, err := c.shell.PickOpenPath(ctx, docfile.DialogFilters)
		return openPicked{ticket: ticket, path: path, ok: ok, err: err}
	})
}

func (c *Controller) onOpenPicked(ctx context.Context, ev openPicked) {
	if ev.err != nil {
		c.report(&Error{Kind: KindIO, Op: "show open dialog", Err: ev.err})
		return
	}
	if !ev.ok || ev.path == "" {
		c.logger.Debug("open cancelled")
		return
	}
	if ev.ticket != c.openTicket {
		c.logger.Debug("open superseded", "path", ev.path, "ticket", ev.ticket, "current", c.openTicket)
		return
	}

	c.spawn(ctx, func(ctx context.Context) Event {
		doc, identifier, err := c.gateway.ReadDocument(ctx, ev.path)
		return openRead{ticket: ev.ticket, path: ev.path, doc: doc, identifier: identifier, err: err}
	})
}

func (c *Controller) onOpenRead(ctx context.Context, ev openRead) {
	if ev.err != nil {
		// The prior session is left untouched.
		c.report(classify("open", ev.path, ev.err))
		return
	}
	if ev.ticket != c.openTicket {
		c.logger.Debug("open result discarded", "path", ev.path, "ticket", ev.ticket, "current", c.openTicket)
		return
	}

	identifier := ev.identifier
	if identifier == "" {
		identifier = c.defaultIdentifier
	}
	c.bind(ctx, ev.doc, ev.path, identifier)
	c.logger.Info("document opened",
		"path", ev.path,
		"identifier", identifier,
		"generation", c.load.Generation(),
	)
	c.recordRecent(ctx, ev.path, ev.identifier)
}

// save writes to the current path, or behaves as save-as for an unnamed
// document.
func (c *Controller) save(ctx context.Context) {
	if !c.state.Bound {
		c.logger.Debug("save ignored: no document")
		return
	}
	if c.state.CurrentFilePath == "" {
		c.saveAs(ctx)
		return
	}
	c.saveTo(ctx, c.state.CurrentFilePath)
}

// saveAs always asks for a destination.
func (c *Controller) saveAs(ctx context.Context) {
	if !c.state.Bound {
		c.logger.Debug("save-as ignored: no document")
		return
	}
	epoch := c.epoch

	c.spawn(ctx, func(ctx context.Context) Event {
		path, ok, err := c.shell.PickSavePath(ctx, docfile.DialogFilters)
		return savePicked{epoch: epoch, path: path, ok: ok, err: err}
	})
}

func (c *Controller) onSavePicked(ctx context.Context, ev savePicked) {
	if ev.err != nil {
		c.report(&Error{Kind: KindIO, Op: "show save dialog", Err: ev.err})
		return
	}
	if !ev.ok || ev.path == "" {
		c.logger.Debug("save cancelled")
		return
	}
	if ev.epoch != c.epoch {
		c.logger.Debug("save destination discarded: document replaced", "path", ev.path)
		return
	}
	c.saveTo(ctx, docfile.WithExtension(ev.path))
}

// saveTo writes the document once the identifier is resolved.
//
// Saves never write an unresolved identifier: while resolution is running
// the save waits for it, and after a failed resolution the identifier is
// resolved again before writing.
func (c *Controller) saveTo(ctx context.Context, path string) {
	switch {
	case c.load != nil && c.load.Completed():
		c.write(ctx, path)

	case c.load == nil || c.load.Err() != nil:
		requested := c.state.RequestedIdentifier
		if requested == "" {
			requested = c.defaultIdentifier
		}
		c.startResolution(ctx, requested)
		c.pending = &pendingSave{path: path}
		c.logger.Info("save waiting for re-resolution", "path", path, "identifier", requested)

	default:
		c.pending = &pendingSave{path: path}
		c.logger.Info("save waiting for resolution",
			"path", path,
			"generation", c.load.Generation(),
			"stage", c.load.Stage(),
		)
	}
}

// write snapshots the store and hands the snapshot to the gateway.
func (c *Controller) write(ctx context.Context, path string) {
	doc := c.store.Snapshot()
	revision := c.store.Revision()
	identifier := c.load.Resolved()
	epoch := c.epoch

	c.logger.Debug("writing document", "path", path, "revision", revision, "identifier", identifier)

	c.spawn(ctx, func(ctx context.Context) Event {
		err := c.gateway.WriteDocument(ctx, path, doc, identifier)
		return saveWritten{epoch: epoch, path: path, revision: revision, identifier: identifier, err: err}
	})
}

func (c *Controller) onSaveWritten(ctx context.Context, ev saveWritten) {
	if ev.err != nil {
		c.report(classify("save", ev.path, ev.err))
		return
	}
	if ev.epoch != c.epoch {
		c.logger.Info("document saved after being replaced", "path", ev.path)
		return
	}

	c.state.CurrentFilePath = ev.path
	// Edits made while the write was in flight are not in the file.
	c.state.Dirty = c.store.Revision() != ev.revision
	c.logger.Info("document saved", "path", ev.path, "identifier", ev.identifier, "dirty", c.state.Dirty)
	c.recordRecent(ctx, ev.path, ev.identifier)
}

// closeDocument returns to the Empty state.
func (c *Controller) closeDocument() {
	if !c.state.Bound {
		c.logger.Debug("close ignored: no document")
		return
	}
	c.openTicket++
	c.epoch++
	c.dropPendingSave("document closed")

	c.store.Replace(graph.Empty())
	// Invalidate the running resolution, if any.
	c.clock.Next()
	c.load = nil
	c.state = State{}
	c.logger.Info("document closed")
}

// startResolution opens a fresh channel for identifier. Any previous
// channel becomes stale.
func (c *Controller) startResolution(ctx context.Context, identifier string) {
	generation := c.clock.Next()
	c.load = NewLoadMachine(generation, identifier)
	c.state.RequestedIdentifier = identifier
	c.state.ResourceIdentifier = ""

	sink := &channel{c: c, generation: generation}
	c.logger.Debug("resolution started", "identifier", identifier, "generation", generation)

	c.spawn(ctx, func(ctx context.Context) Event {
		err := c.gateway.ResolveIdentifier(ctx, sink, identifier)
		return resolveFinished{generation: generation, identifier: identifier, err: err}
	})
}

func (c *Controller) onProgress(ctx context.Context, ev progressEvent) {
	if c.load == nil || ev.generation != c.load.Generation() {
		c.logger.Debug("stale progress discarded",
			"generation", ev.generation,
			"current", c.clock.Current(),
			"stage", ev.progress.Stage,
		)
		return
	}

	if err := c.load.Advance(ev.progress); err != nil {
		c.logger.Warn("progress rejected", "error", err)
		return
	}

	c.shell.StageChanged(bus.StageChanged{
		Generation: ev.generation,
		Stage:      ev.progress.Stage,
		Identifier: ev.progress.Identifier,
	})

	if !c.load.Completed() {
		return
	}

	c.state.ResourceIdentifier = c.load.Resolved()
	c.logger.Info("identifier resolved",
		"requested", c.load.Requested(),
		"resolved", c.load.Resolved(),
		"generation", ev.generation,
	)

	if p := c.pending; p != nil {
		c.pending = nil
		c.write(ctx, p.path)
	}
}

func (c *Controller) onResolveFinished(_ context.Context, ev resolveFinished) {
	if ev.err == nil {
		return
	}
	if c.load == nil || ev.generation != c.load.Generation() {
		c.logger.Debug("stale resolution failure discarded",
			"generation", ev.generation,
			"identifier", ev.identifier,
			"error", ev.err,
		)
		return
	}
	if !c.load.Fail(ev.err) {
		c.logger.Warn("resolution error after completion", "generation", ev.generation, "error", ev.err)
		return
	}

	failure := &Error{Kind: KindResolution, Op: "resolve", Path: ev.identifier, Err: ev.err}
	payload := failure.Payload()
	if p := c.pending; p != nil {
		c.pending = nil
		abandoned := fmt.Sprintf("save to %s abandoned: %v", p.path, ErrUnresolved)
		payload.Errors = append(payload.Errors, abandoned)
	}

	c.logger.Error("operation failed", "op", failure.Op, "kind", failure.Kind, "path", failure.Path, "error", ev.err)
	c.shell.EmitError(payload)
}

func (c *Controller) dropPendingSave(reason string) {
	if c.pending == nil {
		return
	}
	c.logger.Info("pending save dropped", "path", c.pending.path, "reason", reason)
	c.pending = nil
}

func (c *Controller) recordRecent(ctx context.Context, path, identifier string) {
	if c.recents == nil {
		return
	}
	if err := c.recents.RecordDocument(ctx, path, identifier); err != nil {
		c.logger.Warn("recording recent document failed", "path", path, "error", err)
	}
}
