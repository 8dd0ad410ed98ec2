package session

import (
	"context"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/graph"
)

// Gateway is the persistence backend the controller depends on.
type Gateway interface {
	// ReadDocument loads the document stored at path together with the
	// resource identifier it was saved with ("" if none).
	ReadDocument(ctx context.Context, path string) (graph.Document, string, error)

	// WriteDocument stores doc and identifier at path.
	WriteDocument(ctx context.Context, path string, doc graph.Document, identifier string) error

	// ResolveIdentifier starts resolving identifier and reports progress on
	// sink. The returned error says whether the request was accepted or the
	// pipeline failed; the outcome itself arrives as a completed message.
	ResolveIdentifier(ctx context.Context, sink ProgressSink, identifier string) error
}

// ProgressSink is the push channel of one resolution. Messages are
// delivered in the order they are sent.
type ProgressSink interface {
	Send(p bus.Progress)
}

// Shell is the host side of the command bus: dialogs, title and error
// display, telemetry.
type Shell interface {
	// PickOpenPath shows an open dialog. ok is false when the user cancelled.
	PickOpenPath(ctx context.Context, filters []bus.DialogFilter) (path string, ok bool, err error)

	// PickSavePath shows a save dialog. ok is false when the user cancelled.
	PickSavePath(ctx context.Context, filters []bus.DialogFilter) (path string, ok bool, err error)

	SetTitle(title string)
	EmitError(payload bus.ErrorPayload)
	StageChanged(ev bus.StageChanged)
}

// Recents records documents that were successfully opened or saved.
type Recents interface {
	RecordDocument(ctx context.Context, path, identifier string) error
}

// TaskRunner executes blocking work off the event loop.
// The default runner starts a goroutine per task.
type TaskRunner func(task func())

func goRunner(task func()) { go task() }
