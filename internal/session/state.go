package session

import (
	"github.com/roach88/ffgraph/internal/bus"
)

// Titles shown for documents without a path.
const (
	AppTitle      = "FFgraph"
	UntitledTitle = "Untitled"
	dirtyMarker   = " *"
)

// State is a point-in-time copy of the session working set.
type State struct {
	// Bound is false while no document is open.
	Bound bool

	// CurrentFilePath is the file the document is associated with, "" if none.
	CurrentFilePath string

	// Dirty is true when the document has unsaved modifications.
	Dirty bool

	// RequestedIdentifier is the identifier being (or last) resolved.
	RequestedIdentifier string

	// ResourceIdentifier is the resolved identifier, "" until resolution completes.
	ResourceIdentifier string

	// LoadGeneration and LoadStage describe the current resolution.
	LoadGeneration int64
	LoadStage      bus.Stage
	LoadFailed     bool

	// SavePending is true while a save waits for resolution.
	SavePending bool

	Title string
}

// Title renders the window title for a session.
//
//	no document            FFgraph
//	unnamed, clean         Untitled
//	unnamed, dirty         Untitled *
//	named, clean           /path/doc.ffgraph
//	named, dirty           /path/doc.ffgraph *
func Title(bound bool, path string, dirty bool) string {
	if !bound {
		return AppTitle
	}
	name := path
	if name == "" {
		name = UntitledTitle
	}
	if dirty {
		return name + dirtyMarker
	}
	return name
}
