package session

import (
	"errors"
	"fmt"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/docfile"
)

// ErrorKind categorizes session errors.
type ErrorKind string

const (
	// KindValidation covers rejected edits such as dangling connections.
	// Validation errors are never shown to the user.
	KindValidation ErrorKind = "validation"

	// KindIO covers failed reads, writes and dialogs.
	KindIO ErrorKind = "io"

	// KindResolution covers a failed or unresolved resource identifier.
	KindResolution ErrorKind = "resolution"

	// KindProtocol covers undecodable payloads from the gateway.
	KindProtocol ErrorKind = "protocol"
)

// ErrUnresolved is reported when a save waited on a resolution that failed.
var ErrUnresolved = errors.New("resource identifier unresolved")

// Error is a failed external operation.
type Error struct {
	Kind ErrorKind
	Op   string // "open", "save", "resolve", "dialog"
	Path string // document path or resource identifier, if any
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the one-line summary shown to the user.
func (e *Error) Message() string {
	switch {
	case e.Op == "resolve" && e.Path != "":
		return fmt.Sprintf("failed to resolve %q", e.Path)
	case e.Path != "":
		return fmt.Sprintf("failed to %s %s", e.Op, e.Path)
	default:
		return fmt.Sprintf("failed to %s", e.Op)
	}
}

// Payload converts e to the uniform shell error shape. Errors holds the
// unwrap chain of the cause, outermost first.
func (e *Error) Payload() bus.ErrorPayload {
	return bus.ErrorPayload{
		Message: e.Message(),
		Errors:  causeChain(e.Err),
	}
}

func causeChain(err error) []string {
	chain := []string{}
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

// classify wraps a gateway failure. Malformed documents are protocol errors,
// everything else on the document path is an I/O error.
func classify(op, path string, err error) *Error {
	kind := KindIO
	if errors.Is(err, docfile.ErrMalformed) {
		kind = KindProtocol
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// IsKind reports whether err is a session Error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
