package session

import (
	"fmt"

	"github.com/roach88/ffgraph/internal/bus"
)

// DefaultIdentifier is resolved for new documents and for documents saved
// without an identifier.
const DefaultIdentifier = "head"

// LoadMachine tracks one resolution of a resource identifier.
//
// A machine is created per New/Open (and per re-resolution before a save)
// and is never reused. Stages only move forward:
//
//	NotStarted < Started < Cloning < Loading < Completed
//
// Skipping stages is allowed; a cached resource may jump straight to
// Completed.
type LoadMachine struct {
	generation int64
	requested  string
	stage      bus.Stage
	history    []bus.Stage
	resolved   string
	err        error
}

// NewLoadMachine creates a machine in NotStarted for the given generation.
func NewLoadMachine(generation int64, requested string) *LoadMachine {
	return &LoadMachine{
		generation: generation,
		requested:  requested,
		stage:      bus.StageNotStarted,
		history:    []bus.Stage{bus.StageNotStarted},
	}
}

// Advance applies a progress message. Non-forward transitions, messages
// after a terminal state and completions without an identifier are rejected
// and leave the machine unchanged.
func (m *LoadMachine) Advance(p bus.Progress) error {
	if m.err != nil {
		return fmt.Errorf("load %d abandoned: %s ignored", m.generation, p.Stage)
	}
	if p.Stage <= m.stage {
		return fmt.Errorf("load %d: backward transition %s -> %s", m.generation, m.stage, p.Stage)
	}
	if p.Stage > bus.StageCompleted {
		return fmt.Errorf("load %d: unknown %s", m.generation, p.Stage)
	}
	if p.Stage == bus.StageCompleted && p.Identifier == "" {
		return fmt.Errorf("load %d: completed without identifier", m.generation)
	}

	m.stage = p.Stage
	m.history = append(m.history, p.Stage)
	if p.Stage == bus.StageCompleted {
		m.resolved = p.Identifier
	}
	return nil
}

// Fail abandons the load. A completed load cannot fail.
func (m *LoadMachine) Fail(err error) bool {
	if m.stage == bus.StageCompleted || m.err != nil {
		return false
	}
	m.err = err
	return true
}

// Generation returns the generation the machine was created with.
func (m *LoadMachine) Generation() int64 { return m.generation }

// Requested returns the identifier being resolved.
func (m *LoadMachine) Requested() string { return m.requested }

// Stage returns the latest accepted stage.
func (m *LoadMachine) Stage() bus.Stage { return m.stage }

// History returns every accepted stage in order, starting with NotStarted.
func (m *LoadMachine) History() []bus.Stage {
	out := make([]bus.Stage, len(m.history))
	copy(out, m.history)
	return out
}

// Completed reports whether the identifier has been resolved.
func (m *LoadMachine) Completed() bool { return m.stage == bus.StageCompleted }

// Resolved returns the resolved identifier, "" until Completed.
func (m *LoadMachine) Resolved() string { return m.resolved }

// Err returns the failure that abandoned the load, if any.
func (m *LoadMachine) Err() error { return m.err }

// Pending reports whether the load is neither completed nor abandoned.
func (m *LoadMachine) Pending() bool {
	return m.stage != bus.StageCompleted && m.err == nil
}
