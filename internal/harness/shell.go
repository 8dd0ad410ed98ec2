package harness

import (
	"context"
	"sync"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/session"
)

// transcriptShell is a session.Shell that records every outbound event in
// emission order. Dialog answers come from queues; an empty answer or an
// exhausted queue cancels the dialog.
type transcriptShell struct {
	mu          sync.Mutex
	openAnswers []string
	saveAnswers []string
	events      []bus.Outbound
}

var _ session.Shell = (*transcriptShell)(nil)

func (s *transcriptShell) answerOpen(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openAnswers = append(s.openAnswers, path)
}

func (s *transcriptShell) answerSave(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAnswers = append(s.saveAnswers, path)
}

func (s *transcriptShell) PickOpenPath(_ context.Context, filters []bus.DialogFilter) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, bus.DialogRequest{Mode: bus.DialogOpen, Filters: filters})
	return pop(&s.openAnswers)
}

func (s *transcriptShell) PickSavePath(_ context.Context, filters []bus.DialogFilter) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, bus.DialogRequest{Mode: bus.DialogSave, Filters: filters})
	return pop(&s.saveAnswers)
}

func pop(queue *[]string) (string, bool, error) {
	if len(*queue) == 0 {
		return "", false, nil
	}
	path := (*queue)[0]
	*queue = (*queue)[1:]
	return path, path != "", nil
}

func (s *transcriptShell) SetTitle(title string) {
	s.record(bus.TitleChanged{Title: title})
}

func (s *transcriptShell) EmitError(p bus.ErrorPayload) {
	s.record(p)
}

func (s *transcriptShell) StageChanged(ev bus.StageChanged) {
	s.record(ev)
}

func (s *transcriptShell) record(ev bus.Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// snapshot returns the recorded events.
func (s *transcriptShell) snapshot() []bus.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bus.Outbound, len(s.events))
	copy(out, s.events)
	return out
}

// errors returns the messages of the recorded error events.
func (s *transcriptShell) errors() []string {
	var out []string
	for _, ev := range s.snapshot() {
		if p, ok := ev.(bus.ErrorPayload); ok {
			out = append(out, p.Message)
		}
	}
	return out
}
