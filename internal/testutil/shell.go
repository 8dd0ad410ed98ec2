package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/session"
)

// RecordingShell is a session.Shell that answers dialogs from queues and
// records everything the controller emits.
//
// An empty answer, or an exhausted queue, cancels the dialog.
type RecordingShell struct {
	mu          sync.Mutex
	openAnswers []string
	saveAnswers []string
	dialogErr   error

	titles  []string
	errors  []bus.ErrorPayload
	stages  []bus.StageChanged
	dialogs []bus.DialogMode
}

var _ session.Shell = (*RecordingShell)(nil)

// NewRecordingShell creates a shell with no queued answers.
func NewRecordingShell() *RecordingShell {
	return &RecordingShell{}
}

// AnswerOpen queues answers for open dialogs.
func (s *RecordingShell) AnswerOpen(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openAnswers = append(s.openAnswers, paths...)
}

// AnswerSave queues answers for save dialogs.
func (s *RecordingShell) AnswerSave(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAnswers = append(s.saveAnswers, paths...)
}

// FailDialogs makes every dialog fail with err.
func (s *RecordingShell) FailDialogs(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogErr = err
}

// PickOpenPath implements session.Shell.
func (s *RecordingShell) PickOpenPath(_ context.Context, _ []bus.DialogFilter) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs = append(s.dialogs, bus.DialogOpen)
	return s.pop(&s.openAnswers)
}

// PickSavePath implements session.Shell.
func (s *RecordingShell) PickSavePath(_ context.Context, _ []bus.DialogFilter) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs = append(s.dialogs, bus.DialogSave)
	return s.pop(&s.saveAnswers)
}

func (s *RecordingShell) pop(queue *[]string) (string, bool, error) {
	if s.dialogErr != nil {
		return "", false, s.dialogErr
	}
	if len(*queue) == 0 {
		return "", false, nil
	}
	path := (*queue)[0]
	*queue = (*queue)[1:]
	return path, path != "", nil
}

// SetTitle implements session.Shell.
func (s *RecordingShell) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
}

// EmitError implements session.Shell.
func (s *RecordingShell) EmitError(p bus.ErrorPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, p)
}

// StageChanged implements session.Shell.
func (s *RecordingShell) StageChanged(ev bus.StageChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, ev)
}

// Titles returns every title set so far.
func (s *RecordingShell) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

// Title returns the latest title, "" if none.
func (s *RecordingShell) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.titles) == 0 {
		return ""
	}
	return s.titles[len(s.titles)-1]
}

// Errors returns every emitted error payload.
func (s *RecordingShell) Errors() []bus.ErrorPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bus.ErrorPayload(nil), s.errors...)
}

// Stages returns every stage change.
func (s *RecordingShell) Stages() []bus.StageChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bus.StageChanged(nil), s.stages...)
}

// Dialogs returns the modes of every dialog shown.
func (s *RecordingShell) Dialogs() []bus.DialogMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bus.DialogMode(nil), s.dialogs...)
}
