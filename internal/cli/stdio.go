package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/session"
)

// maxLineSize bounds one inbound JSON line.
const maxLineSize = 4 << 20

// maxQueuedAnswers bounds dialog-results read ahead of their dialogs.
const maxQueuedAnswers = 64

// errTooManyAnswers is reported when dialog-results pile up with no dialog
// consuming them.
var errTooManyAnswers = errors.New("too many unanswered dialog results")

// stdioShell is a session.Shell speaking JSON lines. Every outbound event is
// one line on w; dialog answers arrive as dialog-result lines read by pump.
//
// Dialogs are shown one at a time and answers are queued, so the n-th
// dialog-result answers the n-th dialog even when it is read before the
// dialog-request is written. After end of input every dialog is cancelled.
type stdioShell struct {
	logger *slog.Logger

	writeMu sync.Mutex
	w       io.Writer

	dialogMu sync.Mutex // held while a dialog is open
	answers  chan bus.DialogResult

	closeOnce sync.Once
	closed    chan struct{}
}

var _ session.Shell = (*stdioShell)(nil)

func newStdioShell(w io.Writer, logger *slog.Logger) *stdioShell {
	return &stdioShell{
		logger:  logger,
		w:       w,
		answers: make(chan bus.DialogResult, maxQueuedAnswers),
		closed:  make(chan struct{}),
	}
}

func (s *stdioShell) PickOpenPath(ctx context.Context, filters []bus.DialogFilter) (string, bool, error) {
	return s.pick(ctx, bus.DialogOpen, filters)
}

func (s *stdioShell) PickSavePath(ctx context.Context, filters []bus.DialogFilter) (string, bool, error) {
	return s.pick(ctx, bus.DialogSave, filters)
}

func (s *stdioShell) pick(ctx context.Context, mode bus.DialogMode, filters []bus.DialogFilter) (string, bool, error) {
	s.dialogMu.Lock()
	defer s.dialogMu.Unlock()

	if err := s.emit(bus.DialogRequest{Mode: mode, Filters: filters}); err != nil {
		return "", false, err
	}

	// Queued answers win over end of input.
	select {
	case res := <-s.answers:
		return res.Path, !res.Dismissed(), nil
	default:
	}

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-s.answers:
		return res.Path, !res.Dismissed(), nil
	case <-s.closed:
		s.logger.Debug("dialog cancelled: input closed", "mode", mode)
		return "", false, nil
	}
}

// answer queues a dialog-result for the current or next dialog.
func (s *stdioShell) answer(res bus.DialogResult) error {
	select {
	case s.answers <- res:
		return nil
	default:
		return errTooManyAnswers
	}
}

// closeInput marks the end of input. Dialogs without a queued answer are
// cancelled from then on.
func (s *stdioShell) closeInput() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *stdioShell) SetTitle(title string) {
	s.emitLogged(bus.TitleChanged{Title: title})
}

func (s *stdioShell) EmitError(p bus.ErrorPayload) {
	s.emitLogged(p)
}

func (s *stdioShell) StageChanged(ev bus.StageChanged) {
	s.emitLogged(ev)
}

func (s *stdioShell) emitLogged(ev bus.Outbound) {
	if err := s.emit(ev); err != nil {
		s.logger.Error("writing event failed", "error", err)
	}
}

func (s *stdioShell) emit(ev bus.Outbound) error {
	line, err := bus.Encode(ev)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// pump reads inbound lines from r until EOF. Dialog results go to the open
// dialog, everything else to submit. Undecodable lines are reported as error
// events and skipped.
func (s *stdioShell) pump(r io.Reader, submit func(bus.Message) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := bus.Decode(line)
		if err != nil {
			s.EmitError(bus.ErrorPayload{Message: "failed to decode message", Errors: []string{err.Error()}})
			continue
		}

		if res, ok := msg.(bus.DialogResult); ok {
			if err := s.answer(res); err != nil {
				s.logger.Warn("dialog result dropped", "path", res.Path, "error", err)
			}
			continue
		}

		if !submit(msg) {
			return nil
		}
	}
	return scanner.Err()
}
