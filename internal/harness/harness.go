package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/graph"
	"github.com/roach88/ffgraph/internal/session"
	"github.com/roach88/ffgraph/internal/testutil"
)

// maxSettleRounds bounds the drain and run cycles of a single settle.
const maxSettleRounds = 1000

// ErrUnsettled is returned when a scenario keeps producing work.
var ErrUnsettled = errors.New("session did not settle")

// run holds the collaborators of one scenario execution.
type run struct {
	ctx        context.Context
	controller *session.Controller
	gateway    *testutil.MemoryGateway
	shell      *transcriptShell
	tasks      *testutil.ManualTasks
}

// Run executes a scenario and returns the result.
//
// The returned error reports a broken scenario (bad step payload, a session
// that never settles). Unmet expectations are recorded in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	r := newRun(scenario)

	for i, step := range scenario.Steps {
		if err := r.apply(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result := NewResult()
	result.State = r.controller.State()
	for _, ev := range r.shell.snapshot() {
		line, err := bus.Encode(ev)
		if err != nil {
			return nil, fmt.Errorf("encode transcript: %w", err)
		}
		result.Transcript = append(result.Transcript, string(line))
	}

	r.check(scenario.Expect, result)
	return result, nil
}

func newRun(s *Scenario) *run {
	gw := testutil.NewMemoryGateway()
	for _, path := range slices.Sorted(maps.Keys(s.Files)) {
		gw.PutRaw(path, []byte(s.Files[path]))
	}
	for id, fixture := range s.Resolve {
		gw.Script(id, fixture.script())
	}

	shell := &transcriptShell{}
	tasks := testutil.NewManualTasks()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := session.New(gw, shell,
		session.WithTaskRunner(tasks.Runner()),
		session.WithStore(graph.NewStore(graph.NewFixedGenerator("e1", "e2", "e3", "e4"))),
		session.WithLogger(logger),
	)
	return &run{
		ctx:        context.Background(),
		controller: c,
		gateway:    gw,
		shell:      shell,
		tasks:      tasks,
	}
}

// script converts the fixture into a gateway resolution script.
// Stages were validated by LoadScenario.
func (f ResolveFixture) script() testutil.ResolveScript {
	var s testutil.ResolveScript
	for _, name := range f.Stages {
		var stage bus.Stage
		_ = stage.UnmarshalText([]byte(name))
		s.Progress = append(s.Progress, bus.Progress{Stage: stage})
	}
	if f.Completed != "" {
		s.Progress = append(s.Progress, bus.Completed(f.Completed))
	}
	if f.Error != "" {
		s.Err = errors.New(f.Error)
	}
	return s
}

func (r *run) apply(step Step) error {
	switch {
	case step.AnswerOpen != nil:
		r.shell.answerOpen(*step.AnswerOpen)
		return nil
	case step.AnswerSave != nil:
		r.shell.answerSave(*step.AnswerSave)
		return nil
	case step.Send != nil:
		data, err := json.Marshal(step.Send)
		if err != nil {
			return fmt.Errorf("marshal send: %w", err)
		}
		msg, err := bus.Decode(data)
		if err != nil {
			return err
		}
		r.controller.SubmitMessage(msg)
	}

	switch step.Run {
	case RunHold:
		return r.drain()
	case RunNext, RunLast:
		if err := r.drain(); err != nil {
			return err
		}
		if step.Run == RunNext {
			r.tasks.RunNext()
		} else {
			r.tasks.RunLast()
		}
		return r.drain()
	default:
		return r.settle()
	}
}

func (r *run) drain() error {
	return r.controller.Drain(r.ctx)
}

// settle alternates between draining the controller and running tasks until
// neither has work left.
func (r *run) settle() error {
	for range maxSettleRounds {
		if err := r.drain(); err != nil {
			return err
		}
		if r.tasks.Len() == 0 {
			return nil
		}
		r.tasks.RunAll()
	}
	return ErrUnsettled
}
