package bus

import (
	"encoding/json"
	"fmt"
)

// Stage is a step of the resolution pipeline. Stages are totally ordered:
// NotStarted < Started < Cloning < Loading < Completed.
type Stage int

const (
	StageNotStarted Stage = iota
	StageStarted
	StageCloning
	StageLoading
	StageCompleted
)

var stageNames = [...]string{"not-started", "started", "cloning", "loading", "completed"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stageNames) {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// Progress is one message on a resolution channel.
// Identifier is set only for StageCompleted.
type Progress struct {
	Stage      Stage
	Identifier string
}

// Started, Cloning and Loading build the non-terminal progress messages.
func Started() Progress { return Progress{Stage: StageStarted} }
func Cloning() Progress { return Progress{Stage: StageCloning} }
func Loading() Progress { return Progress{Stage: StageLoading} }

// Completed builds the terminal progress message.
func Completed(identifier string) Progress {
	return Progress{Stage: StageCompleted, Identifier: identifier}
}

type wireProgress struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier,omitempty"`
}

// MarshalJSON encodes p in the channel wire format.
func (p Progress) MarshalJSON() ([]byte, error) {
	if p.Stage == StageNotStarted {
		return nil, fmt.Errorf("not-started is not a channel message")
	}
	name, err := p.Stage.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireProgress{Type: string(name), Identifier: p.Identifier})
}

// UnmarshalJSON decodes a channel message. A completed message without an
// identifier is rejected.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var w wireProgress
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode progress: %w", err)
	}
	var stage Stage
	if err := stage.UnmarshalText([]byte(w.Type)); err != nil {
		return fmt.Errorf("decode progress: %w", err)
	}
	switch {
	case stage == StageNotStarted:
		return fmt.Errorf("decode progress: not-started is not a channel message")
	case stage == StageCompleted && w.Identifier == "":
		return fmt.Errorf("decode progress: completed requires an identifier")
	}
	*p = Progress{Stage: stage, Identifier: w.Identifier}
	return nil
}

// DecodeProgress parses one channel message.
func DecodeProgress(data []byte) (Progress, error) {
	var p Progress
	err := json.Unmarshal(data, &p)
	return p, err
}
