package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ffgraph/internal/bus"
)

// Run modes applied after a step.
const (
	RunSettle = "settle"
	RunHold   = "hold"
	RunNext   = "next"
	RunLast   = "last"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files are documents present before the first step, keyed by path.
	// Values are raw .ffgraph content.
	Files map[string]string `yaml:"files,omitempty"`

	// Resolve scripts identifier resolution. Identifiers without a script
	// go through started and loading and complete as "resolved:<identifier>".
	Resolve map[string]ResolveFixture `yaml:"resolve,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect Expectation `yaml:"expect"`
}

// ResolveFixture is the scripted resolution of one identifier.
type ResolveFixture struct {
	// Stages are the progress stages reported before completion.
	Stages []string `yaml:"stages"`

	// Completed is the resolved identifier. Empty means no completion.
	Completed string `yaml:"completed,omitempty"`

	// Error fails the resolution after the stages.
	Error string `yaml:"error,omitempty"`
}

// Step is one scenario action.
type Step struct {
	// Send is a bus message in wire form.
	Send map[string]any `yaml:"send,omitempty"`

	// AnswerOpen and AnswerSave queue a dialog answer.
	AnswerOpen *string `yaml:"answer_open,omitempty"`
	AnswerSave *string `yaml:"answer_save,omitempty"`

	// Run is applied after Send, or on its own: settle, hold, next or last.
	Run string `yaml:"run,omitempty"`
}

// Expectation describes the session after the last step.
// Nil and absent fields are not checked.
type Expectation struct {
	State *StateExpect `yaml:"state,omitempty"`

	// Errors lists the messages of every emitted error, in order.
	Errors []string `yaml:"errors"`

	// Files are documents that must exist after the last step.
	Files map[string]FileExpect `yaml:"files,omitempty"`

	// Resolves lists the identifiers passed to the gateway, in order.
	Resolves []string `yaml:"resolves,omitempty"`
}

// StateExpect is a subset match over session.State.
type StateExpect struct {
	Bound       *bool   `yaml:"bound,omitempty"`
	Path        *string `yaml:"path,omitempty"`
	Dirty       *bool   `yaml:"dirty,omitempty"`
	Title       *string `yaml:"title,omitempty"`
	Requested   *string `yaml:"requested,omitempty"`
	Identifier  *string `yaml:"identifier,omitempty"`
	Stage       *string `yaml:"stage,omitempty"`
	SavePending *bool   `yaml:"save_pending,omitempty"`
	Nodes       *int    `yaml:"nodes,omitempty"`
	Edges       *int    `yaml:"edges,omitempty"`
}

// FileExpect describes a written document.
type FileExpect struct {
	Nodes      int    `yaml:"nodes"`
	Edges      int    `yaml:"edges"`
	Identifier string `yaml:"identifier"`
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for id, fixture := range s.Resolve {
		for i, name := range fixture.Stages {
			var stage bus.Stage
			if err := stage.UnmarshalText([]byte(name)); err != nil {
				return fmt.Errorf("resolve[%s].stages[%d]: %w", id, i, err)
			}
			if stage == bus.StageNotStarted || stage == bus.StageCompleted {
				return fmt.Errorf("resolve[%s].stages[%d]: %s is not a progress stage", id, i, name)
			}
		}
		if fixture.Completed == "" && fixture.Error == "" {
			return fmt.Errorf("resolve[%s]: completed or error is required", id)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if st := s.Expect.State; st != nil && st.Stage != nil {
		var stage bus.Stage
		if err := stage.UnmarshalText([]byte(*st.Stage)); err != nil {
			return fmt.Errorf("expect.state.stage: %w", err)
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	actions := 0
	if step.Send != nil {
		actions++
	}
	if step.AnswerOpen != nil {
		actions++
	}
	if step.AnswerSave != nil {
		actions++
	}

	switch {
	case actions > 1:
		return fmt.Errorf("steps[%d]: send, answer_open and answer_save are exclusive", index)
	case actions == 0 && step.Run == "":
		return fmt.Errorf("steps[%d]: empty step", index)
	case step.Send == nil && step.Run != "" && actions > 0:
		return fmt.Errorf("steps[%d]: run only applies to send", index)
	}

	switch step.Run {
	case "", RunSettle, RunHold, RunNext, RunLast:
	default:
		return fmt.Errorf("steps[%d]: unknown run mode %q", index, step.Run)
	}

	if step.Send != nil {
		if _, ok := step.Send["type"].(string); !ok {
			return fmt.Errorf("steps[%d]: send requires a string type", index)
		}
	}
	return nil
}
