package bus

import (
	"encoding/json"
	"fmt"
)

// Outbound is implemented by every event the controller emits to the shell.
type Outbound interface {
	eventType() string
}

// ErrorPayload is the uniform error shape shown by the shell.
// Errors lists the underlying causes, outermost first.
type ErrorPayload struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func (ErrorPayload) eventType() string { return "error-message" }

// TitleChanged reports the new window title.
type TitleChanged struct {
	Title string `json:"title"`
}

func (TitleChanged) eventType() string { return "title-changed" }

// DialogMode selects between an open and a save dialog.
type DialogMode string

const (
	DialogOpen DialogMode = "open"
	DialogSave DialogMode = "save"
)

// DialogFilter restricts selectable files in a dialog.
type DialogFilter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// DialogRequest asks the shell to show a file dialog and answer with a
// DialogResult.
type DialogRequest struct {
	Mode    DialogMode     `json:"mode"`
	Filters []DialogFilter `json:"filters"`
}

func (DialogRequest) eventType() string { return "dialog-request" }

// StageChanged is telemetry for resolution progress.
type StageChanged struct {
	Generation int64  `json:"generation"`
	Stage      Stage  `json:"stage"`
	Identifier string `json:"identifier,omitempty"`
}

func (StageChanged) eventType() string { return "load-stage" }

// Encode renders ev as a single JSON object with a "type" discriminator.
func Encode(ev Outbound) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.eventType(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.eventType(), err)
	}
	typ, _ := json.Marshal(ev.eventType())
	fields["type"] = typ
	return json.Marshal(fields)
}
