package bus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ffgraph/internal/graph"
)

// ErrUnknownMessage is returned by Decode for an unrecognised type tag.
var ErrUnknownMessage = errors.New("unknown message type")

// Message is implemented by every inbound message type.
type Message interface {
	messageType() string
}

// CommandKind names a lifecycle command issued from the host menu.
type CommandKind string

const (
	CommandNew    CommandKind = "new-graph"
	CommandOpen   CommandKind = "open-graph"
	CommandSave   CommandKind = "save-graph"
	CommandSaveAs CommandKind = "save-as-graph"
	CommandClose  CommandKind = "close-graph"
)

// Commands lists every lifecycle command in menu order.
var Commands = []CommandKind{CommandNew, CommandOpen, CommandSave, CommandSaveAs, CommandClose}

// Command is a payload-less lifecycle command.
type Command struct {
	Kind CommandKind
}

func (c Command) messageType() string { return string(c.Kind) }

// NodesChange carries node deltas from the rendering surface.
type NodesChange struct {
	Changes []graph.NodeChange `json:"changes"`
}

func (NodesChange) messageType() string { return "nodes-change" }

// EdgesChange carries edge deltas from the rendering surface.
type EdgesChange struct {
	Changes []graph.EdgeChange `json:"changes"`
}

func (EdgesChange) messageType() string { return "edges-change" }

// Connect carries a connection candidate.
type Connect struct {
	Connection graph.Connection `json:"connection"`
}

func (Connect) messageType() string { return "connect" }

// ViewportChange carries a pan/zoom update.
type ViewportChange struct {
	Viewport graph.Viewport `json:"viewport"`
}

func (ViewportChange) messageType() string { return "viewport-change" }

// DialogResult answers a DialogRequest. The dialog was dismissed when
// Cancelled is set or Path is empty.
type DialogResult struct {
	Path      string `json:"path,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func (DialogResult) messageType() string { return "dialog-result" }

// Dismissed reports whether the dialog produced no path.
func (d DialogResult) Dismissed() bool { return d.Cancelled || d.Path == "" }

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Type {
	case string(CommandNew), string(CommandOpen), string(CommandSave), string(CommandSaveAs), string(CommandClose):
		return Command{Kind: CommandKind(env.Type)}, nil
	case "nodes-change":
		return decodeAs[NodesChange](data)
	case "edges-change":
		return decodeAs[EdgesChange](data)
	case "connect":
		return decodeAs[Connect](data)
	case "viewport-change":
		return decodeAs[ViewportChange](data)
	case "dialog-result":
		return decodeAs[DialogResult](data)
	case "":
		return nil, fmt.Errorf("decode message: missing type")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		var zero T
		return nil, fmt.Errorf("decode %s: %w", zero.messageType(), err)
	}
	return msg, nil
}
