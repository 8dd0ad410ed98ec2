package session

import (
	"github.com/roach88/ffgraph/internal/bus"
	"github.com/roach88/ffgraph/internal/graph"
)

// Event is anything the controller loop processes.
type Event interface {
	sessionEvent()
}

// Inbound wraps a decoded bus message (lifecycle command or graph edit).
type Inbound struct {
	Message bus.Message
}

func (Inbound) sessionEvent() {}

// taskDone carries the result of a spawned task. event may be nil.
type taskDone struct {
	event Event
}

func (taskDone) sessionEvent() {}

// wakeEvent only makes the loop re-check whether it may stop.
type wakeEvent struct{}

func (wakeEvent) sessionEvent() {}

// openPicked is the result of the open dialog.
type openPicked struct {
	ticket int64
	path   string
	ok     bool
	err    error
}

// openRead is the result of reading the chosen document.
type openRead struct {
	ticket     int64
	path       string
	doc        graph.Document
	identifier string
	err        error
}

// savePicked is the result of the save dialog.
type savePicked struct {
	epoch int64
	path  string
	ok    bool
	err   error
}

// saveWritten is the result of writing a snapshot.
type saveWritten struct {
	epoch      int64
	path       string
	revision   uint64
	identifier string
	err        error
}

// progressEvent is one message from a resolution channel.
type progressEvent struct {
	generation int64
	progress   bus.Progress
}

// resolveFinished reports that ResolveIdentifier returned.
type resolveFinished struct {
	generation int64
	identifier string
	err        error
}

func (openPicked) sessionEvent()      {}
func (openRead) sessionEvent()        {}
func (savePicked) sessionEvent()      {}
func (saveWritten) sessionEvent()     {}
func (progressEvent) sessionEvent()   {}
func (resolveFinished) sessionEvent() {}

// channel is the single-use progress sink of one resolution.
type channel struct {
	c          *Controller
	generation int64
}

func (ch *channel) Send(p bus.Progress) {
	ch.c.Submit(progressEvent{generation: ch.generation, progress: p})
}
