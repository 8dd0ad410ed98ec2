package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/roach88/ffgraph/internal/session"
)

// ManualTasks is a session.TaskRunner that queues tasks until the test runs
// them, making the interleaving of async results and other events explicit.
type ManualTasks struct {
	mu    sync.Mutex
	tasks []func()
}

// NewManualTasks creates an empty task queue.
func NewManualTasks() *ManualTasks {
	return &ManualTasks{}
}

// Runner returns the session.TaskRunner backed by this queue.
func (m *ManualTasks) Runner() session.TaskRunner {
	return func(task func()) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.tasks = append(m.tasks, task)
	}
}

// Len returns the number of queued tasks.
func (m *ManualTasks) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// RunNext runs the oldest queued task.
func (m *ManualTasks) RunNext() bool {
	return m.runAt(0)
}

// RunLast runs the newest queued task.
func (m *ManualTasks) RunLast() bool {
	return m.runAt(-1)
}

func (m *ManualTasks) runAt(i int) bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	if i < 0 {
		i = len(m.tasks) - 1
	}
	task := m.tasks[i]
	m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
	m.mu.Unlock()

	task()
	return true
}

// RunAll runs every queued task in order, including tasks queued meanwhile.
func (m *ManualTasks) RunAll() int {
	n := 0
	for m.RunNext() {
		n++
	}
	return n
}

// Settle alternates between draining the controller and running tasks until
// neither has work left.
func Settle(t testing.TB, c *session.Controller, tasks *ManualTasks) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if err := c.Drain(ctx); err != nil {
			t.Fatalf("drain: %v", err)
		}
		if tasks.Len() == 0 {
			return
		}
		tasks.RunAll()
	}
	t.Fatalf("session did not settle")
}

// Step drains the controller once without running tasks.
func Step(t testing.TB, c *session.Controller) {
	t.Helper()
	if err := c.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}
