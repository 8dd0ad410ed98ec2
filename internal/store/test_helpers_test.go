package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ffgraph/internal/options"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResolution creates a resolution with a one-option catalogue.
func createTestResolution(requested, resolved string) Resolution {
	return Resolution{
		Requested: requested,
		Resolved:  resolved,
		Workspace: "/tmp/ws/" + requested,
		Options: []options.GlobalOption{{
			Key:    "hide_banner",
			Name:   "hide banner",
			Flag:   "hide_banner",
			Type:   options.TypeBoolean,
			Values: &options.TrueFalse{True: "on", False: "off"},
		}},
	}
}
