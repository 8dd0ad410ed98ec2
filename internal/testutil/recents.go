package testutil

import (
	"context"
	"sync"
)

// RecentEntry is one recorded document.
type RecentEntry struct {
	Path       string
	Identifier string
}

// MemoryRecents records documents in call order.
type MemoryRecents struct {
	mu      sync.Mutex
	entries []RecentEntry
}

// RecordDocument implements session.Recents.
func (r *MemoryRecents) RecordDocument(_ context.Context, path, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, RecentEntry{Path: path, Identifier: identifier})
	return nil
}

// Entries returns the recorded documents.
func (r *MemoryRecents) Entries() []RecentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecentEntry(nil), r.entries...)
}
