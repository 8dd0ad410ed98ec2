package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyKey is returned when a record has no key.
var ErrEmptyKey = errors.New("empty key")

// PutResolution stores r, replacing any previous resolution of the same
// requested identifier. The seq of r is ignored and assigned by the store.
func (s *Store) PutResolution(ctx context.Context, r Resolution) error {
	if r.Requested == "" {
		return fmt.Errorf("put resolution: %w", ErrEmptyKey)
	}

	optsJSON, err := marshalOptions(r.Options)
	if err != nil {
		return fmt.Errorf("put resolution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolutions (requested, resolved, workspace, options, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM resolutions))
		ON CONFLICT(requested) DO UPDATE SET
			resolved = excluded.resolved,
			workspace = excluded.workspace,
			options = excluded.options,
			seq = excluded.seq
	`,
		r.Requested,
		r.Resolved,
		r.Workspace,
		optsJSON,
	)
	if err != nil {
		return fmt.Errorf("put resolution: %w", err)
	}
	return nil
}

// ForgetResolution removes the cached resolution of requested, if any.
func (s *Store) ForgetResolution(ctx context.Context, requested string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE requested = ?`, requested); err != nil {
		return fmt.Errorf("forget resolution: %w", err)
	}
	return nil
}

// RecordDocument marks path as the most recently used document.
// Recording a path again moves it to the front and updates its identifier.
func (s *Store) RecordDocument(ctx context.Context, path, identifier string) error {
	if path == "" {
		return fmt.Errorf("record document: %w", ErrEmptyKey)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recent_documents (path, identifier, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM recent_documents))
		ON CONFLICT(path) DO UPDATE SET
			identifier = excluded.identifier,
			seq = excluded.seq
	`, path, identifier)
	if err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

// PruneRecent keeps only the keep most recent documents.
func (s *Store) PruneRecent(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recent_documents
		WHERE path NOT IN (
			SELECT path FROM recent_documents
			ORDER BY seq DESC, path COLLATE BINARY ASC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune recent documents: %w", err)
	}
	return nil
}
