package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ffgraph/internal/options"
)

// Resolution is a cached identifier resolution.
type Resolution struct {
	Requested string
	Resolved  string
	Workspace string
	Options   []options.GlobalOption
	Seq       int64
}

// RecentDocument is one entry of the recent documents list.
type RecentDocument struct {
	Path       string `json:"path" yaml:"path"`
	Identifier string `json:"identifier" yaml:"identifier"`
	Seq        int64  `json:"seq" yaml:"seq"`
}

// GetResolution returns the cached resolution of requested.
// Returns false if none is cached.
func (s *Store) GetResolution(ctx context.Context, requested string) (Resolution, bool, error) {
	var (
		r        Resolution
		optsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT requested, resolved, workspace, options, seq
		FROM resolutions
		WHERE requested = ?
	`, requested).Scan(&r.Requested, &r.Resolved, &r.Workspace, &optsJSON, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, false, nil
	}
	if err != nil {
		return Resolution{}, false, fmt.Errorf("get resolution: %w", err)
	}

	r.Options, err = unmarshalOptions(optsJSON)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("get resolution %q: %w", requested, err)
	}
	return r, true, nil
}

// GetResolutionByDigest returns the most recent cached resolution whose
// catalogue has the given digest. Returns false if none is cached.
func (s *Store) GetResolutionByDigest(ctx context.Context, resolved string) (Resolution, bool, error) {
	var (
		r        Resolution
		optsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT requested, resolved, workspace, options, seq
		FROM resolutions
		WHERE resolved = ?
		ORDER BY seq DESC
		LIMIT 1
	`, resolved).Scan(&r.Requested, &r.Resolved, &r.Workspace, &optsJSON, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, false, nil
	}
	if err != nil {
		return Resolution{}, false, fmt.Errorf("get resolution by digest: %w", err)
	}

	r.Options, err = unmarshalOptions(optsJSON)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("get resolution %q: %w", resolved, err)
	}
	return r, true, nil
}

// RecentDocuments returns up to limit documents, most recent first.
// A limit of zero or less returns all of them.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) RecentDocuments(ctx context.Context, limit int) ([]RecentDocument, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, identifier, seq
		FROM recent_documents
		ORDER BY seq DESC, path COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent documents: %w", err)
	}
	defer rows.Close()

	docs := []RecentDocument{}
	for rows.Next() {
		var d RecentDocument
		if err := rows.Scan(&d.Path, &d.Identifier, &d.Seq); err != nil {
			return nil, fmt.Errorf("scan recent document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent documents: %w", err)
	}
	return docs, nil
}
