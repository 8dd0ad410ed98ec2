package gateway

import (
	"bytes"
	"context"
	"fmt"
	iofs "io/fs"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/graph"
)

// Files stores documents through an afs service.
type Files struct {
	fs afs.Service
}

// NewFiles creates a document store. A nil service uses afs.New().
func NewFiles(fs afs.Service) *Files {
	if fs == nil {
		fs = afs.New()
	}
	return &Files{fs: fs}
}

// ReadDocument downloads and decodes the document at path.
// A missing document wraps io/fs.ErrNotExist; an undecodable one wraps
// docfile.ErrMalformed.
func (f *Files) ReadDocument(ctx context.Context, path string) (graph.Document, string, error) {
	exists, err := f.fs.Exists(ctx, path)
	if err != nil {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	if !exists {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, iofs.ErrNotExist)
	}

	data, err := f.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := docfile.Decode(data)
	if err != nil {
		return graph.Document{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	return doc.Document, doc.Identifier, nil
}

// WriteDocument encodes doc with identifier and uploads it to path,
// replacing any previous content.
func (f *Files) WriteDocument(ctx context.Context, path string, doc graph.Document, identifier string) error {
	data, err := docfile.Encode(docfile.File{Document: doc, Identifier: identifier})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
