package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/ffgraph/internal/session"
)

// AssertionError describes one unmet expectation.
type AssertionError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// check records every unmet expectation on result.
func (r *run) check(expect Expectation, result *Result) {
	var failures []error
	if expect.State != nil {
		doc := r.controller.Document()
		failures = append(failures, checkState(*expect.State, result.State, len(doc.Nodes), len(doc.Edges))...)
	}
	if expect.Errors != nil {
		got := r.shell.errors()
		if !slices.Equal(got, expect.Errors) {
			failures = append(failures, mismatch("errors", expect.Errors, got))
		}
	}
	if expect.Resolves != nil {
		got := r.gateway.Resolves()
		if !slices.Equal(got, expect.Resolves) {
			failures = append(failures, mismatch("resolves", expect.Resolves, got))
		}
	}
	for _, path := range slices.Sorted(maps.Keys(expect.Files)) {
		failures = append(failures, r.checkFile(path, expect.Files[path])...)
	}

	for _, err := range failures {
		result.AddError(err.Error())
	}
}

func checkState(want StateExpect, got session.State, nodes, edges int) []error {
	var failures []error
	field := func(name string, want, got any) {
		if fmt.Sprint(want) != fmt.Sprint(got) {
			failures = append(failures, mismatch("state."+name, want, got))
		}
	}

	if want.Bound != nil {
		field("bound", *want.Bound, got.Bound)
	}
	if want.Path != nil {
		field("path", *want.Path, got.CurrentFilePath)
	}
	if want.Dirty != nil {
		field("dirty", *want.Dirty, got.Dirty)
	}
	if want.Title != nil {
		field("title", *want.Title, got.Title)
	}
	if want.Requested != nil {
		field("requested", *want.Requested, got.RequestedIdentifier)
	}
	if want.Identifier != nil {
		field("identifier", *want.Identifier, got.ResourceIdentifier)
	}
	if want.Stage != nil {
		field("stage", *want.Stage, got.LoadStage.String())
	}
	if want.SavePending != nil {
		field("save_pending", *want.SavePending, got.SavePending)
	}
	if want.Nodes != nil {
		field("nodes", *want.Nodes, nodes)
	}
	if want.Edges != nil {
		field("edges", *want.Edges, edges)
	}
	return failures
}

func (r *run) checkFile(path string, want FileExpect) []error {
	f, ok := r.gateway.Document(path)
	if !ok {
		return []error{mismatch("files["+path+"]", "a document", "nothing")}
	}
	var failures []error
	if len(f.Document.Nodes) != want.Nodes {
		failures = append(failures, mismatch("files["+path+"].nodes", want.Nodes, len(f.Document.Nodes)))
	}
	if len(f.Document.Edges) != want.Edges {
		failures = append(failures, mismatch("files["+path+"].edges", want.Edges, len(f.Document.Edges)))
	}
	if f.Identifier != want.Identifier {
		failures = append(failures, mismatch("files["+path+"].identifier", want.Identifier, f.Identifier))
	}
	return failures
}

func mismatch(field string, want, got any) error {
	return &AssertionError{Field: field, Expected: render(want), Actual: render(got)}
}

func render(v any) string {
	if s, ok := v.([]string); ok {
		return "[" + strings.Join(s, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
