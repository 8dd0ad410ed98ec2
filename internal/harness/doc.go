// Package harness runs scripted session scenarios against the controller.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: save_as_new_graph
//	description: "New graph, two connected nodes, saved under a new name"
//	files:
//	  /docs/a.ffgraph: '{"nodes": [], "edges": []}'
//	resolve:
//	  head:
//	    stages: [started, loading]
//	    completed: "sha256:builtin"
//	steps:
//	  - send: {type: new-graph}
//	  - send: {type: connect, connection: {source: a, target: b}}
//	  - answer_save: /tmp/g.ffgraph
//	  - send: {type: save-as-graph}
//	    run: hold
//	  - run: settle
//	expect:
//	  state: {path: /tmp/g.ffgraph, dirty: false}
//	  errors: []
//	  files:
//	    /tmp/g.ffgraph: {nodes: 2, edges: 1, identifier: "sha256:builtin"}
//
// send carries a raw bus message and goes through bus.Decode. answer_open and
// answer_save queue dialog answers; an empty answer cancels the dialog.
//
// # Scheduling
//
// Gateway and dialog work runs on a manual task queue, so every scenario
// interleaves identically. After a send the harness applies run:
//
//   - settle (default): drain and run tasks until nothing is left
//   - hold: drain the controller only, tasks stay queued
//   - next, last: drain, run the oldest or newest task, drain again
//
// Answer steps never run anything.
//
// # Transcript
//
// Every event the controller emits to the shell is recorded in order as a
// JSON line in bus wire format. RunWithGolden compares the transcript with
// testdata/golden/<name>.golden.
package harness
