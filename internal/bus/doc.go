// Package bus defines the messages exchanged between the host shell, the
// persistence gateway and the session controller.
//
// Every inbound message is decoded exactly once, at the boundary, into a
// closed set of Go types. Internal code switches on concrete types and never
// inspects loosely typed payloads.
//
// Wire format: one JSON object per message, discriminated by "type".
//
//	{"type": "new-graph"}
//	{"type": "nodes-change", "changes": [{"type": "add", "item": {...}}]}
//	{"type": "connect", "connection": {"source": "a", "target": "b"}}
//	{"type": "dialog-result", "path": "/tmp/g.ffgraph"}
//	{"type": "dialog-result", "cancelled": true}
//
// Progress messages reported by the resolution pipeline use the same
// discriminator:
//
//	{"type": "started"} {"type": "cloning"} {"type": "loading"}
//	{"type": "completed", "identifier": "sha256:..."}
package bus
