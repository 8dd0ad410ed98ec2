// Package session implements the graph session controller.
//
// The controller owns the live graph store, the session state (current file,
// dirty flag, resource identifier) and the resource-load state machine. It
// reconciles five lifecycle commands (new, open, save, save-as, close) with
// graph edits and with the asynchronous resolution pipeline of the
// persistence gateway.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every input is an Event processed by one goroutine (Run or Drain):
//   - inbound bus messages (lifecycle commands, graph edits)
//   - results of blocking work (dialogs, document reads and writes)
//   - progress messages from resolution channels
//
// Blocking work never runs on the loop. It is handed to a TaskRunner and its
// result re-enters the queue as an event, so other events (a user edit, a
// second command) interleave freely while a dialog is open or a save is in
// flight.
//
// Generations:
// Each resolution gets a generation from the logical Clock and a single-use
// ProgressSink stamped with it. Progress whose generation is not the current
// one is discarded (last invocation wins). Open and save results carry the
// ticket or epoch they were issued under and are discarded the same way when
// a newer New/Open/Close superseded them. Errors from superseded operations
// are still reported: every failed external operation yields exactly one
// error event.
//
// Dirty Tracking:
// The controller observes store mutations. Any mutation while a document is
// bound marks the session dirty. Loads replace the store first and clear the
// flag afterwards, so the replace's own notification never leaves a stale
// dirty flag behind. A save clears the flag only if the store revision still
// matches the snapshot that was written.
package session
