// Package gateway is the persistence gateway of the ffgraph host.
//
// Files reads and writes .ffgraph documents through viant/afs, so a document
// path may be a local path or any URL afs supports. Resolver turns a
// resource identifier into a compiled option catalogue:
//
//	head            built-in catalogue          started, loading, completed
//	<dir or URL>    catalogue directory         started, cloning, loading, completed
//	cached          store hit, workspace kept   completed
//
// Cloning copies the top-level .cue files of the catalogue directory into a
// per-identifier workspace; loading compiles the workspace copy. The resolved
// identifier is the catalogue digest.
//
// Gateway combines both and satisfies session.Gateway.
package gateway
