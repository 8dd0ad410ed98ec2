// Package options compiles ffmpeg global option catalogues.
//
// A catalogue is the payload behind a resource identifier: the set of global
// options a graph's GlobalOptions nodes can offer. Catalogues are written in
// CUE and constrained by an embedded schema:
//
//	option: repeat_log: {
//		name:        "repeat log"
//		description: "Repeat a log output instead of compressing it"
//		flag:        "loglevel"
//		type:        "boolean"
//		values: {"true": "repeat", "false": "-repeat"}
//	}
//
// Field order of the option struct is preserved. Digest identifies a
// compiled catalogue by content and is what a resolved identifier carries.
package options
