// Package schema defines the wire form of outline commands.
//
// A CommandEnvelope is the JSON shape accepted by the HTTP and MCP adapters:
//
//	{"kind": "rename", "path": [0, 1], "name": "Intro"}
//
// Envelopes are validated with go-playground/validator and converted into
// the closed set of domain commands. The same commands can be written as a
// single text line for the CLI and the interactive editor:
//
//	rename 0.1 Intro
//	assign-master 0 m1
//	insert-child 0
package schema
