// Package main hosts the gptkit CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the provider client,
// and the built-in tool registry together so subcommands only describe the
// user-facing behavior. New capabilities belong in pkg/ or internal/ first
// and are surfaced here afterwards.
package main
