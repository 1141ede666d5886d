// Package scaffold generates skeleton tool implementations for
// `gptkit make-tool`.
package scaffold
