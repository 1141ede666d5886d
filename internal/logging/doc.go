// Package logging assembles structured slog loggers for gptkit.
//
// It owns the console and JSON handlers, parses level and format strings from
// configuration, and exposes a no-op logger for library code and tests that
// do not care about output. Library packages accept a *slog.Logger and fall
// back to NewNop when none is supplied.
package logging
