// Package provider talks to an OpenAI-compatible chat completion endpoint.
//
// The client posts a JSON payload to {base_url}/chat/completions and returns
// the decoded response body untouched so callers can parse it however they
// need (see package chat).
//
// # Retry Behaviour
//
// Attempts are bounded by Config.MaxRetries. HTTP 401 and 429 are never
// retried and surface as ErrAuthentication and ErrRateLimit. Every other
// non-2xx status and any transport failure counts as an attempt; the wait
// before retry n is RetryDelay*n. Once the budget is spent the last failure
// is returned as ErrProvider with the original cause chained.
//
// A MaxRetries of zero issues no request at all and returns ErrProvider.
//
// # Concurrency
//
// Client keeps no per-call state and may be shared between goroutines.
package provider
