// Package chat assembles chat completion requests and interprets responses.
//
// A Builder accumulates the model, the ordered message history, and tool
// descriptors resolved from a tools.Registry. Send hands the payload to a
// Sender (normally *provider.Client) and parses the reply into a Response.
// Only the first tool call in a reply is surfaced; calls naming a tool that
// was not attached to the request are dropped.
package chat
