// Package tools describes callable functions a chat model may request and
// resolves those requests back to Go implementations.
//
// A Tool supplies a JSON-Schema parameter object and an Invoke method. Its
// wire name defaults to the snake_case form of the implementing type name
// (WeatherLookup becomes weather_lookup) and can be overridden by embedding
// Meta. Implementations are registered in a Registry as factories keyed by a
// reference string; the same reference is resolved again when a tool call is
// executed so long-lived registries may swap implementations.
package tools
