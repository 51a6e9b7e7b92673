// Package schema derives output shapes from example values.
//
// An example is first reduced to a Value, a tagged variant over the JSON data
// model that keeps object keys in declaration order. Infer turns a Value into
// a Schema that can be rendered for backends with native structured output
// (JSONSchema, GeminiSchema). Backends without it get the same shape as a
// prompt instruction through Describe and Inject.
//
// Decode is the single place completion text is turned back into data. It
// never fails: text that is not JSON comes back unchanged with Structured set
// to false.
package schema
