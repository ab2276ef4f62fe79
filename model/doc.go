// Package model defines the minimal interface the prompt-backed agents use
// to drive text generation, with adapters for the Anthropic and OpenAI APIs
// in subpackages. Provider selection is environment-driven (see Auto) so the
// same agent binaries run against either vendor.
package model
