// Package pipeline contains the orchestrator agents: fixed sequences of
// remote agent calls that turn a raw medical document into a summary or a
// clinical narrative.
//
// Two orchestrators are provided:
//
//   - Simple: keyword → grep → chunk → summarize, for general medical
//     documents.
//   - Cancer: a 12-step oncology pipeline with a bounded quality-checker
//     retry loop.
//
// Both talk to the leaf agents through the Caller interface, so tests can
// script responses without HTTP.
package pipeline
