// Package a2a implements the Agent-to-Agent (A2A) protocol surface used by
// medflow agents: the JSON schema types (Message, Task, Artifact and the Part
// discriminated union), the JSON-RPC 2.0 envelope, an HTTP server that hosts a
// single agent executor, and an HTTP client with response-shape-tolerant
// parsing.
//
// The wire format follows A2A spec v0.3.0. Responses from remote agents vary
// widely in practice (Task envelopes, bare Messages, artifacts, DataParts,
// TextParts carrying embedded JSON, and pre-0.3.0 legacy shapes without a
// 'kind' discriminator), so the extraction helpers in this package normalize
// all of them instead of assuming a single canonical shape.
package a2a
