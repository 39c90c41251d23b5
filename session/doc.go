// Package session maintains ordered multi-turn state for one conversation:
// a monotonic sequence counter, a sliding window of prior turns, and sticky
// metadata applied to every turn. Each new trace receives the most recent
// window of conversation history so the verifier can judge outputs in
// context.
//
// A Session is bound to an orchestrator through the Processor interface and
// owns its history buffer exclusively; sessions are never shared.
package session
