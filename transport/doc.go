// Package transport implements event delivery to the Vex backend.
//
// Two transports share the same HTTP plumbing and retry policy but differ in
// blocking behavior and failure handling:
//
//   - AsyncTransport buffers events in memory and ships them in batches,
//     best-effort. Client errors (4xx) drop the batch; server errors and
//     network failures are retried with exponential backoff and finally
//     requeued at the head of the buffer.
//   - SyncTransport performs one blocking verification call per event.
//     Network failures are retried; a received non-2xx response is raised
//     immediately as a core.VerificationError.
//
// At the HTTP boundary both transports rewrite event keys from the SDK's
// internal camelCase convention to the backend's snake_case wire convention
// (and back for responses).
package transport
