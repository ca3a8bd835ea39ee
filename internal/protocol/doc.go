// Package protocol defines the transport-neutral wire contract shared by
// the polling and streaming execution clients.
//
// The backend exposes two channels, both namespaced by kernel id:
//
//   - A request/response pair: POST .../execute submits a cell for
//     execution, GET .../execute lists the kernel's current execution
//     records.
//   - A duplex websocket at .../execute_websocket speaking {meta, payload}
//     envelopes: the client sends "post" (submit) and "get" (fetch), the
//     backend answers with "post_result" (submit acknowledged, carrying an
//     opaque model token) and "get" (a snapshot of execution records).
//
// Record and envelope shapes arrive as untyped JSON from the backend.
// This package gives each shape a concrete type and validates on decode:
// a payload that does not match its declared meta tag is rejected with a
// PROTOCOL_MISMATCH error rather than being silently misread.
package protocol
