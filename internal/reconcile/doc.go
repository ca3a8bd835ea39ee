// Package reconcile maps backend execution records onto display-model
// mutations.
//
// The Reconciler is the shared core of both transports: the polling
// client feeds it records scanned out of status responses, the streaming
// client feeds it every record of every pushed snapshot. It decides,
// per record, whether the record belongs to the tracked cell, which
// mutations to apply to the cell's DisplayTarget, and whether tracking
// should continue or stop.
//
// All mutations are confined to the DisplayTarget passed in. The
// Reconciler keeps no state of its own; the single in-flight cell
// identity is an argument, not a field.
package reconcile
