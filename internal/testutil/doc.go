// Package testutil provides shared test doubles: a scripted in-process
// backend serving both transports, a recording display target, and an
// immediate poll scheduler for deterministic timing.
package testutil
