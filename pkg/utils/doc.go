// Package utils provides shared helpers for the aqt connector, currently the
// cancellable wait and jitter used by polling loops.
package utils
