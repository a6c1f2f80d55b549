// Package jobs fetches job states from ARNICA and waits for jobs to reach a
// final state.
package jobs
