// Package app is the composition root of the ARNICA client and exposes the
// operations the CLI and library users call: logging in, reading the cached
// token, fetching job states and waiting for jobs to finish.
package app
