// Package errdefs defines the error kinds surfaced by the aqt connector.
// Callers match them with errors.Is; data-carrying kinds are exposed as
// typed errors that unwrap to the matching sentinel.
package errdefs
