// Package client is the HTTP adapter for the ARNICA job API.
//
// Every request carries a bearer token. Responses are classified into the
// sentinel errors of package errdefs so that callers can match them with
// errors.Is without looking at status codes.
package client
