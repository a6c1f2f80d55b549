// Package metrics defines Prometheus metrics for the aqt connector, covering
// job polling, ARNICA API requests, authentication flows and the token cache.
// Nothing is registered globally; embedders call Register and the CLI dumps
// the collectors with WriteTextfile.
package metrics
