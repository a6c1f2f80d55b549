// Package models holds the ARNICA API data model: job states and metadata,
// circuit submissions, workspaces and resources.
package models
