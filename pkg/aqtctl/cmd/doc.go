// Package cmd implements the cobra command tree for the aqtctl CLI:
// authentication, job status and submission, workspace and resource
// inspection, configuration and shell completion.
package cmd
