// Package config loads, validates and persists the aqtctl configuration file
// and resolves the default locations of the config and token files.
package config
