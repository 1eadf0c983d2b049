// Package config defines operator settings used by the stevedore commands and
// provides helpers to load, validate and save them in YAML format.
//
// The settings file is optional: every field has a default, and command-line
// flags override whatever the file contains.
package config
