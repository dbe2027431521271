// Package core is the orchestration layer.  It drives a session
// through its operations to implement the CLI's operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  capability  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point between
// configuration and behaviour.
package core

import "context"

// Mode represents a complete operational mode of sockcat (connect or
// listen).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
