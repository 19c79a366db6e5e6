//go:build !dev
// +build !dev

package build

// Deployment specifies a production build.
const Deployment = Production

// LogLevel is the level used by stdout sub loggers. It is only consulted in
// development builds.
const LogLevel = "info"
