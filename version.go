// Package vigil holds module-level metadata for the Vigil verification
// orchestrator.
package vigil

// Version is the current Vigil release.
const Version = "0.2.0"
