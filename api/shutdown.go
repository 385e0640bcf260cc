// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops a component cooperatively and releases its resources.
type GracefulShutdown interface {
	// Shutdown returns once every internal worker has exited.
	Shutdown() error
}
