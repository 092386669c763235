// Package lc contains common entities and interfaces shared across the
// link-checker daemon's packages.
package lc

import "context"

// Service is the interface for long-running daemon components, such as the
// scheduler loop or a metrics exporter.
type Service interface {
	// Start starts the service.  It must not block.
	Start() (err error)

	// Shutdown gracefully stops the service.  ctx is used to determine
	// a timeout before trying to stop the service less gracefully.
	Shutdown(ctx context.Context) (err error)
}

// type check
var _ Service = EmptyService{}

// EmptyService is a Service that does nothing.
type EmptyService struct{}

// Start implements the Service interface for EmptyService.
func (EmptyService) Start() (err error) { return nil }

// Shutdown implements the Service interface for EmptyService.
func (EmptyService) Shutdown(_ context.Context) (err error) { return nil }
