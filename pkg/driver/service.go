package driver

import "context"

// Service is the concrete local service a Driver starts and stops.
type Service interface {
	// Name identifies the service in errors and logs.
	Name() string

	// Start brings the service up on port. It must return once the service
	// is accepting work or has failed to start.
	Start(ctx context.Context, port int) error

	// Stop shuts the service down.
	Stop(ctx context.Context) error
}
