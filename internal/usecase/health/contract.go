package health

import "context"

// Pinger is a lightweight connectivity probe on a dependency client.
type Pinger interface {
	Ping(ctx context.Context) error
}
