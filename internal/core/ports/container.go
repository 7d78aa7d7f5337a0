package ports

import (
	"context"
	"io"

	"github.com/melih/lighthouse/internal/core/domain"
)

// ContainerService defines the core operations for managing containers.
// Presentation adapters depend on this interface, never on the runtime client.
type ContainerService interface {
	List(ctx context.Context) ([]domain.ContainerSummary, error)
	Inspect(ctx context.Context, id string) (domain.ContainerDetails, error)
	// Create creates a container from image and starts it. portMapping is
	// either empty or "HOST:CONTAINER". The new container id is returned.
	Create(ctx context.Context, image, portMapping string) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Kill(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Logs(ctx context.Context, id string, opts domain.LogsOptions) (io.ReadCloser, error)
}
