package ports

import (
	"context"
	"iter"

	"github.com/melih/lighthouse/internal/core/domain"
)

// ProgressStream is an open, single-pass stream of progress events.
// Events may be ranged over once; the stream closes itself when iteration
// ends for any reason. Close is safe to call at any time, any number of times.
type ProgressStream interface {
	Events() iter.Seq2[domain.PullProgressEvent, error]
	Close() error
}

// ImageService defines the core operations for managing images.
type ImageService interface {
	List(ctx context.Context) ([]domain.ImageSummary, error)
	Inspect(ctx context.Context, id string) (domain.ImageDetails, error)
	Remove(ctx context.Context, id string) error
	Prune(ctx context.Context) (domain.PruneReport, error)
	// Pull starts pulling reference. Cancelling ctx aborts the transfer and
	// releases the stream.
	Pull(ctx context.Context, reference string) (ProgressStream, error)
}
