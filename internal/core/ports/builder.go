package ports

import "context"

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// BuildImage clones a repository and builds an image tagged tag from it.
	// Build output is delivered through the returned stream.
	BuildImage(ctx context.Context, repoURL, tag string) (ProgressStream, error)
}
