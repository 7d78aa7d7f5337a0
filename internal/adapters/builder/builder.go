package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/distribution/reference"
	"github.com/docker/docker/pkg/archive"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
	"github.com/melih/lighthouse/internal/logging"
)

const op = "image.build"

var _ ports.BuilderService = (*Adapter)(nil)

// ImageBuilder submits a build context to the runtime.
type ImageBuilder interface {
	Build(ctx context.Context, buildContext io.Reader, tag string, cleanups ...func()) (ports.ProgressStream, error)
}

// Adapter builds images from git repositories.
type Adapter struct {
	images     ImageBuilder
	logger     *log.Logger
	workDir    string // parent of the temporary clone directories; os.TempDir when empty
	cloneDepth int
}

// NewBuilderAdapter creates a builder that hands its build contexts to images.
func NewBuilderAdapter(images ImageBuilder, workDir string, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{
		images:     images,
		logger:     logger.WithPrefix("builder"),
		workDir:    workDir,
		cloneDepth: 1, // Shallow clone for speed
	}
}

// BuildImage clones a repo and builds a Docker image from its root Dockerfile.
// The clone is removed once the returned stream is closed.
func (a *Adapter) BuildImage(ctx context.Context, repoURL, tag string) (ports.ProgressStream, error) {
	if repoURL == "" {
		return nil, domain.ValidationError(op, tag, "repository URL is required")
	}
	named, err := reference.ParseNormalizedNamed(tag)
	if err != nil {
		return nil, domain.NewOperationError(op, tag, domain.ErrValidation, fmt.Errorf("invalid tag: %w", err))
	}
	tag = reference.FamiliarString(reference.TagNameOnly(named))

	// 1. Create temporary directory
	tmpDir, err := os.MkdirTemp(a.workDir, "lighthouse-build-*")
	if err != nil {
		return nil, domain.NewOperationError(op, tag, domain.ErrRuntime, fmt.Errorf("failed to create temp dir: %w", err))
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			a.logger.Warn("failed to remove build directory", "dir", tmpDir, "err", err)
		}
	}

	// 2. Clone Repository
	a.logger.Info("cloning repository", "url", repoURL, "dir", tmpDir)
	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: a.cloneDepth,
	})
	if err != nil {
		cleanup()
		return nil, cloneError(repoURL, err)
	}

	return a.buildFromDir(ctx, tmpDir, tag, cleanup)
}

// buildFromDir tars dir as the build context and starts the build. cleanup
// runs exactly once, either on failure or when the stream closes.
func (a *Adapter) buildFromDir(ctx context.Context, dir, tag string, cleanup func()) (ports.ProgressStream, error) {
	if _, err := os.Stat(filepath.Join(dir, "Dockerfile")); err != nil {
		cleanup()
		return nil, domain.ValidationError(op, tag, "repository has no Dockerfile at its root")
	}

	// 3. Create Build Context (Tar)
	tar, err := archive.TarWithOptions(dir, &archive.TarOptions{ExcludePatterns: []string{".git"}})
	if err != nil {
		cleanup()
		return nil, domain.NewOperationError(op, tag, domain.ErrRuntime, fmt.Errorf("failed to create build context: %w", err))
	}
	release := func() {
		_ = tar.Close()
		cleanup()
	}

	// 4. Build Docker Image
	a.logger.Info("building image", "tag", tag)
	stream, err := a.images.Build(ctx, tar, tag, release)
	if err != nil {
		release()
		return nil, err
	}
	return stream, nil
}

func cloneError(repoURL string, err error) error {
	wrapped := fmt.Errorf("failed to clone repo: %w", err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.NewOperationError(op, repoURL, domain.ErrRuntime, wrapped)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return domain.NewOperationError(op, repoURL, domain.ErrNotFound, wrapped)
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return domain.NewOperationError(op, repoURL, domain.ErrPermissionDenied, wrapped)
	case errors.Is(err, transport.ErrEmptyRemoteRepository), errors.Is(err, transport.ErrInvalidAuthMethod):
		return domain.NewOperationError(op, repoURL, domain.ErrValidation, wrapped)
	default:
		return domain.NewOperationError(op, repoURL, domain.ErrRuntime, wrapped)
	}
}
