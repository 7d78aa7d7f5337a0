package docker

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
)

var _ ports.ImageService = (*ImageService)(nil)

// ImageService implements ports.ImageService using the Docker SDK.
type ImageService struct {
	conn   *Connection
	logger *log.Logger
}

// NewImageService creates an image service borrowing conn.
func NewImageService(conn *Connection) *ImageService {
	return &ImageService{
		conn:   conn,
		logger: conn.logger.With("service", "images"),
	}
}

// List returns every image, including intermediate layers.
func (s *ImageService) List(ctx context.Context) ([]domain.ImageSummary, error) {
	images, err := s.conn.api.ImageList(ctx, image.ListOptions{All: true})
	if err != nil {
		return nil, classify("image.list", "", err)
	}

	result := make([]domain.ImageSummary, 0, len(images))
	for _, img := range images {
		result = append(result, imageSummaryFrom(img))
	}

	s.logger.Debug("listed images", "count", len(result))
	return result, nil
}

// Inspect returns the details of a single image.
func (s *ImageService) Inspect(ctx context.Context, id string) (domain.ImageDetails, error) {
	resp, err := s.conn.api.ImageInspect(ctx, id)
	if err != nil {
		return domain.ImageDetails{}, classify("image.inspect", id, err)
	}
	return imageDetailsFrom(resp), nil
}

// Remove removes an image and its untagged parents.
func (s *ImageService) Remove(ctx context.Context, id string) error {
	deleted, err := s.conn.api.ImageRemove(ctx, id, image.RemoveOptions{PruneChildren: true})
	if err != nil {
		return classify("image.remove", id, err)
	}
	s.logger.Info("image removed", "id", id, "layers", len(deleted))
	return nil
}

// Prune removes dangling images.
func (s *ImageService) Prune(ctx context.Context) (domain.PruneReport, error) {
	report, err := s.conn.api.ImagesPrune(ctx, filters.NewArgs())
	if err != nil {
		return domain.PruneReport{}, classify("image.prune", "", err)
	}

	result := pruneReportFrom(report)
	s.logger.Info("images pruned", "deleted", len(result.Deleted), "space_reclaimed", result.SpaceReclaimed)
	return result, nil
}

// Pull starts pulling ref and returns the progress stream. A reference
// without tag or digest is pulled as :latest.
func (s *ImageService) Pull(ctx context.Context, ref string) (ports.ProgressStream, error) {
	const op = "image.pull"

	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return nil, domain.NewOperationError(op, ref, domain.ErrValidation, err)
	}
	normalized := reference.FamiliarString(reference.TagNameOnly(named))

	body, err := s.conn.api.ImagePull(ctx, normalized, image.PullOptions{})
	if err != nil {
		return nil, classify(op, normalized, err)
	}

	s.logger.Info("pulling image", "reference", normalized)
	return NewProgressStream(ctx, op, normalized, body, s.logger), nil
}

// Build sends buildContext, a tar archive holding a Dockerfile at its root,
// to the runtime and returns the build output stream. cleanups run once the
// stream is closed; if Build fails they are not run and stay the caller's.
func (s *ImageService) Build(ctx context.Context, buildContext io.Reader, tag string, cleanups ...func()) (ports.ProgressStream, error) {
	const op = "image.build"

	resp, err := s.conn.api.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		return nil, classify(op, tag, err)
	}

	s.logger.Info("building image", "tag", tag)
	return NewProgressStream(ctx, op, tag, resp.Body, s.logger, cleanups...), nil
}
