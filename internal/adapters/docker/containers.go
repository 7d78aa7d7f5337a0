package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
)

var _ ports.ContainerService = (*ContainerService)(nil)

// ContainerService implements ports.ContainerService using the Docker SDK.
type ContainerService struct {
	conn   *Connection
	logger *log.Logger
}

// NewContainerService creates a container service borrowing conn.
func NewContainerService(conn *Connection) *ContainerService {
	return &ContainerService{
		conn:   conn,
		logger: conn.logger.With("service", "containers"),
	}
}

// List returns every container known to the runtime, including stopped ones.
func (s *ContainerService) List(ctx context.Context) ([]domain.ContainerSummary, error) {
	containers, err := s.conn.api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, classify("container.list", "", err)
	}

	result := make([]domain.ContainerSummary, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerSummaryFrom(c))
	}

	s.logger.Debug("listed containers", "count", len(result))
	return result, nil
}

// Inspect returns the details of a single container.
func (s *ContainerService) Inspect(ctx context.Context, id string) (domain.ContainerDetails, error) {
	const op = "container.inspect"

	resp, err := s.conn.api.ContainerInspect(ctx, id)
	if err != nil {
		return domain.ContainerDetails{}, classify(op, id, err)
	}

	details, err := containerDetailsFrom(resp)
	if err != nil {
		return domain.ContainerDetails{}, domain.NewOperationError(op, id, domain.ErrRuntime, err)
	}
	return details, nil
}

// Create creates a container from image, optionally publishing one TCP port,
// and starts it. If the start fails the created container is left in place
// and its id is returned together with the error.
func (s *ContainerService) Create(ctx context.Context, image, portMapping string) (string, error) {
	const op = "container.create"
	logger := s.logger.With("op", op, "image", image)

	// 1. Validate input before touching the runtime
	mapping, err := domain.ParsePortMapping(portMapping)
	if err != nil {
		return "", domain.NewOperationError(op, image, domain.ErrValidation, err)
	}
	if _, err := reference.ParseAnyReference(image); err != nil {
		return "", domain.NewOperationError(op, image, domain.ErrValidation, fmt.Errorf("invalid image reference: %w", err))
	}

	cfg := &container.Config{Image: image}
	hostCfg := &container.HostConfig{}
	if mapping != nil {
		port := nat.Port(fmt.Sprintf("%d/tcp", mapping.ContainerPort))
		cfg.ExposedPorts = nat.PortSet{port: struct{}{}}
		hostCfg.PortBindings = nat.PortMap{
			port: []nat.PortBinding{{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(int(mapping.HostPort)),
			}},
		}
	}

	// 2. Create Container
	resp, err := s.conn.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", classify(op, image, err)
	}
	for _, w := range resp.Warnings {
		logger.Warn("runtime warning", "id", resp.ID, "warning", w)
	}

	// 3. Start Container
	if err := s.conn.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return resp.ID, classify(op, resp.ID, fmt.Errorf("container created but failed to start: %w", err))
	}

	logger.Info("container started", "id", resp.ID, "ports", portMapping)
	return resp.ID, nil
}

// Start starts a stopped container.
func (s *ContainerService) Start(ctx context.Context, id string) error {
	if err := s.conn.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return classify("container.start", id, err)
	}
	s.logger.Info("container started", "id", id)
	return nil
}

// Stop stops a running container, waiting up to the configured stop timeout
// before the runtime kills it.
func (s *ContainerService) Stop(ctx context.Context, id string) error {
	timeout := int(s.conn.opts.StopTimeout.Seconds())
	if err := s.conn.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return classify("container.stop", id, err)
	}
	s.logger.Info("container stopped", "id", id)
	return nil
}

// Kill sends the configured signal to a container.
func (s *ContainerService) Kill(ctx context.Context, id string) error {
	signal := s.conn.opts.KillSignal
	if err := s.conn.api.ContainerKill(ctx, id, signal); err != nil {
		return classify("container.kill", id, err)
	}
	s.logger.Info("container killed", "id", id, "signal", signal)
	return nil
}

// Remove removes a container.
func (s *ContainerService) Remove(ctx context.Context, id string) error {
	if err := s.conn.api.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		return classify("container.remove", id, err)
	}
	s.logger.Info("container removed", "id", id)
	return nil
}

// Logs returns a stream of container output. For containers without a TTY
// the runtime multiplexes stdout and stderr; the returned reader carries the
// demultiplexed text of both.
func (s *ContainerService) Logs(ctx context.Context, id string, opts domain.LogsOptions) (io.ReadCloser, error) {
	const op = "container.logs"

	info, err := s.conn.api.ContainerInspect(ctx, id)
	if err != nil {
		return nil, classify(op, id, err)
	}

	body, err := s.conn.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return nil, classify(op, id, err)
	}

	if info.Config != nil && info.Config.Tty {
		return body, nil
	}
	return demuxLogs(body), nil
}

type logStream struct {
	*io.PipeReader
	body io.ReadCloser
}

func (l *logStream) Close() error {
	err := l.body.Close()
	_ = l.PipeReader.Close()
	return err
}

func demuxLogs(body io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, body)
		pw.CloseWithError(err)
	}()
	return &logStream{PipeReader: pr, body: body}
}
