package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/client"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/logging"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultStopTimeout    = 10 * time.Second
	defaultKillSignal     = "SIGKILL"
)

// Options configures the runtime connection and the services sharing it.
// Empty Host, APIVersion and KillSignal and a non-positive ConnectTimeout fall
// back to the Docker environment and defaults. A zero StopTimeout is honored
// as an immediate kill; only a negative one means unset.
type Options struct {
	Host           string // overrides DOCKER_HOST when set
	APIVersion     string // pins the API version; negotiated when empty
	ConnectTimeout time.Duration
	StopTimeout    time.Duration
	KillSignal     string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: defaultConnectTimeout,
		StopTimeout:    defaultStopTimeout,
		KillSignal:     defaultKillSignal,
	}
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.StopTimeout < 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.KillSignal == "" {
		o.KillSignal = defaultKillSignal
	}
	return o
}

// Connection owns the single client used to talk to the runtime.
// It is created once at startup and is read-only afterwards, so every
// service can share it concurrently.
type Connection struct {
	api    client.APIClient
	opts   Options
	logger *log.Logger
}

// Connect creates a Docker client and verifies the daemon answers a ping.
// An unreachable runtime is reported as an error; there is no retry.
func Connect(ctx context.Context, opts Options, logger *log.Logger) (*Connection, error) {
	opts = opts.withDefaults()

	clientOpts := []client.Opt{client.FromEnv}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	if opts.APIVersion != "" {
		clientOpts = append(clientOpts, client.WithVersion(opts.APIVersion))
	} else {
		clientOpts = append(clientOpts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		_ = cli.Close()
		return nil, domain.NewOperationError("runtime.connect", cli.DaemonHost(), domain.ErrRuntime, fmt.Errorf("unreachable: %w", err))
	}

	conn := NewConnection(cli, opts, logger)
	conn.logger.Debug("connected to runtime", "host", cli.DaemonHost(), "api_version", cli.ClientVersion())
	return conn, nil
}

// NewConnection wraps an existing client without pinging it.
func NewConnection(api client.APIClient, opts Options, logger *log.Logger) *Connection {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Connection{
		api:    api,
		opts:   opts.withDefaults(),
		logger: logger.WithPrefix("docker"),
	}
}

// API returns the shared runtime client.
func (c *Connection) API() client.APIClient {
	return c.api
}

// Version reports the runtime's server version.
func (c *Connection) Version(ctx context.Context) (string, error) {
	v, err := c.api.ServerVersion(ctx)
	if err != nil {
		return "", classify("runtime.version", "", err)
	}
	return v.Version, nil
}

// Close releases the underlying client. Call it once, at process exit.
func (c *Connection) Close() error {
	return c.api.Close()
}
