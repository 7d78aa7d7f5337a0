// Package cli implements the command-line adapter for lighthouse.
// Commands only talk to the core through its service ports.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/melih/lighthouse/internal/adapters/builder"
	"github.com/melih/lighthouse/internal/adapters/docker"
	"github.com/melih/lighthouse/internal/config"
	"github.com/melih/lighthouse/internal/core/ports"
	"github.com/melih/lighthouse/internal/logging"
)

var (
	// Version information (set at build time)
	Version = "dev"
	Commit  = "unknown"
)

type connectFunc func(ctx context.Context, opts docker.Options, logger *log.Logger) (*docker.Connection, error)

// app holds what every command shares. It is filled in by setup, after flag
// parsing and before the command runs.
type app struct {
	configPath string
	logLevel   string
	connect    connectFunc

	cfg        *config.Config
	logger     *log.Logger
	conn       *docker.Connection
	containers ports.ContainerService
	images     ports.ImageService
	builder    ports.BuilderService
}

// Execute runs the lighthouse CLI. The runtime connection is closed once the
// command returns, whether it succeeded or not.
func Execute(ctx context.Context) error {
	rootCmd, a := newRootCmd(docker.Connect)
	return execute(ctx, rootCmd, a)
}

func execute(ctx context.Context, rootCmd *cobra.Command, a *app) error {
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(connect connectFunc) (*cobra.Command, *app) {
	a := &app{connect: connect}

	rootCmd := &cobra.Command{
		Use:   "lighthouse",
		Short: "lighthouse - a control plane for the local container runtime",
		Long: `lighthouse manages the containers and images of the local Docker
runtime. It can be used directly from the command line or started as an
HTTP API with "lighthouse serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsSetup(cmd) {
				return nil
			}
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(
		newPsCmd(a),
		newInspectCmd(a),
		newRunCmd(a),
		newLifecycleCmd(a, "start", "Start a stopped container", "Started", func(s ports.ContainerService) func(context.Context, string) error { return s.Start }),
		newLifecycleCmd(a, "stop", "Stop a running container", "Stopped", func(s ports.ContainerService) func(context.Context, string) error { return s.Stop }),
		newLifecycleCmd(a, "kill", "Kill a running container", "Killed", func(s ports.ContainerService) func(context.Context, string) error { return s.Kill }),
		newLifecycleCmd(a, "rm", "Remove a container", "Removed", func(s ports.ContainerService) func(context.Context, string) error { return s.Remove }),
		newLogsCmd(a),
		newImagesCmd(a),
		newImageCmd(a),
		newRmiCmd(a),
		newPruneCmd(a),
		newPullCmd(a),
		newBuildCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)

	return rootCmd, a
}

// skipsSetup reports whether cmd is one of cobra's own commands, which never
// need the runtime.
func skipsSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func (a *app) setup(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := logging.New(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	conn, err := a.connect(ctx, docker.Options{
		Host:           cfg.Runtime.Host,
		APIVersion:     cfg.Runtime.APIVersion,
		ConnectTimeout: cfg.Runtime.ConnectTimeout,
		StopTimeout:    cfg.Runtime.StopTimeout,
		KillSignal:     cfg.Runtime.KillSignal,
	}, logger)
	if err != nil {
		return err
	}

	images := docker.NewImageService(conn)

	a.cfg = cfg
	a.logger = logger
	a.conn = conn
	a.containers = docker.NewContainerService(conn)
	a.images = images
	a.builder = builder.NewBuilderAdapter(images, cfg.Build.WorkDir, logger)
	return nil
}

func (a *app) close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

// newVersionCmd creates the version command.
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runtimeVersion, err := a.conn.Version(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("lighthouse %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Runtime: %s (API %s)\n", runtimeVersion, a.conn.API().ClientVersion())
			return nil
		},
	}
}
