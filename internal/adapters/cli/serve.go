package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	httpadapter "github.com/melih/lighthouse/internal/adapters/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. When server.proxy_domain is set, requests for
<container-name>.<proxy_domain> are forwarded to that running container.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

// runServe blocks until the server fails or ctx is cancelled, then shuts the
// server down gracefully.
func runServe(ctx context.Context, a *app) error {
	server := httpadapter.NewApp(httpadapter.Services{
		Containers: a.containers,
		Images:     a.images,
		Builder:    a.builder,
		Runtime:    a.conn,
	}, a.cfg.Server.ProxyDomain, a.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(a.cfg.Server.Listen)
	}()
	a.logger.Info("server starting", "listen", a.cfg.Server.Listen, "proxy_domain", a.cfg.Server.ProxyDomain)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)
	if err := server.ShutdownWithTimeout(a.cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
