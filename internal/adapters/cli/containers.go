package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
)

func newPsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List containers, including stopped ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPs(cmd.Context(), a.containers, cmd.OutOrStdout())
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect CONTAINER",
		Short: "Show the details of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), a.containers, args[0], cmd.OutOrStdout())
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var publish string

	cmd := &cobra.Command{
		Use:   "run IMAGE",
		Short: "Create and start a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), a.containers, args[0], publish, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&publish, "publish", "p", "", "Publish a container port to the host (HOST:CONTAINER)")

	return cmd
}

// newLifecycleCmd builds a single-argument command forwarding to one
// ContainerService action. The service is resolved at run time, once the
// runtime connection exists.
func newLifecycleCmd(a *app, use, short, done string, action func(ports.ContainerService) func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CONTAINER",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd.Context(), action(a.containers), args[0], done, cmd.OutOrStdout())
		},
	}
}

func newLogsCmd(a *app) *cobra.Command {
	var opts domain.LogsOptions
	var tail int

	cmd := &cobra.Command{
		Use:   "logs CONTAINER",
		Short: "Print the output of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Tail = "all"
			if tail >= 0 {
				opts.Tail = strconv.Itoa(tail)
			}
			return runLogs(cmd.Context(), a.containers, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Follow log output")
	cmd.Flags().BoolVarP(&opts.Timestamps, "timestamps", "t", false, "Show timestamps")
	cmd.Flags().IntVar(&tail, "tail", -1, "Number of lines to show from the end (-1 for all)")

	return cmd
}

func runPs(ctx context.Context, containers ports.ContainerService, out io.Writer) error {
	list, err := containers.List(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		return cliWriteLine(out, cliRenderMuted("No containers found"))
	}

	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			shortID(c.ID),
			orMissing(c.Name),
			stateText(c.State),
			orMissing(c.Status),
			listText(c.Ports),
		})
	}

	if err := cliWriteLine(out, renderTable([]string{"CONTAINER ID", "NAME", "STATE", "STATUS", "PORTS"}, rows)); err != nil {
		return err
	}
	return cliWritef(out, "\nTotal containers: %d\n", len(list))
}

func runInspect(ctx context.Context, containers ports.ContainerService, id string, out io.Writer) error {
	d, err := containers.Inspect(ctx, id)
	if err != nil {
		return err
	}

	command := d.Command
	if command == "" {
		command = missing
	}

	if err := cliWriteLine(out, cliRenderTitle("Container "+orMissing(d.Name))); err != nil {
		return err
	}
	for _, line := range [][2]string{
		{"ID:", orMissing(d.ID)},
		{"Image:", orMissing(d.Image)},
		{"Created:", orMissing(d.Created)},
		{"State:", stateText(d.State)},
		{"Status:", orMissing(d.Status)},
		{"Command:", command},
		{"Networks:", listText(d.Networks)},
		{"IP addresses:", listText(d.IPAddresses)},
		{"Ports:", listText(d.Ports)},
	} {
		if err := cliWriteLine(out, cliRenderMeta(line[0], line[1])); err != nil {
			return err
		}
	}

	if err := writeSection(out, "Volumes:", d.Volumes); err != nil {
		return err
	}
	return writeSection(out, "Environment:", d.Env)
}

func writeSection(out io.Writer, label string, values []string) error {
	if len(values) == 0 {
		return cliWriteLine(out, cliRenderMeta(label, missing))
	}
	if err := cliWriteLine(out, cliRenderMeta(label, "")); err != nil {
		return err
	}
	for _, v := range values {
		if err := cliWriteLine(out, "  "+v); err != nil {
			return err
		}
	}
	return nil
}

func runRun(ctx context.Context, containers ports.ContainerService, image, publish string, out io.Writer) error {
	id, err := containers.Create(ctx, image, publish)
	if err != nil {
		if id != "" {
			return fmt.Errorf("container %s was created but not started: %w", shortID(id), err)
		}
		return err
	}
	return cliWriteLine(out, id)
}

func runLifecycle(ctx context.Context, action func(context.Context, string) error, id, done string, out io.Writer) error {
	if err := action(ctx, id); err != nil {
		return err
	}
	return cliWriteLine(out, cliRenderSuccess(done+" "+id))
}

func runLogs(ctx context.Context, containers ports.ContainerService, id string, opts domain.LogsOptions, out io.Writer) error {
	logs, err := containers.Logs(ctx, id, opts)
	if err != nil {
		return err
	}
	defer logs.Close()

	if _, err := io.Copy(out, logs); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}
	return nil
}
