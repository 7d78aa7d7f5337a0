package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/melih/lighthouse/internal/core/ports"
)

func newImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List images, including intermediate layers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImagesList(cmd.Context(), a.images, cmd.OutOrStdout())
		},
	}
}

func newImageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage images",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect IMAGE",
		Short: "Show the details of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImageInspect(cmd.Context(), a.images, args[0], cmd.OutOrStdout())
		},
	})

	return cmd
}

func newRmiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rmi IMAGE",
		Short: "Remove an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.images.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Removed "+args[0]))
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove dangling images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImagesPrune(cmd.Context(), a.images, cmd.OutOrStdout())
		},
	}
}

func newPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull REFERENCE",
		Short: "Pull an image and show its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := a.images.Pull(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return runProgress(stream, cmd.OutOrStdout())
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "build REPO_URL",
		Short: "Build an image from a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := a.builder.BuildImage(cmd.Context(), args[0], tag)
			if err != nil {
				return err
			}
			return runProgress(stream, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Name and optionally a tag for the image (name:tag)")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}

func runImagesList(ctx context.Context, images ports.ImageService, out io.Writer) error {
	list, err := images.List(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		return cliWriteLine(out, cliRenderMuted("No images found"))
	}

	dangling := 0
	rows := make([][]string, 0, len(list))
	for _, img := range list {
		tags := listText(img.RepoTags)
		if len(img.RepoTags) == 0 {
			dangling++
		}
		rows = append(rows, []string{shortID(img.ID), tags, formatSize(img.Size)})
	}

	if err := cliWriteLine(out, renderTable([]string{"IMAGE ID", "TAGS", "SIZE"}, rows)); err != nil {
		return err
	}
	return cliWritef(out, "\nTotal images: %d (dangling: %d)\n", len(list), dangling)
}

func runImageInspect(ctx context.Context, images ports.ImageService, id string, out io.Writer) error {
	d, err := images.Inspect(ctx, id)
	if err != nil {
		return err
	}

	parent := d.ParentID
	if parent == "" {
		parent = missing
	}

	if err := cliWriteLine(out, cliRenderTitle("Image "+shortID(d.ID))); err != nil {
		return err
	}
	for _, line := range [][2]string{
		{"ID:", d.ID},
		{"Parent:", parent},
		{"Tags:", listText(d.RepoTags)},
		{"Created:", orMissing(d.Created)},
		{"Size:", formatSize(d.Size)},
		{"Author:", orMissing(d.Author)},
	} {
		if err := cliWriteLine(out, cliRenderMeta(line[0], line[1])); err != nil {
			return err
		}
	}
	return nil
}

func runImagesPrune(ctx context.Context, images ports.ImageService, out io.Writer) error {
	report, err := images.Prune(ctx)
	if err != nil {
		return err
	}

	if len(report.Deleted) == 0 {
		return cliWriteLine(out, cliRenderMuted("No dangling images"))
	}
	for _, id := range report.Deleted {
		if err := cliWriteLine(out, "deleted: "+id); err != nil {
			return err
		}
	}
	return cliWriteLine(out, cliRenderSuccess(fmt.Sprintf("Total reclaimed space: %s", units.HumanSize(float64(report.SpaceReclaimed)))))
}

// runProgress prints one line per pull or build event. Build output already
// carries its own newlines.
func runProgress(stream ports.ProgressStream, out io.Writer) error {
	defer stream.Close()

	for ev, err := range stream.Events() {
		if err != nil {
			return err
		}
		if ev.Stream != nil {
			if _, err := io.WriteString(out, *ev.Stream); err != nil {
				return err
			}
			continue
		}
		if strings.TrimSpace(ev.Status) == "" {
			continue
		}
		if err := cliWriteLine(out, formatProgress(ev)); err != nil {
			return err
		}
	}
	return nil
}
