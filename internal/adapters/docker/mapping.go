package docker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/melih/lighthouse/internal/core/domain"
)

// The Docker SDK decodes a missing string field as "", so an empty string is
// treated as "not reported".
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalState(s string) *domain.ContainerState {
	if s == "" {
		return nil
	}
	st := domain.ParseContainerState(s)
	return &st
}

func containerSummaryFrom(c container.Summary) domain.ContainerSummary {
	summary := domain.ContainerSummary{
		ID:     c.ID,
		Status: optionalString(c.Status),
		State:  optionalState(string(c.State)),
	}

	// Use the first name if available, remove slash
	if len(c.Names) > 0 {
		summary.Name = optionalString(strings.TrimPrefix(c.Names[0], "/"))
	}

	if c.Ports != nil {
		summary.Ports = make([]string, 0, len(c.Ports))
		for _, p := range c.Ports {
			if p.IP != "" {
				summary.Ports = append(summary.Ports, p.IP)
			}
		}
	}

	return summary
}

func containerDetailsFrom(resp container.InspectResponse) (domain.ContainerDetails, error) {
	var details domain.ContainerDetails

	if base := resp.ContainerJSONBase; base != nil {
		details.ID = optionalString(base.ID)
		details.Name = optionalString(strings.TrimPrefix(base.Name, "/"))
		details.Created = optionalString(base.Created)
		if base.State != nil {
			details.State = optionalState(base.State.Status)
			details.Status = optionalString(renderStatus(base.State.Status, base.State.ExitCode))
		}
	}

	if cfg := resp.Config; cfg != nil {
		details.Image = optionalString(cfg.Image)
		details.Env = cfg.Env
		details.Command = strings.Join(cfg.Cmd, " ")
	}

	if ns := resp.NetworkSettings; ns != nil {
		if ns.Networks != nil {
			names := make([]string, 0, len(ns.Networks))
			for name := range ns.Networks {
				names = append(names, name)
			}
			sort.Strings(names)

			details.Networks = names
			details.IPAddresses = make([]string, 0, len(names))
			for _, name := range names {
				if ep := ns.Networks[name]; ep != nil && ep.IPAddress != "" {
					details.IPAddresses = append(details.IPAddresses, ep.IPAddress)
				}
			}
		}

		if ns.Ports != nil {
			details.Ports = make([]string, 0, len(ns.Ports))
			for port, bindings := range ns.Ports {
				if len(bindings) > 0 {
					details.Ports = append(details.Ports, string(port))
				}
			}
			sort.Strings(details.Ports)
		}
	}

	if resp.Mounts != nil {
		details.Volumes = make([]string, 0, len(resp.Mounts))
		for i, m := range resp.Mounts {
			if m.Destination == "" {
				return domain.ContainerDetails{}, fmt.Errorf("mount %d (%s) has no destination", i, m.Source)
			}
			source := m.Source
			if source == "" {
				source = m.Name
			}
			details.Volumes = append(details.Volumes, fmt.Sprintf("%s → %s", source, m.Destination))
		}
	}

	return details, nil
}

// renderStatus produces the short human-readable form of a container state.
func renderStatus(status string, exitCode int) string {
	switch domain.ContainerState(status) {
	case "":
		return ""
	case domain.StateRunning:
		return "Up"
	case domain.StatePaused:
		return "Up (Paused)"
	case domain.StateRestarting:
		return fmt.Sprintf("Restarting (%d)", exitCode)
	case domain.StateExited:
		return fmt.Sprintf("Exited (%d)", exitCode)
	case domain.StateCreated:
		return "Created"
	case domain.StateRemoving:
		return "Removal In Progress"
	case domain.StateDead:
		return "Dead"
	default:
		return status
	}
}

func imageSummaryFrom(img image.Summary) domain.ImageSummary {
	size := img.Size
	if size < 0 {
		size = 0
	}
	return domain.ImageSummary{
		ID:       img.ID,
		RepoTags: img.RepoTags,
		Size:     size,
	}
}

func imageDetailsFrom(resp image.InspectResponse) domain.ImageDetails {
	return domain.ImageDetails{
		ID:       resp.ID,
		ParentID: resp.Parent,
		RepoTags: resp.RepoTags,
		Created:  optionalString(resp.Created),
		Size:     resp.Size,
		Author:   optionalString(resp.Author),
	}
}

func progressEventFrom(msg jsonmessage.JSONMessage) domain.PullProgressEvent {
	event := domain.PullProgressEvent{
		Status: msg.Status,
		ID:     optionalString(msg.ID),
		Stream: optionalString(msg.Stream),
	}
	// Phases without counters still send "progressDetail":{}.
	if p := msg.Progress; p != nil && (p.Current != 0 || p.Total != 0) {
		event.ProgressDetail = &domain.ProgressDetail{Current: p.Current, Total: p.Total}
	}
	return event
}

func pruneReportFrom(report image.PruneReport) domain.PruneReport {
	out := domain.PruneReport{
		Deleted:        make([]string, 0, len(report.ImagesDeleted)),
		SpaceReclaimed: report.SpaceReclaimed,
	}
	for _, item := range report.ImagesDeleted {
		if item.Deleted != "" {
			out.Deleted = append(out.Deleted, item.Deleted)
		}
		if item.Untagged != "" {
			out.Deleted = append(out.Deleted, item.Untagged)
		}
	}
	return out
}
