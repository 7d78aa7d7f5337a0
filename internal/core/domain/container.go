package domain

// ContainerState is the lifecycle state reported by the runtime.
type ContainerState string

const (
	StateCreated    ContainerState = "created"
	StateRunning    ContainerState = "running"
	StatePaused     ContainerState = "paused"
	StateRestarting ContainerState = "restarting"
	StateRemoving   ContainerState = "removing"
	StateExited     ContainerState = "exited"
	StateDead       ContainerState = "dead"
	StateUnknown    ContainerState = "unknown"
)

// ParseContainerState maps a runtime state string onto ContainerState.
// Unrecognized values become StateUnknown.
func ParseContainerState(s string) ContainerState {
	switch st := ContainerState(s); st {
	case StateCreated, StateRunning, StatePaused, StateRestarting,
		StateRemoving, StateExited, StateDead:
		return st
	default:
		return StateUnknown
	}
}

// ContainerSummary represents one row of the container listing.
// Nil pointers and nil slices mean the runtime did not report the value.
type ContainerSummary struct {
	ID     string          `json:"id"`
	Name   *string         `json:"name"`
	Status *string         `json:"status"`
	State  *ContainerState `json:"state"`
	Ports  []string        `json:"ports"` // host IPs of published ports
}

// ContainerDetails is the normalized result of inspecting a single container.
// Every field is independently optional.
type ContainerDetails struct {
	ID          *string         `json:"id"`
	Name        *string         `json:"name"`
	Image       *string         `json:"image"`
	Created     *string         `json:"created"`
	State       *ContainerState `json:"state"`
	Status      *string         `json:"status"`
	Networks    []string        `json:"networks"`
	IPAddresses []string        `json:"ip_addresses"`
	Volumes     []string        `json:"volumes"`
	Ports       []string        `json:"ports"`
	Env         []string        `json:"env"`
	Command     string          `json:"command"`
}

// LogsOptions controls which container output Logs returns.
type LogsOptions struct {
	Follow     bool
	Tail       string // "all" or a line count
	Timestamps bool
}
