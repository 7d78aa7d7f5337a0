package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// PortMapping publishes ContainerPort/tcp on HostPort of every host interface.
type PortMapping struct {
	HostPort      uint16
	ContainerPort uint16
}

// ParsePortMapping parses a "HOST:CONTAINER" mapping. The empty string means
// no mapping and returns nil. Anything else that is not two port numbers in
// 1..65535 is rejected.
func ParsePortMapping(s string) (*PortMapping, error) {
	if s == "" {
		return nil, nil
	}

	host, container, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("port mapping %q: expected HOST:CONTAINER", s)
	}

	hostPort, err := parsePort(host)
	if err != nil {
		return nil, fmt.Errorf("port mapping %q: host port: %w", s, err)
	}
	containerPort, err := parsePort(container)
	if err != nil {
		return nil, fmt.Errorf("port mapping %q: container port: %w", s, err)
	}

	return &PortMapping{HostPort: hostPort, ContainerPort: containerPort}, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a port number", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("port must be positive")
	}
	return uint16(n), nil
}

func (m PortMapping) String() string {
	return fmt.Sprintf("%d:%d", m.HostPort, m.ContainerPort)
}
