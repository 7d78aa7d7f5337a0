package http

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
)

// ProxyHandler manages reverse proxying for subdomains.
type ProxyHandler struct {
	service ports.ContainerService
	domain  string
}

// NewProxyHandler creates a proxy for <container-name>.<domain>.
func NewProxyHandler(service ports.ContainerService, domain string) *ProxyHandler {
	return &ProxyHandler{service: service, domain: strings.ToLower(domain)}
}

// ProxyRequest intercepts requests to subdomains (e.g., app-name.localhost)
// and routes them to the corresponding container's internal IP.
func (h *ProxyHandler) ProxyRequest(c *fiber.Ctx) error {
	// 1. Extract Subdomain
	name, ok := strings.CutSuffix(strings.ToLower(c.Hostname()), "."+h.domain)
	if !ok || name == "" || strings.Contains(name, ".") {
		return c.Next()
	}

	// 2. Find Container by Name (Subdomain)
	target, err := h.resolve(c, name)
	if err != nil {
		return c.Status(statusFor(err)).SendString(err.Error())
	}
	if target == "" {
		return c.Status(fiber.StatusNotFound).SendString(fmt.Sprintf("App '%s' not found or not running", name))
	}

	// 3. Proxy the Request
	remote, err := url.Parse("http://" + target)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Invalid target URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)

	// The application inside sees its own address as Host.
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = remote.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprintf(w, "Proxy Info: target=%s error=%v", target, err)
	}

	// Fiber <-> Net/HTTP Adaptor
	return adaptor.HTTPHandler(proxy)(c)
}

// resolve returns "ip:port" of the running container called name, or "" if
// there is none.
func (h *ProxyHandler) resolve(c *fiber.Ctx, name string) (string, error) {
	containers, err := h.service.List(c.UserContext())
	if err != nil {
		return "", err
	}

	for _, summary := range containers {
		if summary.Name == nil || *summary.Name != name {
			continue
		}
		// Only proxy to running containers
		if summary.State == nil || *summary.State != domain.StateRunning {
			continue
		}

		details, err := h.service.Inspect(c.UserContext(), summary.ID)
		if err != nil {
			return "", err
		}
		if len(details.IPAddresses) == 0 {
			return "", nil
		}

		return net.JoinHostPort(details.IPAddresses[0], targetPort(details.Ports)), nil
	}
	return "", nil
}

// targetPort picks the port to forward to: 80/tcp when published, otherwise the
// lowest published tcp port, otherwise 80.
func targetPort(exposed []string) string {
	best := 0
	for _, p := range exposed {
		port := nat.Port(p)
		if port.Proto() != "tcp" {
			continue
		}
		n := port.Int()
		if n <= 0 {
			continue
		}
		if n == 80 {
			return "80"
		}
		if best == 0 || n < best {
			best = n
		}
	}
	if best == 0 {
		return "80"
	}
	return strconv.Itoa(best)
}
