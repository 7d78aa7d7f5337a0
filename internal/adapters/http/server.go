package http

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/melih/lighthouse/internal/core/ports"
)

// RuntimeInfo reports the version of the connected runtime.
type RuntimeInfo interface {
	Version(ctx context.Context) (string, error)
}

// Services are the core ports the API exposes.
type Services struct {
	Containers ports.ContainerService
	Images     ports.ImageService
	Builder    ports.BuilderService
	Runtime    RuntimeInfo
}

// NewApp wires the routes. A non-empty proxyDomain enables name-based
// proxying to containers ahead of the API routes.
func NewApp(svc Services, proxyDomain string, logger *log.Logger) *fiber.App {
	logger = logger.WithPrefix("http")

	app := fiber.New(fiber.Config{
		AppName:               "lighthouse",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestLogger(logger))

	if proxyDomain != "" {
		app.Use(NewProxyHandler(svc.Containers, proxyDomain).ProxyRequest)
	}

	containerHandler := NewContainerHandler(svc.Containers)
	imageHandler := NewImageHandler(svc.Images, svc.Builder, logger)

	v1 := app.Group("/api").Group("/v1")
	v1.Get("/health", health(svc.Runtime))

	// Routes for Container operations
	containers := v1.Group("/containers")
	containers.Get("/", containerHandler.ListContainers)
	containers.Post("/", containerHandler.CreateContainer)
	containers.Get("/:id", containerHandler.InspectContainer)
	containers.Delete("/:id", containerHandler.RemoveContainer)
	containers.Post("/:id/start", containerHandler.StartContainer)
	containers.Post("/:id/stop", containerHandler.StopContainer)
	containers.Post("/:id/kill", containerHandler.KillContainer)
	containers.Get("/:id/logs", containerHandler.GetContainerLogs)

	// Routes for Image operations; references may contain slashes
	images := v1.Group("/images")
	images.Get("/", imageHandler.ListImages)
	images.Post("/prune", imageHandler.PruneImages)
	images.Post("/pull", imageHandler.PullImage)
	images.Post("/build", imageHandler.BuildImage)
	images.Get("/*", imageHandler.InspectImage)
	images.Delete("/*", imageHandler.RemoveImage)

	return app
}

func health(runtime RuntimeInfo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		version, err := runtime.Version(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":          "ok",
			"runtime_version": version,
		})
	}
}

func requestLogger(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
