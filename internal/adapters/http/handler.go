package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/core/ports"
)

type ContainerHandler struct {
	service ports.ContainerService
}

func NewContainerHandler(service ports.ContainerService) *ContainerHandler {
	return &ContainerHandler{service: service}
}

func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	containers, err := h.service.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(containers)
}

func (h *ContainerHandler) InspectContainer(c *fiber.Ctx) error {
	details, err := h.service.Inspect(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(details)
}

type CreateContainerRequest struct {
	Image string `json:"image"`
	Ports string `json:"ports"` // "" or "HOST:CONTAINER"
}

func (h *ContainerHandler) CreateContainer(c *fiber.Ctx) error {
	var req CreateContainerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image name is required",
		})
	}

	containerID, err := h.service.Create(c.UserContext(), req.Image, req.Ports)
	if err != nil {
		// A container that failed to start still exists; report its id.
		if containerID != "" {
			return c.Status(statusFor(err)).JSON(fiber.Map{
				"error": err.Error(),
				"id":    containerID,
			})
		}
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    containerID,
		"image": req.Image,
	})
}

func (h *ContainerHandler) StartContainer(c *fiber.Ctx) error {
	return h.lifecycle(c, h.service.Start)
}

func (h *ContainerHandler) StopContainer(c *fiber.Ctx) error {
	return h.lifecycle(c, h.service.Stop)
}

func (h *ContainerHandler) KillContainer(c *fiber.Ctx) error {
	return h.lifecycle(c, h.service.Kill)
}

func (h *ContainerHandler) RemoveContainer(c *fiber.Ctx) error {
	return h.lifecycle(c, h.service.Remove)
}

func (h *ContainerHandler) lifecycle(c *fiber.Ctx, action func(ctx context.Context, id string) error) error {
	if err := action(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ContainerHandler) GetContainerLogs(c *fiber.Ctx) error {
	opts := domain.LogsOptions{
		Follow:     c.QueryBool("follow"),
		Tail:       c.Query("tail", "all"),
		Timestamps: c.QueryBool("timestamps"),
	}

	logs, err := h.service.Logs(c.UserContext(), c.Params("id"), opts)
	if err != nil {
		return writeError(c, err)
	}

	// fasthttp closes the stream once it has been sent.
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendStream(logs)
}
