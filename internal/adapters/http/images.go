package http

import (
	"bufio"
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse/internal/core/ports"
)

type ImageHandler struct {
	service ports.ImageService
	builder ports.BuilderService
	logger  *log.Logger
}

func NewImageHandler(service ports.ImageService, builder ports.BuilderService, logger *log.Logger) *ImageHandler {
	return &ImageHandler{service: service, builder: builder, logger: logger}
}

func (h *ImageHandler) ListImages(c *fiber.Ctx) error {
	images, err := h.service.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(images)
}

func (h *ImageHandler) InspectImage(c *fiber.Ctx) error {
	details, err := h.service.Inspect(c.UserContext(), c.Params("*"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(details)
}

func (h *ImageHandler) RemoveImage(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext(), c.Params("*")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ImageHandler) PruneImages(c *fiber.Ctx) error {
	report, err := h.service.Prune(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

type PullImageRequest struct {
	Reference string `json:"reference"`
}

func (h *ImageHandler) PullImage(c *fiber.Ctx) error {
	var req PullImageRequest
	if err := c.BodyParser(&req); err != nil || req.Reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Image reference is required",
		})
	}

	ctx, cancel := context.WithCancel(c.UserContext())
	stream, err := h.service.Pull(ctx, req.Reference)
	if err != nil {
		cancel()
		return writeError(c, err)
	}
	return h.streamEvents(c, stream, cancel)
}

type BuildImageRequest struct {
	RepoURL string `json:"repo_url"`
	Tag     string `json:"tag"`
}

// BuildImage is a long-running operation; output is streamed as it happens.
func (h *ImageHandler) BuildImage(c *fiber.Ctx) error {
	var req BuildImageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithCancel(c.UserContext())
	stream, err := h.builder.BuildImage(ctx, req.RepoURL, req.Tag)
	if err != nil {
		cancel()
		return writeError(c, err)
	}
	return h.streamEvents(c, stream, cancel)
}

// streamEvents writes every event as one JSON line. A failure after the
// status line has gone out is reported as a final {"error": ...} line.
// A client that goes away cancels the underlying operation.
func (h *ImageHandler) streamEvents(c *fiber.Ctx, stream ports.ProgressStream, cancel context.CancelFunc) error {
	logger := h.logger.With("path", c.Path())

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()

		enc := json.NewEncoder(w)
		for ev, err := range stream.Events() {
			if err != nil {
				_ = enc.Encode(fiber.Map{"error": err.Error()})
				_ = w.Flush()
				logger.Warn("stream ended with error", "err", err)
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				logger.Debug("client went away", "err", err)
				return
			}
		}
	})
	return nil
}
