package docker

import (
	"context"
	"errors"
	"strings"

	cerrdefs "github.com/containerd/errdefs"

	"github.com/melih/lighthouse/internal/core/domain"
)

// Message fragments used when the runtime error carries no usable status.
// They are matched case-insensitively, not-found rules first.
var (
	notFoundPatterns = []string{
		"no such container",
		"no such image",
		"no such object",
		"not found",
		"does not exist",
	}
	permissionPatterns = []string{
		"permission denied",
		"unauthorized",
		"access denied",
		"forbidden",
		"authentication required",
	}
)

// classify converts a runtime failure into an OperationError tagged with the
// operation and target. Errors that already are OperationErrors pass through.
func classify(op, target string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *domain.OperationError
	if errors.As(err, &opErr) {
		return err
	}

	return domain.NewOperationError(op, target, kindOf(err), err)
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrRuntime
	case cerrdefs.IsNotFound(err):
		return domain.ErrNotFound
	case cerrdefs.IsPermissionDenied(err), cerrdefs.IsUnauthorized(err):
		return domain.ErrPermissionDenied
	case cerrdefs.IsInvalidArgument(err):
		return domain.ErrValidation
	}
	return kindFromMessage(err.Error())
}

func kindFromMessage(msg string) error {
	msg = strings.ToLower(msg)
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return domain.ErrNotFound
		}
	}
	for _, p := range permissionPatterns {
		if strings.Contains(msg, p) {
			return domain.ErrPermissionDenied
		}
	}
	return domain.ErrRuntime
}
