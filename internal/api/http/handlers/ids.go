package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// List paging bounds; maxPage keeps the offset well inside int range.
const (
	maxPageSize = 100
	maxPage     = math.MaxInt32 / maxPageSize
)

// pathID returns the :id route parameter. A malformed uuid cannot name a
// stored row, so it is reported as not found.
func pathID(c *fiber.Ctx, resource string) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return id, nil
}

// bodyID checks an id taken from a request payload.
func bodyID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.NewValidationError(field+" required", nil)
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", apperrors.NewValidationError("malformed "+field, map[string]any{field: value})
	}
	return value, nil
}
