package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/songsmith/api/internal/model"
	"github.com/songsmith/api/internal/service"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/pkg/response"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

type TrackHandler struct {
	service   *service.TrackService
	validator *validator.Validate
}

func NewTrackHandler(svc *service.TrackService, v *validator.Validate) *TrackHandler {
	return &TrackHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/tracks/generate
func (h *TrackHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	track, err := h.service.Generate(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyRequest) || errors.Is(err, service.ErrTooManyReferences) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, "Failed to start generation")
	}

	return response.Accepted(c, model.GenerateResponse{
		ID:        track.ID,
		Title:     track.Title,
		Status:    track.Status,
		CreatedAt: track.CreatedAt,
	})
}

// Get handles GET /api/tracks/:id
func (h *TrackHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}

	track, err := h.service.GetTrack(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Track not found")
		}
		return response.ServiceError(c, "Failed to load track")
	}

	return response.OK(c, track)
}

// ListRecent handles GET /api/tracks
func (h *TrackHandler) ListRecent(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	tracks, err := h.service.ListRecent(c.Context(), limit)
	if err != nil {
		return response.ServiceError(c, "Failed to list tracks")
	}

	return response.OK(c, fiber.Map{"tracks": tracks})
}

// ListUpdates handles GET /api/tracks/:id/updates
func (h *TrackHandler) ListUpdates(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}

	updates, err := h.service.ListUpdates(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Track not found")
		}
		return response.ServiceError(c, "Failed to list updates")
	}

	return response.OK(c, fiber.Map{"updates": updates})
}

// MarkUpdateSeen handles POST /api/tracks/updates/:updateId/seen
func (h *TrackHandler) MarkUpdateSeen(c *fiber.Ctx) error {
	updateID := c.Params("updateId")
	if updateID == "" {
		return response.ValidationError(c, "Update ID is required", nil)
	}

	if err := h.service.MarkUpdateSeen(c.Context(), updateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Update not found")
		}
		return response.ServiceError(c, "Failed to mark update seen")
	}

	return response.OK(c, fiber.Map{"success": true})
}

func formatValidationErrors(err error) []fiber.Map {
	var details []fiber.Map
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details = append(details, fiber.Map{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			})
		}
	}
	return details
}
