package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/songsmith/api/internal/client"
	"github.com/songsmith/api/pkg/response"
)

type SearchHandler struct {
	searcher client.TrackSearcher
}

func NewSearchHandler(searcher client.TrackSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles GET /api/search?q=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return response.ValidationError(c, "Query parameter 'q' is required", nil)
	}
	if !h.searcher.IsConfigured() {
		return response.ServiceError(c, "Song search is not configured on this server")
	}

	tracks, err := h.searcher.Search(c.Context(), query, c.QueryInt("limit", 10))
	if err != nil {
		return response.UpstreamError(c, "Song search failed")
	}

	return response.OK(c, fiber.Map{"tracks": tracks})
}

// TrackDetails handles GET /api/search/tracks/:id
func (h *SearchHandler) TrackDetails(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Track ID is required", nil)
	}
	if !h.searcher.IsConfigured() {
		return response.ServiceError(c, "Song search is not configured on this server")
	}

	track, err := h.searcher.TrackDetails(c.Context(), id)
	if err != nil {
		return response.UpstreamError(c, "Track lookup failed")
	}

	return response.OK(c, track)
}
