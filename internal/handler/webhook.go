package handler

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/songsmith/api/internal/model"
	"github.com/songsmith/api/internal/service"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/pkg/response"
)

// SignatureHeader carries the provider's HMAC-SHA256 hex digest over the raw
// request body, optionally prefixed with "sha256=".
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	callbacks     *service.CallbackService
	webhookSecret string
}

func NewWebhookHandler(callbacks *service.CallbackService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		callbacks:     callbacks,
		webhookSecret: webhookSecret,
	}
}

// ProviderCallback handles POST /webhooks/replicate. Authentication runs
// over the raw, unparsed body; nothing is parsed or mutated before the
// signature checks out.
func (h *WebhookHandler) ProviderCallback(c *fiber.Ctx) error {
	body := c.Body()

	if err := service.VerifySignature(h.webhookSecret, body, c.Get(SignatureHeader)); err != nil {
		return response.Unauthorized(c, err.Error())
	}

	var event model.ProviderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return response.ValidationError(c, "Malformed callback payload", nil)
	}

	if err := h.callbacks.HandleEvent(c.Context(), &event); err != nil {
		switch {
		case errors.Is(err, service.ErrMissingJobID):
			return response.ValidationError(c, "Callback payload has no job id", nil)
		case errors.Is(err, store.ErrNotFound):
			return response.NotFound(c, "No track matches this job")
		default:
			log.Printf("Callback for job %s failed: %v", event.ID, err)
			return response.UpstreamError(c, "Failed to process callback")
		}
	}

	return response.OK(c, fiber.Map{"received": true})
}
