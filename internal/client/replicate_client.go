package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/songsmith/api/internal/config"
)

// MusicGenerator defines the interface for submitting text-to-music jobs to
// the external compute provider. Generation is asynchronous: the provider
// reports progress and results via webhook callbacks.
type MusicGenerator interface {
	Submit(ctx context.Context, req *SubmitRequest) (string, error)
	IsConfigured() bool
}

// SubmitRequest describes one generation job.
type SubmitRequest struct {
	Prompt          string
	DurationSeconds int
	WebhookURL      string
}

// ErrNotConfigured is returned when the provider credentials are missing.
// The core fails closed: no placeholder output is ever fabricated.
var ErrNotConfigured = errors.New("compute provider not configured")

// SubmissionError is a provider rejection classified into a user-facing
// message, stored verbatim on the failed track record.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// ReplicateClient implements MusicGenerator against a Replicate-style
// predictions API.
type ReplicateClient struct {
	httpClient   *http.Client
	baseURL      string
	apiToken     string
	modelVersion string
}

// NewReplicateClient creates a new compute provider client.
func NewReplicateClient(cfg *config.ReplicateConfig) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:      cfg.BaseURL,
		apiToken:     cfg.APIToken,
		modelVersion: cfg.ModelVersion,
	}
}

type predictionRequest struct {
	Version             string          `json:"version"`
	Input               predictionInput `json:"input"`
	Webhook             string          `json:"webhook"`
	WebhookEventsFilter []string        `json:"webhook_events_filter"`
}

type predictionInput struct {
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration"`
}

type predictionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Submit creates a prediction and returns the provider's job handle. The
// provider is asked to notify the webhook on start, output, logs and
// completion events.
func (c *ReplicateClient) Submit(ctx context.Context, req *SubmitRequest) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	body := predictionRequest{
		Version: c.modelVersion,
		Input: predictionInput{
			Prompt:   req.Prompt,
			Duration: req.DurationSeconds,
		},
		Webhook:             req.WebhookURL,
		WebhookEventsFilter: []string{"start", "output", "logs", "completed"},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predictions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	log.Printf("[Replicate API] → POST %s", httpReq.URL.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &SubmissionError{Message: "Music service is unreachable, please try again later"}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Replicate API] ← %d POST %s", resp.StatusCode, httpReq.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyRejection(resp.StatusCode, respBody)
	}

	var result predictionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.ID == "" {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Message: "Music service accepted the job but returned no job id"}
	}
	return result.ID, nil
}

// classifyRejection maps a provider rejection onto a user-facing message.
func classifyRejection(status int, body []byte) *SubmissionError {
	msg := "Music generation could not be started"
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg = "Music service rejected our credentials"
	case status == http.StatusPaymentRequired:
		msg = "Music service quota exhausted"
	case status == http.StatusTooManyRequests:
		msg = "Music service is rate limiting requests, please try again later"
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		msg = "Music service rejected the generation request"
	case status >= 500:
		msg = "Music service is temporarily unavailable"
	}
	log.Printf("[Replicate API] ✗ rejection (status %d): %s", status, string(body))
	return &SubmissionError{StatusCode: status, Message: msg}
}

// IsConfigured returns true if the client has valid configuration.
func (c *ReplicateClient) IsConfigured() bool {
	return c.apiToken != "" && c.modelVersion != ""
}
