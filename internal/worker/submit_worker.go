package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/songsmith/api/internal/client"
	"github.com/songsmith/api/internal/service"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/internal/websocket"
)

// SubmitWorker runs the detached half of a generation submission: it calls
// the compute provider with the enriched prompt and either stores the
// returned job handle or drives the record to failed. The HTTP response to
// the original caller never waits on this.
type SubmitWorker struct {
	store      *store.Store
	generator  client.MusicGenerator
	hub        *websocket.Hub
	webhookURL string
}

// NewSubmitWorker creates a new submission worker. webhookURL is the
// externally reachable callback endpoint handed to the provider.
func NewSubmitWorker(st *store.Store, generator client.MusicGenerator, hub *websocket.Hub, webhookURL string) *SubmitWorker {
	return &SubmitWorker{
		store:      st,
		generator:  generator,
		hub:        hub,
		webhookURL: webhookURL,
	}
}

// ProcessTask handles one queued submission.
func (w *SubmitWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.SubmitTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	track, err := w.store.GetTrack(ctx, payload.TrackID)
	if err != nil {
		return fmt.Errorf("failed to load track %s: %w", payload.TrackID, err)
	}
	if track.Status.Terminal() {
		log.Printf("Track %s already %s, skipping submission", track.ID, track.Status)
		return nil
	}

	log.Printf("Submitting generation for track %s", track.ID)

	jobID, err := w.generator.Submit(ctx, &client.SubmitRequest{
		Prompt:          track.Prompt,
		DurationSeconds: track.DurationSeconds,
		WebhookURL:      w.webhookURL,
	})
	if err != nil {
		w.failTrack(ctx, track.ID, submissionMessage(err))
		return nil
	}

	applied, err := w.store.SetProviderJobID(ctx, track.ID, jobID)
	if err != nil {
		return fmt.Errorf("failed to store job handle for track %s: %w", track.ID, err)
	}
	if !applied {
		log.Printf("Track %s already has a job handle, ignoring %s", track.ID, jobID)
	}
	return nil
}

// submissionMessage extracts the user-facing message from a provider
// rejection.
func submissionMessage(err error) string {
	var rejection *client.SubmissionError
	if errors.As(err, &rejection) {
		return rejection.Message
	}
	if errors.Is(err, client.ErrNotConfigured) {
		return "Music generation is not configured on this server"
	}
	return "Music generation could not be started"
}

func (w *SubmitWorker) failTrack(ctx context.Context, trackID, message string) {
	update, err := w.store.FailTrack(ctx, trackID, message)
	if err != nil {
		log.Printf("Failed to mark track %s as failed: %v", trackID, err)
		return
	}
	w.hub.BroadcastUpdate(update)
}
