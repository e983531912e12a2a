package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/songsmith/api/internal/model"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/internal/synth"
)

// Task types
const (
	TaskTypeSubmit = "generation:submit"
)

// DefaultDurationSeconds is the fixed target duration requested from the
// compute provider. It doubles as the completion fallback when a track
// somehow carries no stored duration parameter.
const DefaultDurationSeconds = 30

const maxReferenceTracks = 5

// ErrEmptyRequest is returned when neither a description nor any reference
// track was supplied. No record is created in that case.
var ErrEmptyRequest = errors.New("description or at least one reference track is required")

// ErrTooManyReferences is returned when more than five reference tracks are
// supplied.
var ErrTooManyReferences = errors.New("at most 5 reference tracks are allowed")

// Enqueuer is the slice of asynq.Client the dispatcher needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TrackService owns the generation dispatch path and all reads of the track
// record store.
type TrackService struct {
	store    *store.Store
	enqueuer Enqueuer
}

func NewTrackService(st *store.Store, enqueuer Enqueuer) *TrackService {
	return &TrackService{
		store:    st,
		enqueuer: enqueuer,
	}
}

// SubmitTaskPayload is the payload of a queued provider submission.
type SubmitTaskPayload struct {
	TrackID string `json:"trackId"`
}

// Generate validates the request, synthesizes title and prompt, persists the
// generating record and enqueues the detached provider submission. It
// returns as soon as the record is durable; the provider call happens in the
// background task and is never awaited here.
func (s *TrackService) Generate(ctx context.Context, req *model.GenerateRequest) (*model.Track, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" && len(req.SelectedSongs) == 0 {
		return nil, ErrEmptyRequest
	}
	if len(req.SelectedSongs) > maxReferenceTracks {
		return nil, ErrTooManyReferences
	}

	title, prompt := synth.Synthesize(description, req.SelectedSongs)
	agg := synth.Aggregate(req.SelectedSongs)

	track := &model.Track{
		ID:              uuid.New().String(),
		Title:           title,
		Description:     description,
		Prompt:          prompt,
		ReferenceTracks: req.SelectedSongs,
		Genres:          agg.Genres,
		Tempo:           agg.Tempo,
		Energy:          agg.Energy,
		Valence:         agg.Valence,
		Status:          model.TrackStatusGenerating,
		DurationSeconds: DefaultDurationSeconds,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.store.CreateTrack(ctx, track); err != nil {
		return nil, err
	}

	task, err := newSubmitTask(track.ID)
	if err != nil {
		return nil, err
	}
	// No automatic retries: a rejected submission drives the record to
	// failed and a new submission is required.
	if _, err := s.enqueuer.Enqueue(task,
		asynq.Queue("generation"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	); err != nil {
		// The record already exists, so the error has to land on it: a
		// track with no queued task would otherwise sit in generating
		// forever.
		if _, ferr := s.store.FailTrack(ctx, track.ID, "Music generation could not be started"); ferr != nil {
			log.Printf("Failed to mark track %s as failed after enqueue error: %v", track.ID, ferr)
		}
		return nil, fmt.Errorf("failed to enqueue submission task: %w", err)
	}

	return track, nil
}

// GetTrack returns the full track record.
func (s *TrackService) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	return s.store.GetTrack(ctx, id)
}

// ListRecent returns the newest completed tracks.
func (s *TrackService) ListRecent(ctx context.Context, limit int) ([]*model.Track, error) {
	return s.store.ListRecent(ctx, limit, model.TrackStatusCompleted)
}

// ListUpdates returns the notification log of a track, oldest first.
func (s *TrackService) ListUpdates(ctx context.Context, trackID string) ([]*model.TrackUpdate, error) {
	if _, err := s.store.GetTrack(ctx, trackID); err != nil {
		return nil, err
	}
	return s.store.ListTrackUpdates(ctx, trackID)
}

// MarkUpdateSeen flips the viewer-owned seen flag on one notification.
func (s *TrackService) MarkUpdateSeen(ctx context.Context, updateID string) error {
	return s.store.MarkUpdateSeen(ctx, updateID)
}

func newSubmitTask(trackID string) (*asynq.Task, error) {
	data, err := json.Marshal(SubmitTaskPayload{TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSubmit, data), nil
}
