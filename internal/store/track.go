package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/songsmith/api/internal/model"
)

// CreateTrack persists a new track record. The caller sets the initial
// status (always generating at submission time).
func (s *Store) CreateTrack(ctx context.Context, track *model.Track) error {
	if err := s.db.WithContext(ctx).Create(track).Error; err != nil {
		return fmt.Errorf("store: failed to create track %s: %w", track.ID, err)
	}
	return nil
}

// GetTrack returns the track with the given id or ErrNotFound.
func (s *Store) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	var t model.Track
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: failed to get track %s: %w", id, err)
	}
	return &t, nil
}

// GetTrackByProviderJobID correlates a provider job handle back to its track.
func (s *Store) GetTrackByProviderJobID(ctx context.Context, jobID string) (*model.Track, error) {
	var t model.Track
	if err := s.db.WithContext(ctx).First(&t, "provider_job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: failed to get track by job %s: %w", jobID, err)
	}
	return &t, nil
}

// ListRecent returns up to limit tracks with the given status, newest first.
// Re-querying returns the current top-N, not a snapshot cursor.
func (s *Store) ListRecent(ctx context.Context, limit int, status model.TrackStatus) ([]*model.Track, error) {
	tracks := []*model.Track{}
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("store: failed to list tracks: %w", err)
	}
	return tracks, nil
}

// SetProviderJobID stores the provider's job handle on the track. A track
// maps to exactly one provider job: once set, the handle is never
// overwritten, so a second call with a different value is a no-op.
// Returns whether the write was applied.
func (s *Store) SetProviderJobID(ctx context.Context, id, jobID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ? AND provider_job_id IS NULL", id).
		Updates(map[string]any{
			"provider_job_id": jobID,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("store: failed to set provider job id on track %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := s.GetTrack(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Touch bumps the updated timestamp of a still-generating track. Terminal
// tracks are left untouched. No notification event is emitted because the
// status does not change.
func (s *Store) Touch(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ? AND status = ?", id, model.TrackStatusGenerating).
		UpdateColumn("updated_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("store: failed to touch track %s: %w", id, res.Error)
	}
	return nil
}

// CompleteTrack transitions a generating track to completed, recording the
// relocated artifact. The update is conditional on the current status, so
// concurrent terminal callbacks for the same track cannot both commit.
// Returns the appended notification event, or nil if the track was already
// terminal (idempotent no-op).
func (s *Store) CompleteTrack(ctx context.Context, id, audioURL, storageKey string, duration float64) (*model.TrackUpdate, error) {
	return s.transition(ctx, id, map[string]any{
		"status":      model.TrackStatusCompleted,
		"audio_url":   audioURL,
		"storage_key": storageKey,
		"duration":    duration,
	}, model.TrackStatusCompleted, "Your track is ready", map[string]any{
		"audioUrl": audioURL,
		"duration": duration,
	})
}

// FailTrack transitions a generating track to failed with a human-readable
// error message. Idempotent under the same terminal-state guard as
// CompleteTrack.
func (s *Store) FailTrack(ctx context.Context, id, message string) (*model.TrackUpdate, error) {
	return s.transition(ctx, id, map[string]any{
		"status":        model.TrackStatusFailed,
		"error_message": message,
	}, model.TrackStatusFailed, message, nil)
}

// transition applies a conditional status change and appends exactly one
// notification event in the same transaction. The WHERE status='generating'
// predicate is the terminal-state guard: events arriving after a terminal
// transition, including provider replays, affect zero rows.
func (s *Store) transition(ctx context.Context, id string, fields map[string]any, status model.TrackStatus, message string, data map[string]any) (*model.TrackUpdate, error) {
	var update *model.TrackUpdate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields["updated_at"] = time.Now()
		res := tx.Model(&model.Track{}).
			Where("id = ? AND status = ?", id, model.TrackStatusGenerating).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Track{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			// Already terminal, nothing to do.
			return nil
		}
		u, err := appendUpdate(tx, id, status, message, data)
		if err != nil {
			return err
		}
		update = u
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: failed to transition track %s to %s: %w", id, status, err)
	}
	return update, nil
}
