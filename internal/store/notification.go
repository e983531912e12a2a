package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/songsmith/api/internal/model"
)

// appendUpdate writes one row of the append-only notification log. Called
// only from within a status transition, inside its transaction.
func appendUpdate(tx *gorm.DB, trackID string, status model.TrackStatus, message string, data map[string]any) (*model.TrackUpdate, error) {
	u := &model.TrackUpdate{
		ID:        uuid.New().String(),
		TrackID:   trackID,
		Status:    status,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(u).Error; err != nil {
		return nil, fmt.Errorf("store: failed to append update for track %s: %w", trackID, err)
	}
	return u, nil
}

// ListTrackUpdates returns the notification log for a track, oldest first.
func (s *Store) ListTrackUpdates(ctx context.Context, trackID string) ([]*model.TrackUpdate, error) {
	updates := []*model.TrackUpdate{}
	err := s.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Order("created_at ASC").
		Find(&updates).Error
	if err != nil {
		return nil, fmt.Errorf("store: failed to list updates for track %s: %w", trackID, err)
	}
	return updates, nil
}

// MarkUpdateSeen sets the viewer-owned seen flag. The rest of a logged
// update is immutable once written.
func (s *Store) MarkUpdateSeen(ctx context.Context, updateID string) error {
	res := s.db.WithContext(ctx).Model(&model.TrackUpdate{}).
		Where("id = ?", updateID).
		UpdateColumn("seen", true)
	if res.Error != nil {
		return fmt.Errorf("store: failed to mark update %s seen: %w", updateID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTrackUpdates reports how many notification events a track has.
func (s *Store) CountTrackUpdates(ctx context.Context, trackID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.TrackUpdate{}).
		Where("track_id = ?", trackID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("store: failed to count updates for track %s: %w", trackID, err)
	}
	return count, nil
}
