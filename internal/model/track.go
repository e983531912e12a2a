package model

import "time"

// AudioFeatures is the bounded feature vector of a reference track.
// All 0..1 fields come straight from the search provider; Tempo is BPM.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
}

// ReferenceTrack is a structural snapshot of a song picked by the user.
// It is embedded in the Track record and never re-resolved against the
// provider's catalog.
type ReferenceTrack struct {
	ID       string         `json:"id" validate:"required"`
	Name     string         `json:"name" validate:"required"`
	Artist   string         `json:"artist"`
	Album    string         `json:"album"`
	Genres   []string       `json:"genres,omitempty"`
	Features *AudioFeatures `json:"features,omitempty"`
}

// Track is the durable record of one music-generation request.
//
// Status invariants: AudioURL is set iff status is completed, ErrorMessage
// only if failed, and ProviderJobID is written at most once.
type Track struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`

	ReferenceTracks []ReferenceTrack `gorm:"serializer:json" json:"referenceTracks,omitempty"`

	// Aggregates, computed once at creation.
	Genres  []string `gorm:"serializer:json" json:"genres,omitempty"`
	Tempo   float64  `json:"tempo"`
	Energy  float64  `json:"energy"`
	Valence float64  `json:"valence"`

	Status          TrackStatus `gorm:"index;not null" json:"status"`
	ProviderJobID   *string     `gorm:"uniqueIndex" json:"providerJobId,omitempty"`
	AudioURL        *string     `json:"audioUrl,omitempty"`
	StorageKey      *string     `json:"storageKey,omitempty"`
	DurationSeconds int         `gorm:"not null;default:30" json:"durationSeconds"`
	Duration        float64     `json:"duration"`
	ErrorMessage    *string     `json:"errorMessage,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrackUpdate is one row of the append-only notification log. A row exists
// only as a side effect of a Track status transition and, apart from the
// viewer-owned Seen flag, is never mutated.
type TrackUpdate struct {
	ID      string `gorm:"primaryKey" json:"id"`
	TrackID string `gorm:"index;not null" json:"trackId"`
	Track   *Track `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE" json:"-"`

	Status  TrackStatus    `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `gorm:"serializer:json" json:"data,omitempty"`
	Seen    bool           `gorm:"not null;default:false" json:"seen"`

	CreatedAt time.Time `json:"createdAt"`
}
