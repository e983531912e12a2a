package model

import (
	"encoding/json"
	"time"
)

// GenerateRequest starts a new track generation. Description and
// SelectedSongs may not both be empty; the handler enforces that.
type GenerateRequest struct {
	Description   string           `json:"description"`
	SelectedSongs []ReferenceTrack `json:"selectedSongs" validate:"max=5,dive"`
}

// GenerateResponse is returned synchronously; completion is observed later
// via GET /api/tracks/:id or the websocket feed.
type GenerateResponse struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Status    TrackStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ProviderEvent is the webhook payload posted by the compute provider.
// Output is either a single URL string or a list of URLs.
type ProviderEvent struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OutputURL extracts the artifact URL from the event output, which the
// provider sends either as a string or as a non-empty array of strings.
func (e *ProviderEvent) OutputURL() string {
	if len(e.Output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(e.Output, &single); err == nil {
		return single
	}
	var list []string
	if err := json.Unmarshal(e.Output, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
