package model

// TrackStatus is the lifecycle state of a generated track.
// The string values are part of the persisted contract and must
// never be abbreviated or recased.
type TrackStatus string

const (
	TrackStatusGenerating TrackStatus = "generating"
	TrackStatusCompleted  TrackStatus = "completed"
	TrackStatusFailed     TrackStatus = "failed"
)

// Terminal reports whether no further transition may leave this status.
func (s TrackStatus) Terminal() bool {
	return s == TrackStatusCompleted || s == TrackStatusFailed
}

// Provider event statuses as reported by the compute provider's webhook.
const (
	ProviderStatusStarting   = "starting"
	ProviderStatusProcessing = "processing"
	ProviderStatusSucceeded  = "succeeded"
	ProviderStatusFailed     = "failed"
	ProviderStatusCanceled   = "canceled"
)
