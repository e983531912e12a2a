package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/songsmith/api/internal/client"
	"github.com/songsmith/api/internal/model"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/internal/websocket"
)

// Signature verification errors, both answered with 401.
var (
	ErrMissingSignature = errors.New("signature required but not supplied")
	ErrInvalidSignature = errors.New("signature verification failed")
)

// ErrMissingJobID is returned when the callback payload carries no provider
// job handle.
var ErrMissingJobID = errors.New("callback payload has no job id")

// UpstreamFailure reports that applying an otherwise valid callback failed on
// a downstream dependency (artifact download or storage). The track has
// already been driven to failed with the cause; this error only informs the
// HTTP response.
type UpstreamFailure struct {
	Cause error
}

func (e *UpstreamFailure) Error() string {
	return e.Cause.Error()
}

func (e *UpstreamFailure) Unwrap() error {
	return e.Cause
}

// VerifySignature checks an HMAC-SHA256 hex digest over the raw request body
// against the supplied header value, tolerating a "sha256=" prefix. The
// comparison is constant time. An empty secret disables verification; that
// is an explicit degraded mode, not a production default.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// CallbackService applies provider webhook events to the track state
// machine: correlating the job handle, relocating finished artifacts into
// owned storage and fanning status changes out to viewers.
type CallbackService struct {
	store      *store.Store
	storage    client.StorageClient
	hub        *websocket.Hub
	downloader *http.Client
}

func NewCallbackService(st *store.Store, storage client.StorageClient, hub *websocket.Hub) *CallbackService {
	return &CallbackService{
		store:   st,
		storage: storage,
		hub:     hub,
		downloader: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HandleEvent applies one provider event. Duplicate terminal events for the
// same job are idempotent no-ops: the conditional transition in the store
// finds the record already terminal and changes nothing.
func (s *CallbackService) HandleEvent(ctx context.Context, event *model.ProviderEvent) error {
	if event.ID == "" {
		return ErrMissingJobID
	}

	track, err := s.store.GetTrackByProviderJobID(ctx, event.ID)
	if err != nil {
		return err
	}

	switch event.Status {
	case model.ProviderStatusSucceeded:
		return s.applySuccess(ctx, track, event)

	case model.ProviderStatusFailed, model.ProviderStatusCanceled:
		message := event.Error
		if message == "" {
			message = fmt.Sprintf("generation %s", event.Status)
		}
		update, err := s.store.FailTrack(ctx, track.ID, message)
		if err != nil {
			return err
		}
		s.hub.BroadcastUpdate(update)
		return nil

	case model.ProviderStatusStarting, model.ProviderStatusProcessing:
		return s.store.Touch(ctx, track.ID)

	default:
		// Unknown statuses are acknowledged without mutating state.
		log.Printf("Ignoring provider event with status %q for track %s", event.Status, track.ID)
		return nil
	}
}

func (s *CallbackService) applySuccess(ctx context.Context, track *model.Track, event *model.ProviderEvent) error {
	if track.Status.Terminal() {
		return nil
	}

	outputURL := event.OutputURL()
	if outputURL == "" {
		return s.failWithCause(ctx, track.ID, errors.New("provider reported success without output"))
	}

	// Fail closed when storage is unconfigured; no placeholder URLs.
	if s.storage == nil {
		return s.failWithCause(ctx, track.ID, errors.New("object storage is not configured"))
	}

	audio, err := s.download(ctx, outputURL)
	if err != nil {
		return s.failWithCause(ctx, track.ID, fmt.Errorf("failed to retrieve generated audio: %w", err))
	}

	// Timestamp suffix avoids key collisions; existing objects are never
	// overwritten.
	key := fmt.Sprintf("tracks/%s-%d.mp3", track.ID, time.Now().UnixNano())
	publicURL, err := s.storage.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return s.failWithCause(ctx, track.ID, fmt.Errorf("failed to store generated audio: %w", err))
	}

	duration := float64(track.DurationSeconds)
	if duration <= 0 {
		duration = DefaultDurationSeconds
	}

	update, err := s.store.CompleteTrack(ctx, track.ID, publicURL, key, duration)
	if err != nil {
		return err
	}
	s.hub.BroadcastUpdate(update)
	return nil
}

// failWithCause drives the track to failed with the captured cause as its
// stored error message, broadcasts the transition, and reports the failure
// to the triggering caller.
func (s *CallbackService) failWithCause(ctx context.Context, trackID string, cause error) error {
	update, err := s.store.FailTrack(ctx, trackID, cause.Error())
	if err != nil {
		return err
	}
	s.hub.BroadcastUpdate(update)
	return &UpstreamFailure{Cause: cause}
}

func (s *CallbackService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.downloader.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
