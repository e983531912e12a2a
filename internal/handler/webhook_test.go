package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/songsmith/api/internal/model"
	"github.com/songsmith/api/internal/service"
	"github.com/songsmith/api/internal/store"
	ws "github.com/songsmith/api/internal/websocket"
)

const testWebhookSecret = "whsec_test"

// memStorage keeps uploads in memory for end-to-end callback tests.
type memStorage struct {
	uploads map[string][]byte
}

func (m *memStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.uploads[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memStorage) Download(ctx context.Context, key string) ([]byte, error) {
	return m.uploads[key], nil
}

func (m *memStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://cdn.test/" + key + "?signed", nil
}

func (m *memStorage) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func newWebhookApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	st, err := store.New("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	callbacks := service.NewCallbackService(st, &memStorage{uploads: map[string][]byte{}}, hub)
	h := NewWebhookHandler(callbacks, testWebhookSecret)

	app := fiber.New()
	app.Post("/webhooks/replicate", h.ProviderCallback)
	return app, st
}

func seedSubmitted(t *testing.T, st *store.Store, jobID string) *model.Track {
	t.Helper()
	ctx := context.Background()
	track := &model.Track{
		ID:              uuid.New().String(),
		Title:           "Golden Hour Drive",
		Status:          model.TrackStatusGenerating,
		DurationSeconds: 30,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := st.CreateTrack(ctx, track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}
	if _, err := st.SetProviderJobID(ctx, track.ID, jobID); err != nil {
		t.Fatalf("failed to attach job handle: %v", err)
	}
	return track
}

func signPayload(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postCallback(t *testing.T, app *fiber.App, body, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/replicate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestProviderCallback_Success(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	defer origin.Close()

	app, st := newWebhookApp(t)
	track := seedSubmitted(t, st, "job-1")

	body := `{"id":"job-1","status":"succeeded","output":"` + origin.URL + `/out.mp3"}`
	resp := postCallback(t, app, body, signPayload(body))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got, _ := st.GetTrack(context.Background(), track.ID)
	if got.Status != model.TrackStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.AudioURL == nil || !strings.HasPrefix(*got.AudioURL, "https://cdn.test/") {
		t.Errorf("expected relocated artifact URL, got %v", got.AudioURL)
	}
}

func TestProviderCallback_MissingSignature(t *testing.T) {
	app, st := newWebhookApp(t)
	track := seedSubmitted(t, st, "job-1")

	body := `{"id":"job-1","status":"failed","error":"boom"}`
	resp := postCallback(t, app, body, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	got, _ := st.GetTrack(context.Background(), track.ID)
	if got.Status != model.TrackStatusGenerating {
		t.Errorf("unauthenticated callback must not mutate state, got %s", got.Status)
	}
}

func TestProviderCallback_TamperedBody(t *testing.T) {
	app, st := newWebhookApp(t)
	seedSubmitted(t, st, "job-1")

	signed := `{"id":"job-1","status":"failed"}`
	tampered := `{"id":"job-1","status":"succeeded"}`
	resp := postCallback(t, app, tampered, signPayload(signed))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProviderCallback_MalformedPayload(t *testing.T) {
	app, _ := newWebhookApp(t)

	body := `{"id":`
	resp := postCallback(t, app, body, signPayload(body))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestProviderCallback_MissingJobID(t *testing.T) {
	app, _ := newWebhookApp(t)

	body := `{"status":"succeeded","output":"https://origin.test/out.mp3"}`
	resp := postCallback(t, app, body, signPayload(body))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestProviderCallback_UnknownJob(t *testing.T) {
	app, _ := newWebhookApp(t)

	body := `{"id":"job-unknown","status":"succeeded","output":"https://origin.test/out.mp3"}`
	resp := postCallback(t, app, body, signPayload(body))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestProviderCallback_DownstreamFailure(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer origin.Close()

	app, st := newWebhookApp(t)
	track := seedSubmitted(t, st, "job-1")

	body := `{"id":"job-1","status":"succeeded","output":"` + origin.URL + `/out.mp3"}`
	resp := postCallback(t, app, body, signPayload(body))
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}

	got, _ := st.GetTrack(context.Background(), track.ID)
	if got.Status != model.TrackStatusFailed {
		t.Errorf("expected failed after unreachable artifact, got %s", got.Status)
	}
}
