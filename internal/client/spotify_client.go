package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/songsmith/api/internal/config"
	"github.com/songsmith/api/internal/model"
)

// TrackSearcher defines the interface for the external song-search provider.
// Both calls tolerate partial data: missing audio features or genres degrade
// gracefully instead of failing the lookup.
type TrackSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.ReferenceTrack, error)
	TrackDetails(ctx context.Context, id string) (*model.ReferenceTrack, error)
	IsConfigured() bool
}

// tokenCache holds the client-credentials access token together with its
// expiry, refreshed on demand. One cache per client, no process-wide state.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// SpotifyClient implements TrackSearcher for the Spotify Web API.
type SpotifyClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	accountsURL  string
	apiURL       string
	cache        tokenCache
}

// NewSpotifyClient creates a new search provider client.
func NewSpotifyClient(cfg *config.SpotifyConfig) *SpotifyClient {
	return &SpotifyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accountsURL:  "https://accounts.spotify.com",
		apiURL:       "https://api.spotify.com",
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid token, requesting a new one only when the
// cached token is missing or expired.
func (c *SpotifyClient) accessToken(ctx context.Context) (string, error) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	if c.cache.token != "" && time.Now().Before(c.cache.expiresAt) {
		return c.cache.token, nil
	}

	form := url.Values{}
	form.Add("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("spotify: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify: token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("spotify: failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify: token request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", fmt.Errorf("spotify: failed to unmarshal token response: %w", err)
	}

	c.cache.token = auth.AccessToken
	// Refresh one minute early so in-flight requests never carry a token
	// that expires mid-call.
	c.cache.expiresAt = time.Now().Add(time.Duration(auth.ExpiresIn)*time.Second - time.Minute)
	return c.cache.token, nil
}

type searchResponse struct {
	Tracks struct {
		Items []apiTrack `json:"items"`
	} `json:"tracks"`
}

type apiTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

type apiAudioFeatures struct {
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

type apiArtist struct {
	Genres []string `json:"genres"`
}

// Search looks up tracks by free-text query and returns basic summaries.
func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]model.ReferenceTrack, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	endpoint := fmt.Sprintf("/v1/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var resp searchResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	tracks := make([]model.ReferenceTrack, 0, len(resp.Tracks.Items))
	for _, item := range resp.Tracks.Items {
		tracks = append(tracks, toReferenceTrack(item))
	}
	return tracks, nil
}

// TrackDetails returns the full summary for one track, including audio
// features and artist genres. Failures on the auxiliary lookups leave the
// corresponding fields empty rather than failing the whole call.
func (c *SpotifyClient) TrackDetails(ctx context.Context, id string) (*model.ReferenceTrack, error) {
	var item apiTrack
	if err := c.get(ctx, "/v1/tracks/"+url.PathEscape(id), &item); err != nil {
		return nil, err
	}
	track := toReferenceTrack(item)

	var features apiAudioFeatures
	if err := c.get(ctx, "/v1/audio-features/"+url.PathEscape(id), &features); err == nil {
		track.Features = &model.AudioFeatures{
			Danceability:     features.Danceability,
			Energy:           features.Energy,
			Valence:          features.Valence,
			Tempo:            features.Tempo,
			Key:              features.Key,
			Mode:             features.Mode,
			TimeSignature:    features.TimeSignature,
			Acousticness:     features.Acousticness,
			Instrumentalness: features.Instrumentalness,
			Speechiness:      features.Speechiness,
		}
	}

	if len(item.Artists) > 0 && item.Artists[0].ID != "" {
		var artist apiArtist
		if err := c.get(ctx, "/v1/artists/"+url.PathEscape(item.Artists[0].ID), &artist); err == nil {
			track.Genres = artist.Genres
		}
	}

	return &track, nil
}

func toReferenceTrack(item apiTrack) model.ReferenceTrack {
	track := model.ReferenceTrack{
		ID:    item.ID,
		Name:  item.Name,
		Album: item.Album.Name,
	}
	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}
	return track
}

func (c *SpotifyClient) get(ctx context.Context, endpoint string, result interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("spotify: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("spotify: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify: API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("spotify: failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid credentials.
func (c *SpotifyClient) IsConfigured() bool {
	return c.clientID != "" && c.clientSecret != ""
}
