package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/songsmith/api/internal/config"
)

func newTestSpotifyClient(accounts, api string) *SpotifyClient {
	c := NewSpotifyClient(&config.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	c.accountsURL = accounts
	c.apiURL = api
	return c
}

func newAccountsServer(t *testing.T, tokenRequests *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected accounts path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		atomic.AddInt32(tokenRequests, 1)
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
}

func TestSearch_ParsesResultsAndCachesToken(t *testing.T) {
	var tokenRequests int32
	accounts := newAccountsServer(t, &tokenRequests)
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "daft punk" {
			t.Errorf("unexpected query %q", q)
		}
		w.Write([]byte(`{"tracks":{"items":[
			{"id":"t1","name":"One More Time","artists":[{"id":"a1","name":"Daft Punk"}],"album":{"name":"Discovery"}},
			{"id":"t2","name":"Around the World","artists":[{"id":"a1","name":"Daft Punk"}],"album":{"name":"Homework"}}
		]}}`))
	}))
	defer api.Close()

	c := newTestSpotifyClient(accounts.URL, api.URL)
	ctx := context.Background()

	tracks, err := c.Search(ctx, "daft punk", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "t1" || tracks[0].Name != "One More Time" ||
		tracks[0].Artist != "Daft Punk" || tracks[0].Album != "Discovery" {
		t.Errorf("unexpected first track: %+v", tracks[0])
	}

	// Second call reuses the cached token.
	if _, err := c.Search(ctx, "daft punk", 10); err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if got := atomic.LoadInt32(&tokenRequests); got != 1 {
		t.Errorf("expected 1 token request across calls, got %d", got)
	}
}

func TestTrackDetails_FullData(t *testing.T) {
	var tokenRequests int32
	accounts := newAccountsServer(t, &tokenRequests)
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/tracks/t1":
			w.Write([]byte(`{"id":"t1","name":"One More Time","artists":[{"id":"a1","name":"Daft Punk"}],"album":{"name":"Discovery"}}`))
		case r.URL.Path == "/v1/audio-features/t1":
			w.Write([]byte(`{"danceability":0.78,"energy":0.81,"valence":0.9,"tempo":123.0,"key":2,"mode":1,"time_signature":4}`))
		case r.URL.Path == "/v1/artists/a1":
			w.Write([]byte(`{"genres":["french house","electro"]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	c := newTestSpotifyClient(accounts.URL, api.URL)
	track, err := c.TrackDetails(context.Background(), "t1")
	if err != nil {
		t.Fatalf("details failed: %v", err)
	}

	if track.Features == nil {
		t.Fatal("expected audio features")
	}
	if track.Features.Energy != 0.81 || track.Features.Tempo != 123.0 {
		t.Errorf("unexpected features: %+v", track.Features)
	}
	if len(track.Genres) != 2 || track.Genres[0] != "french house" {
		t.Errorf("unexpected genres: %v", track.Genres)
	}
}

func TestTrackDetails_AuxiliaryFailuresDegrade(t *testing.T) {
	var tokenRequests int32
	accounts := newAccountsServer(t, &tokenRequests)
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/tracks/") {
			w.Write([]byte(`{"id":"t1","name":"One More Time","artists":[{"id":"a1","name":"Daft Punk"}],"album":{"name":"Discovery"}}`))
			return
		}
		// Audio features and artist lookups fail.
		w.WriteHeader(http.StatusForbidden)
	}))
	defer api.Close()

	c := newTestSpotifyClient(accounts.URL, api.URL)
	track, err := c.TrackDetails(context.Background(), "t1")
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if track.Features != nil {
		t.Errorf("expected nil features, got %+v", track.Features)
	}
	if len(track.Genres) != 0 {
		t.Errorf("expected no genres, got %v", track.Genres)
	}
	if track.Name != "One More Time" {
		t.Errorf("core track data missing: %+v", track)
	}
}

func TestTokenFailureSurfacesError(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer accounts.Close()

	c := newTestSpotifyClient(accounts.URL, "http://unused.test")
	if _, err := c.Search(context.Background(), "anything", 10); err == nil {
		t.Error("expected token failure to surface")
	}
}

func TestIsConfigured(t *testing.T) {
	c := NewSpotifyClient(&config.SpotifyConfig{})
	if c.IsConfigured() {
		t.Error("expected unconfigured without credentials")
	}
	c = NewSpotifyClient(&config.SpotifyConfig{ClientID: "a", ClientSecret: "b"})
	if !c.IsConfigured() {
		t.Error("expected configured with credentials")
	}
}
