package lrclib

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get_Success(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"artist_name": q.Get("artist_name"),
			"track_name":  q.Get("track_name"),
			"album_name":  q.Get("album_name"),
			"duration":    q.Get("duration"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 12,
			"trackName": "Song",
			"artistName": "Band",
			"albumName": "Album",
			"duration": 215.0,
			"instrumental": false,
			"plainLyrics": "words",
			"syncedLyrics": "[00:01.00]words"
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Get(context.Background(), "Band", "Song", "Album", 215*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "Band", gotQuery["artist_name"])
	assert.Equal(t, "Song", gotQuery["track_name"])
	assert.Equal(t, "Album", gotQuery["album_name"])
	assert.Equal(t, "215", gotQuery["duration"], "duration should be integer seconds")

	assert.True(t, result.HasSyncedLyrics())
	assert.True(t, result.HasPlainLyrics())
	assert.Equal(t, "Song", result.TrackName)
	assert.Equal(t, "Band", result.ArtistName)
}

func TestClient_Get_OmitsOptionalParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("album_name"), "album_name should be omitted when empty")
		assert.False(t, q.Has("duration"), "duration should be omitted when zero")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Get(context.Background(), "Band", "Song", "", 0)
	require.NoError(t, err)
}

func TestClient_Get_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Get(context.Background(), "Band", "Song", "", 0)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Get_ServerErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Get(context.Background(), "Band", "Song", "", 0)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestClient_Get_Cancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL)
	_, err := c.Get(ctx, "Band", "Song", "", 0)
	assert.Error(t, err)
}
