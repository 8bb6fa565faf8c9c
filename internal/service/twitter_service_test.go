package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dghubble/oauth1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

func TestSelectTwitterMediaVideoWins(t *testing.T) {
	medias := []*models.Media{
		{Type: models.MediaTypeImage, Mime: "image/jpeg"},
		{Type: models.MediaTypeVideo, Mime: "video/mp4"},
		{Type: models.MediaTypeImage, Mime: "image/png"},
	}

	selected := selectTwitterMedia(medias)
	require.Len(t, selected, 1)
	assert.True(t, selected[0].IsVideo())
}

func TestSelectTwitterMediaCapsImagesAtFour(t *testing.T) {
	var medias []*models.Media
	for i := 0; i < 6; i++ {
		medias = append(medias, &models.Media{Type: models.MediaTypeImage, Mime: "image/jpeg"})
	}

	selected := selectTwitterMedia(medias)
	assert.Len(t, selected, 4)
}

func TestSelectTwitterMediaEmpty(t *testing.T) {
	assert.Empty(t, selectTwitterMedia(nil))
}

func twitterTestService(t *testing.T, handler http.Handler) (*TwitterService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &TwitterService{
		cfg:         config.Config{AppURL: "https://app.example.com"},
		apiBaseURL:  srv.URL,
		uploadURL:   srv.URL + "/1.1/media/upload.json",
		oauthConfig: oauth1.NewConfig("consumer-key", "consumer-secret"),
	}, srv
}

func TestTwitterPublishUploadsThenTweets(t *testing.T) {
	uploads := 0
	var gotTweet transfer.TwitterTweetRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.FormValue("media_data"))
		uploads++
		fmt.Fprintf(w, `{"media_id_string":"media-%d"}`, uploads)
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotTweet))
		w.Write([]byte(`{"data":{"id":"tweet-1","text":"hello"}}`))
	})

	s, srv := twitterTestService(t, mux)

	medias := []*models.Media{
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: srv.URL + "/media/a.jpg"},
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: srv.URL + "/media/b.jpg"},
	}

	result, err := s.Publish(context.Background(), Credentials{AccessToken: "tok", AccessSecret: "sec"},
		&models.Post{Body: "hello"}, &models.Variant{}, medias)
	require.NoError(t, err)

	assert.Equal(t, "tweet-1", result.ExternalID)
	assert.Equal(t, 2, uploads)
	assert.Equal(t, "hello", gotTweet.Text)
	require.NotNil(t, gotTweet.Media)
	assert.Equal(t, []string{"media-1", "media-2"}, gotTweet.Media.MediaIDs)
}

func TestTwitterPublishPartialUploadWhenTweetCreationFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"media_id_string":"media-1"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	})

	s, srv := twitterTestService(t, mux)

	medias := []*models.Media{
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: srv.URL + "/media/a.jpg"},
	}

	_, err := s.Publish(context.Background(), Credentials{AccessToken: "tok", AccessSecret: "sec"},
		&models.Post{Body: "hello"}, &models.Variant{}, medias)
	require.Error(t, err)
	assert.Equal(t, errs.CodePartialUpload, errs.GetCode(err))
}

func TestTwitterPublishPartialUploadWhenSecondUploadFails(t *testing.T) {
	uploads := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		uploads++
		if uploads > 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"message":"media type unrecognized"}]}`))
			return
		}
		w.Write([]byte(`{"media_id_string":"media-1"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("tweet created despite failed upload")
	})

	s, srv := twitterTestService(t, mux)

	medias := []*models.Media{
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: srv.URL + "/media/a.jpg"},
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: srv.URL + "/media/b.jpg"},
	}

	_, err := s.Publish(context.Background(), Credentials{AccessToken: "tok", AccessSecret: "sec"},
		&models.Post{Body: "hello"}, &models.Variant{}, medias)
	require.Error(t, err)
	assert.Equal(t, errs.CodePartialUpload, errs.GetCode(err))
}

func TestTwitterPublishTextOnly(t *testing.T) {
	var gotTweet transfer.TwitterTweetRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotTweet))
		w.Write([]byte(`{"data":{"id":"tweet-2","text":"just words"}}`))
	})

	s, _ := twitterTestService(t, mux)

	result, err := s.Publish(context.Background(), Credentials{AccessToken: "tok", AccessSecret: "sec"},
		&models.Post{Body: "just words"}, &models.Variant{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tweet-2", result.ExternalID)
	assert.Nil(t, gotTweet.Media)
}
