package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

func TestBuildHashtagFacets(t *testing.T) {
	facets := BuildHashtagFacets("check this #golang post #dev_ops")

	require.Len(t, facets, 2)
	assert.Equal(t, 11, facets[0].Index.ByteStart)
	assert.Equal(t, 18, facets[0].Index.ByteEnd)
	assert.Equal(t, "golang", facets[0].Features[0].Tag)
	assert.Equal(t, "dev_ops", facets[1].Features[0].Tag)
}

func TestBuildHashtagFacetsMultibytePrefix(t *testing.T) {
	// 日本語 is 9 bytes, plus the space: the first tag starts at byte 10
	// even though it is the 5th character.
	facets := BuildHashtagFacets("日本語 #tag and #タグ")

	require.Len(t, facets, 2)
	assert.Equal(t, 10, facets[0].Index.ByteStart)
	assert.Equal(t, 14, facets[0].Index.ByteEnd)
	assert.Equal(t, "tag", facets[0].Features[0].Tag)
	assert.Equal(t, 19, facets[1].Index.ByteStart)
	assert.Equal(t, 26, facets[1].Index.ByteEnd)
	assert.Equal(t, "タグ", facets[1].Features[0].Tag)
}

func TestBuildHashtagFacetsNoTags(t *testing.T) {
	assert.Empty(t, BuildHashtagFacets("plain text without tags"))
}

func blueskyTestService(t *testing.T, handler http.Handler) *BlueskyService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &BlueskyService{
		cfg:     config.Config{AppURL: "https://app.example.com"},
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func TestBlueskyRejectsMixedMediaBeforeAnyRemoteCall(t *testing.T) {
	s := blueskyTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call to %s", r.URL.Path)
	}))

	post := &models.Post{Body: "mixed"}
	variant := &models.Variant{Network: models.NetworkBluesky}
	medias := []*models.Media{
		{Type: models.MediaTypeImage, Mime: "image/jpeg", URL: "/m/1.jpg"},
		{Type: models.MediaTypeVideo, Mime: "video/mp4", URL: "/m/2.mp4"},
	}

	_, err := s.Publish(context.Background(), Credentials{}, post, variant, medias)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeUnsupportedContent))
}

func TestBlueskyRejectsMultipleVideos(t *testing.T) {
	s := blueskyTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call to %s", r.URL.Path)
	}))

	medias := []*models.Media{
		{Type: models.MediaTypeVideo, Mime: "video/mp4", URL: "/m/1.mp4"},
		{Type: models.MediaTypeVideo, Mime: "video/mp4", URL: "/m/2.mp4"},
	}

	_, err := s.Publish(context.Background(), Credentials{}, &models.Post{Body: "x"}, &models.Variant{}, medias)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeUnsupportedContent))
}

func TestBlueskyPublishTextPost(t *testing.T) {
	var gotRecord transfer.BlueskyPostRecord

	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transfer.BlueskySession{
			AccessJwt: "jwt-123",
			Did:       "did:plc:abc",
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-123", r.Header.Get("Authorization"))

		var req transfer.BlueskyCreateRecordRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "did:plc:abc", req.Repo)
		assert.Equal(t, "app.bsky.feed.post", req.Collection)
		gotRecord = req.Record

		json.NewEncoder(w).Encode(transfer.BlueskyCreateRecordResponse{
			URI: "at://did:plc:abc/app.bsky.feed.post/3k",
			Cid: "bafy",
		})
	})

	s := blueskyTestService(t, mux)

	post := &models.Post{Body: "hello #bluesky"}
	variant := &models.Variant{Network: models.NetworkBluesky}

	result, err := s.Publish(context.Background(), Credentials{AccountID: "user.bsky.social", AccessSecret: "app-pass"}, post, variant, nil)
	require.NoError(t, err)
	assert.Equal(t, "at://did:plc:abc/app.bsky.feed.post/3k", result.ExternalID)

	assert.Equal(t, "hello #bluesky", gotRecord.Text)
	require.Len(t, gotRecord.Facets, 1)
	assert.Equal(t, "bluesky", gotRecord.Facets[0].Features[0].Tag)
}

func TestBlueskyLoginFailureIsAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`))
	})

	s := blueskyTestService(t, mux)

	_, err := s.Publish(context.Background(), Credentials{AccountID: "user", AccessSecret: "bad"}, &models.Post{Body: "x"}, &models.Variant{}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeAuthInvalid))
}

func TestBlueskyVariantTextOverridesPostBody(t *testing.T) {
	post := &models.Post{Body: "base body"}
	variant := &models.Variant{Text: "override for bluesky"}
	assert.Equal(t, "override for bluesky", variant.CaptionFor(post))

	variant.Text = ""
	assert.Equal(t, "base body", variant.CaptionFor(post))
}
