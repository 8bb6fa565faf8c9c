package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/mediaprep"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

const (
	blueskyPostCollection = "app.bsky.feed.post"
	blueskyMaxImages      = 4
)

// hashtagPattern matches #-prefixed tokens of Unicode letters, numbers and
// underscore, mirroring what Bluesky clients recognize as tags.
var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

type BlueskyService struct {
	cfg     config.Config
	baseURL string
	client  *http.Client
}

func NewBlueskyService(cfg config.Config) *BlueskyService {
	return &BlueskyService{
		cfg:     cfg,
		baseURL: cfg.BlueskyServiceURL,
		client:  newHTTPClient(),
	}
}

func (s *BlueskyService) Network() string {
	return models.NetworkBluesky
}

// BuildHashtagFacets scans text for hashtags and anchors each one at its
// UTF-8 byte offsets. The wire format requires byte positions, not character
// positions, so multi-byte text before a tag shifts the index accordingly.
func BuildHashtagFacets(text string) []transfer.BlueskyFacet {
	var facets []transfer.BlueskyFacet

	for _, loc := range hashtagPattern.FindAllStringIndex(text, -1) {
		byteStart, byteEnd := loc[0], loc[1]
		tag := text[byteStart+1 : byteEnd] // strip leading '#'

		facets = append(facets, transfer.BlueskyFacet{
			Index: transfer.BlueskyFacetIndex{
				ByteStart: byteStart,
				ByteEnd:   byteEnd,
			},
			Features: []transfer.BlueskyFacetFeature{
				{
					Type: "app.bsky.richtext.facet#tag",
					Tag:  tag,
				},
			},
		})
	}

	return facets
}

type blueskyMode string

const (
	blueskyModeText   blueskyMode = "text"
	blueskyModeImages blueskyMode = "images"
	blueskyModeVideo  blueskyMode = "video"
)

// selectBlueskyMode validates the media set against Bluesky's mutually
// exclusive content modes. Runs before any network call.
func selectBlueskyMode(medias []*models.Media) (blueskyMode, []*models.Media, *models.Media, error) {
	var images []*models.Media
	var videos []*models.Media
	for _, m := range medias {
		switch {
		case m.IsVideo():
			videos = append(videos, m)
		case m.IsImage():
			images = append(images, m)
		}
	}

	if len(videos) > 1 {
		return "", nil, nil, errs.New(errs.CodeUnsupportedContent, "bluesky allows only one video per post")
	}
	if len(videos) == 1 && len(images) > 0 {
		return "", nil, nil, errs.New(errs.CodeUnsupportedContent, "bluesky does not allow mixing images and video in one post")
	}

	if len(videos) == 1 {
		return blueskyModeVideo, nil, videos[0], nil
	}
	if len(images) > 0 {
		if len(images) > blueskyMaxImages {
			images = images[:blueskyMaxImages]
		}
		return blueskyModeImages, images, nil, nil
	}
	return blueskyModeText, nil, nil, nil
}

func (s *BlueskyService) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	mode, images, video, err := selectBlueskyMode(medias)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	text := variant.CaptionFor(post)
	record := transfer.BlueskyPostRecord{
		Type:      blueskyPostCollection,
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Facets:    BuildHashtagFacets(text),
	}

	switch mode {
	case blueskyModeImages:
		embed, err := s.uploadImages(ctx, session, post, images)
		if err != nil {
			return nil, err
		}
		record.Embed = embed

	case blueskyModeVideo:
		// No native video upload: publish an external-link embed pointing
		// at the media's existing URL.
		title := post.Title
		if title == "" {
			title = "Video"
		}
		record.Embed = transfer.BlueskyExternalEmbed{
			Type: "app.bsky.embed.external",
			External: transfer.BlueskyExternal{
				URI:   mediaprep.ResolveURL(s.cfg.AppURL, video.URL),
				Title: title,
			},
		}
	}

	var created transfer.BlueskyCreateRecordResponse
	err = postJSON(ctx, s.client, s.baseURL+"/xrpc/com.atproto.repo.createRecord",
		map[string]string{"Authorization": "Bearer " + session.AccessJwt},
		transfer.BlueskyCreateRecordRequest{
			Repo:       session.Did,
			Collection: blueskyPostCollection,
			Record:     record,
		},
		&created)
	if err != nil {
		return nil, err
	}
	if created.URI == "" {
		return nil, errs.New(errs.CodeRemoteRejected, "bluesky returned no record uri")
	}

	slog.Info("bluesky record created", "uri", created.URI)

	return &PublishResult{ExternalID: created.URI}, nil
}

func (s *BlueskyService) createSession(ctx context.Context, creds Credentials) (*transfer.BlueskySession, error) {
	var session transfer.BlueskySession
	err := postJSON(ctx, s.client, s.baseURL+"/xrpc/com.atproto.server.createSession", nil,
		map[string]string{
			"identifier": creds.AccountID,
			"password":   creds.AccessSecret,
		},
		&session)
	if err != nil {
		if errs.GetCode(err) == errs.CodeRemoteRejected {
			return nil, errs.Wrap(err, errs.CodeAuthInvalid, "bluesky login failed")
		}
		return nil, err
	}
	return &session, nil
}

func (s *BlueskyService) uploadImages(ctx context.Context, session *transfer.BlueskySession, post *models.Post, images []*models.Media) (*transfer.BlueskyImagesEmbed, error) {
	alt := post.Title
	if alt == "" {
		alt = "Post image"
	}

	embed := &transfer.BlueskyImagesEmbed{Type: "app.bsky.embed.images"}

	for _, media := range images {
		mediaURL := mediaprep.ResolveURL(s.cfg.AppURL, media.URL)
		data, fetchedMime, err := mediaprep.Fetch(ctx, mediaURL)
		if err != nil {
			return nil, fmt.Errorf("could not download image for bluesky: %w", err)
		}

		mime := media.Mime
		if mime == "" {
			mime = fetchedMime
		}
		if mime == "" {
			mime = "image/jpeg"
		}

		if len(data) > mediaprep.BlueskyMaxImageBytes {
			data, mime, err = mediaprep.Compress(data, mime, mediaprep.BlueskyMaxImageBytes)
			if err != nil {
				return nil, err
			}
		}

		blob, err := s.uploadBlob(ctx, session.AccessJwt, data, mime)
		if err != nil {
			return nil, err
		}

		embed.Images = append(embed.Images, transfer.BlueskyImage{
			Image: blob.Blob,
			Alt:   alt,
		})
	}

	return embed, nil
}

func (s *BlueskyService) uploadBlob(ctx context.Context, accessJwt string, data []byte, mime string) (*transfer.BlueskyBlob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessJwt)
	req.Header.Set("Content-Type", mime)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var blob transfer.BlueskyBlob
	if err := unmarshalJSON(respBody, &blob); err != nil {
		return nil, err
	}
	if len(blob.Blob) == 0 {
		return nil, errs.New(errs.CodeRemoteRejected, "bluesky returned no blob reference")
	}

	return &blob, nil
}

// FetchRemoteMetrics lists the account's own feed with engagement counts
// via app.bsky.feed.getAuthorFeed.
func (s *BlueskyService) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	session, err := s.createSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	var resp transfer.BlueskyAuthorFeedResponse
	err = getJSON(ctx, s.client,
		s.baseURL+"/xrpc/app.bsky.feed.getAuthorFeed?actor="+url.QueryEscape(session.Did)+"&limit=100",
		map[string]string{"Authorization": "Bearer " + session.AccessJwt},
		&resp)
	if err != nil {
		return nil, err
	}

	metrics := make([]transfer.RemoteMetric, 0, len(resp.Feed))
	for _, entry := range resp.Feed {
		p := entry.Post
		m := transfer.RemoteMetric{
			RemoteID: p.URI,
			Likes:    p.LikeCount,
			Comments: p.ReplyCount,
			Shares:   p.RepostCount + p.QuoteCount,
		}
		if t, err := time.Parse(time.RFC3339, p.Record.CreatedAt); err == nil {
			m.CreatedAt = t
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}
