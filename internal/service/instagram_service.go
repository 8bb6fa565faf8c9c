package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/mediaprep"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

const (
	instagramMaxCarouselItems = 10
	instagramPublishAttempts  = 5
	instagramPublishDelay     = 3 * time.Second

	// Graph returns this while a freshly created container is still being
	// processed server-side. It is the only error worth retrying.
	instagramMediaNotReady = "Media ID is not available"
)

type InstagramService struct {
	cfg        config.Config
	baseURL    string
	client     *http.Client
	retryDelay time.Duration
}

func NewInstagramService(cfg config.Config) *InstagramService {
	return &InstagramService{
		cfg:        cfg,
		baseURL:    cfg.GraphAPIBaseURL,
		client:     newHTTPClient(),
		retryDelay: instagramPublishDelay,
	}
}

func (s *InstagramService) Network() string {
	return models.NetworkInstagram
}

// resolveBusinessAccount walks the user's pages and returns the first one
// linked to an Instagram business account.
func (s *InstagramService) resolveBusinessAccount(ctx context.Context, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/me/accounts?fields=%s&access_token=%s",
		s.baseURL,
		url.QueryEscape("id,name,access_token,instagram_business_account{id,username}"),
		url.QueryEscape(accessToken))

	var accounts transfer.GraphAccountsResponse
	if err := getJSON(ctx, s.client, endpoint, nil, &accounts); err != nil {
		return "", err
	}

	for _, page := range accounts.Data {
		if page.InstagramBusinessAccount != nil && page.InstagramBusinessAccount.ID != "" {
			return page.InstagramBusinessAccount.ID, nil
		}
	}

	return "", errs.New(errs.CodeAuthInvalid, "no instagram business account linked to this user")
}

func (s *InstagramService) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	if len(medias) == 0 {
		return nil, errs.New(errs.CodeUnsupportedContent, "instagram requires at least one media item")
	}

	igUserID, err := s.resolveBusinessAccount(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	if len(medias) > instagramMaxCarouselItems {
		slog.Info("truncating instagram carousel", "have", len(medias), "max", instagramMaxCarouselItems)
		medias = medias[:instagramMaxCarouselItems]
	}

	caption := variant.CaptionFor(post)

	var containerID string
	if len(medias) == 1 {
		containerID, err = s.createContainer(ctx, igUserID, creds.AccessToken, medias[0], caption, false)
	} else {
		containerID, err = s.createCarousel(ctx, igUserID, creds.AccessToken, medias, caption)
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := s.publishContainer(ctx, igUserID, containerID, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{ExternalID: mediaID}

	// Permalink is best effort: the post is already live at this point.
	if permalink, err := s.fetchPermalink(ctx, mediaID, creds.AccessToken); err == nil {
		result.Permalink = permalink
	} else {
		slog.Info("could not fetch instagram permalink", "media_id", mediaID, "error", err.Error())
	}

	return result, nil
}

func (s *InstagramService) createContainer(ctx context.Context, igUserID, accessToken string, media *models.Media, caption string, carouselItem bool) (string, error) {
	payload := map[string]any{
		"access_token": accessToken,
	}

	mediaURL := mediaprep.ResolveURL(s.cfg.AppURL, media.URL)
	switch {
	case media.IsVideo():
		payload["media_type"] = "REELS"
		payload["video_url"] = mediaURL
	case media.IsImage():
		payload["image_url"] = mediaURL
	default:
		return "", errs.Newf(errs.CodeUnsupportedContent, "instagram does not accept media type %s", media.Mime)
	}

	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}

	var result transfer.GraphID
	err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/media", s.baseURL, igUserID), nil, payload, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errs.New(errs.CodeRemoteRejected, "no container ID returned from instagram")
	}

	return result.ID, nil
}

func (s *InstagramService) createCarousel(ctx context.Context, igUserID, accessToken string, medias []*models.Media, caption string) (string, error) {
	childIDs := make([]string, 0, len(medias))
	for _, media := range medias {
		childID, err := s.createContainer(ctx, igUserID, accessToken, media, "", true)
		if err != nil {
			return "", err
		}
		childIDs = append(childIDs, childID)
	}

	payload := map[string]any{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     strings.Join(childIDs, ","),
		"access_token": accessToken,
	}

	var result transfer.GraphID
	err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/media", s.baseURL, igUserID), nil, payload, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errs.New(errs.CodeRemoteRejected, "no carousel ID returned from instagram")
	}

	return result.ID, nil
}

// publishContainer turns a finished container into a live post. Containers
// holding video are often still processing when this is first called, so the
// not-ready error is retried on a fixed delay.
func (s *InstagramService) publishContainer(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	var result transfer.GraphID

	operation := func() error {
		result = transfer.GraphID{}
		err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/media_publish", s.baseURL, igUserID), nil,
			map[string]string{
				"creation_id":  containerID,
				"access_token": accessToken,
			},
			&result)
		if err != nil {
			if strings.Contains(err.Error(), instagramMediaNotReady) {
				return err
			}
			return backoff.Permanent(err)
		}
		if result.ID == "" {
			return backoff.Permanent(errs.New(errs.CodeRemoteRejected, "no media ID returned from instagram"))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), instagramPublishAttempts-1),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	return result.ID, nil
}

func (s *InstagramService) fetchPermalink(ctx context.Context, mediaID, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s",
		s.baseURL, mediaID, url.QueryEscape(accessToken))

	var resp transfer.GraphPermalinkResponse
	if err := getJSON(ctx, s.client, endpoint, nil, &resp); err != nil {
		return "", err
	}
	if resp.Permalink == "" {
		return "", errs.New(errs.CodeRemoteRejected, "instagram returned an empty permalink")
	}
	return resp.Permalink, nil
}

// FetchRemoteMetrics lists the business account's recent media with
// engagement counts.
func (s *InstagramService) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	igUserID, err := s.resolveBusinessAccount(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/media?fields=%s&access_token=%s",
		s.baseURL, igUserID,
		url.QueryEscape("id,caption,permalink,timestamp,like_count,comments_count,media_type"),
		url.QueryEscape(creds.AccessToken))

	var resp transfer.InstagramMediaListResponse
	if err := getJSON(ctx, s.client, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	metrics := make([]transfer.RemoteMetric, 0, len(resp.Data))
	for _, item := range resp.Data {
		m := transfer.RemoteMetric{
			RemoteID:  item.ID,
			Permalink: item.Permalink,
			Likes:     item.LikeCount,
			Comments:  item.CommentsCount,
		}
		if t, err := time.Parse("2006-01-02T15:04:05-0700", item.Timestamp); err == nil {
			m.CreatedAt = t
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}
