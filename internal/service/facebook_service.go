package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/mediaprep"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

type FacebookService struct {
	cfg     config.Config
	baseURL string
	client  *http.Client
}

func NewFacebookService(cfg config.Config) *FacebookService {
	return &FacebookService{
		cfg:     cfg,
		baseURL: cfg.GraphAPIBaseURL,
		client:  newHTTPClient(),
	}
}

func (s *FacebookService) Network() string {
	return models.NetworkFacebook
}

// resolvePage returns the first page the user manages together with its
// page-scoped access token. Multi-page accounts always publish to the first
// page; there is no page selection surface.
func (s *FacebookService) resolvePage(ctx context.Context, accessToken string) (*transfer.GraphPage, error) {
	endpoint := fmt.Sprintf("%s/me/accounts?fields=%s&access_token=%s",
		s.baseURL,
		url.QueryEscape("id,name,access_token"),
		url.QueryEscape(accessToken))

	var accounts transfer.GraphAccountsResponse
	if err := getJSON(ctx, s.client, endpoint, nil, &accounts); err != nil {
		return nil, err
	}

	if len(accounts.Data) == 0 {
		return nil, errs.New(errs.CodeAuthInvalid, "no facebook pages available for this user")
	}

	page := accounts.Data[0]
	if page.AccessToken == "" {
		return nil, errs.New(errs.CodeAuthInvalid, "facebook page has no page access token")
	}

	return &page, nil
}

func (s *FacebookService) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	page, err := s.resolvePage(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	message := variant.CaptionFor(post)

	var images []*models.Media
	for _, m := range medias {
		if m.IsImage() {
			images = append(images, m)
		}
	}

	var postID string
	if len(images) > 0 {
		postID, err = s.publishPhotos(ctx, page, message, images)
	} else {
		postID, err = s.publishFeed(ctx, page, message)
	}
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		ExternalID: postID,
		Permalink:  fmt.Sprintf("https://www.facebook.com/%s", postID),
	}, nil
}

func (s *FacebookService) publishFeed(ctx context.Context, page *transfer.GraphPage, message string) (string, error) {
	var result transfer.GraphID
	err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/feed", s.baseURL, page.ID), nil,
		map[string]string{
			"message":      message,
			"access_token": page.AccessToken,
		},
		&result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errs.New(errs.CodeRemoteRejected, "no post ID returned from facebook")
	}
	return result.ID, nil
}

// publishPhotos uploads each image unpublished, then creates one feed post
// attaching all of them.
func (s *FacebookService) publishPhotos(ctx context.Context, page *transfer.GraphPage, message string, images []*models.Media) (string, error) {
	attachments := make([]string, 0, len(images))

	for _, media := range images {
		var photo transfer.GraphID
		err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/photos", s.baseURL, page.ID), nil,
			map[string]any{
				"url":          mediaprep.ResolveURL(s.cfg.AppURL, media.URL),
				"published":    false,
				"access_token": page.AccessToken,
			},
			&photo)
		if err != nil {
			return "", err
		}
		if photo.ID == "" {
			return "", errs.New(errs.CodeRemoteRejected, "no photo ID returned from facebook")
		}
		attachments = append(attachments, fmt.Sprintf(`{"media_fbid":"%s"}`, photo.ID))
	}

	var result transfer.GraphID
	err := postJSON(ctx, s.client, fmt.Sprintf("%s/%s/feed", s.baseURL, page.ID), nil,
		map[string]string{
			"message":        message,
			"attached_media": "[" + strings.Join(attachments, ",") + "]",
			"access_token":   page.AccessToken,
		},
		&result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errs.New(errs.CodeRemoteRejected, "no post ID returned from facebook")
	}
	return result.ID, nil
}

// FetchRemoteMetrics lists the first page's feed with like, comment and
// share counts.
func (s *FacebookService) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	page, err := s.resolvePage(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/feed?fields=%s&access_token=%s",
		s.baseURL, page.ID,
		url.QueryEscape("id,created_time,shares,likes.summary(true),comments.summary(true)"),
		url.QueryEscape(page.AccessToken))

	var resp transfer.FacebookFeedResponse
	if err := getJSON(ctx, s.client, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	metrics := make([]transfer.RemoteMetric, 0, len(resp.Data))
	for _, item := range resp.Data {
		m := transfer.RemoteMetric{
			RemoteID: item.ID,
			Likes:    item.Likes.Summary.TotalCount,
			Comments: item.Comments.Summary.TotalCount,
			Shares:   item.Shares.Count,
		}
		if t, err := time.Parse("2006-01-02T15:04:05-0700", item.CreatedTime); err == nil {
			m.CreatedAt = t
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}
