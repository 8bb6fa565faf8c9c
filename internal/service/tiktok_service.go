package service

import (
	"context"
	"net/http"
	"time"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/mediaprep"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

type TiktokService struct {
	cfg     config.Config
	baseURL string
	client  *http.Client
}

func NewTiktokService(cfg config.Config) *TiktokService {
	return &TiktokService{
		cfg:     cfg,
		baseURL: cfg.TiktokAPIBaseURL,
		client:  newHTTPClient(),
	}
}

func (s *TiktokService) Network() string {
	return models.NetworkTiktok
}

// Publish initiates a PULL_FROM_URL video post. TikTok processes the video
// asynchronously; the returned publish_id is recorded as the external id and
// the variant counts as published once the upload is accepted.
func (s *TiktokService) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	var video *models.Media
	for _, m := range medias {
		if m.IsImage() {
			return nil, errs.New(errs.CodeUnsupportedContent, "tiktok accepts video only")
		}
		if m.IsVideo() && video == nil {
			video = m
		}
	}
	if video == nil {
		return nil, errs.New(errs.CodeUnsupportedContent, "tiktok requires a video")
	}

	payload := transfer.TiktokVideoInitRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:        variant.CaptionFor(post),
			PrivacyLevel: "SELF_ONLY",
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: mediaprep.ResolveURL(s.cfg.AppURL, video.URL),
		},
	}

	var resp transfer.TiktokPublishResponse
	err := postJSON(ctx, s.client, s.baseURL+"/v2/post/publish/video/init/",
		map[string]string{"Authorization": "Bearer " + creds.AccessToken},
		payload, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return nil, errs.Newf(errs.CodeRemoteRejected, "tiktok rejected the upload: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	if resp.Data.PublishID == "" {
		return nil, errs.New(errs.CodeRemoteRejected, "no publish_id returned from tiktok")
	}

	return &PublishResult{ExternalID: resp.Data.PublishID}, nil
}

// FetchRemoteMetrics lists the account's videos with engagement counts.
func (s *TiktokService) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	endpoint := s.baseURL + "/v2/video/list/?fields=id,title,share_url,create_time,like_count,comment_count,share_count,view_count"

	var resp transfer.TiktokVideoListResponse
	err := postJSON(ctx, s.client, endpoint,
		map[string]string{"Authorization": "Bearer " + creds.AccessToken},
		map[string]int{"max_count": 20},
		&resp)
	if err != nil {
		return nil, err
	}

	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return nil, errs.Newf(errs.CodeRemoteRejected, "tiktok video list failed: %s (%s)", resp.Error.Message, resp.Error.Code)
	}

	metrics := make([]transfer.RemoteMetric, 0, len(resp.Data.Videos))
	for _, v := range resp.Data.Videos {
		metrics = append(metrics, transfer.RemoteMetric{
			RemoteID:  v.ID,
			Permalink: v.ShareURL,
			Likes:     v.LikeCount,
			Comments:  v.CommentCount,
			Shares:    v.ShareCount,
			Views:     v.ViewCount,
			CreatedAt: time.Unix(v.CreateTime, 0).UTC(),
		})
	}

	return metrics, nil
}
