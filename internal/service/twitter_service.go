package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/mediaprep"
	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

const twitterMaxImages = 4

type TwitterService struct {
	cfg         config.Config
	apiBaseURL  string
	uploadURL   string
	oauthConfig *oauth1.Config
}

func NewTwitterService(cfg config.Config) *TwitterService {
	return &TwitterService{
		cfg:         cfg,
		apiBaseURL:  "https://api.twitter.com",
		uploadURL:   "https://upload.twitter.com/1.1/media/upload.json",
		oauthConfig: oauth1.NewConfig(cfg.TwitterAPIKey, cfg.TwitterAPISecret),
	}
}

func (s *TwitterService) Network() string {
	return models.NetworkTwitter
}

// signedClient returns an HTTP client that OAuth 1.0a-signs every request
// with the user's token pair.
func (s *TwitterService) signedClient(ctx context.Context, creds Credentials) *http.Client {
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := s.oauthConfig.Client(ctx, token)
	client.Timeout = remoteCallTimeout
	return client
}

// selectTwitterMedia applies the upload policy: any video present means
// exactly that one video; otherwise up to four images.
func selectTwitterMedia(medias []*models.Media) []*models.Media {
	var images []*models.Media
	for _, m := range medias {
		if m.IsVideo() {
			return []*models.Media{m}
		}
		if m.IsImage() {
			images = append(images, m)
		}
	}
	if len(images) > twitterMaxImages {
		images = images[:twitterMaxImages]
	}
	return images
}

func (s *TwitterService) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	client := s.signedClient(ctx, creds)

	selected := selectTwitterMedia(medias)

	mediaIDs := make([]string, 0, len(selected))
	for i, media := range selected {
		mediaID, err := s.uploadMedia(ctx, client, media)
		if err != nil {
			if i > 0 {
				return nil, errs.Wrap(err, errs.CodePartialUpload,
					fmt.Sprintf("uploaded %d of %d media items before failure", i, len(selected)))
			}
			return nil, err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	tweet := transfer.TwitterTweetRequest{Text: variant.CaptionFor(post)}
	if len(mediaIDs) > 0 {
		tweet.Media = &transfer.TwitterTweetMedia{MediaIDs: mediaIDs}
	}

	// Once any media made it up, a failed tweet creation leaves orphaned
	// uploads behind and gets the partial-upload code.
	tweetFailed := func(err error) error {
		if len(mediaIDs) > 0 {
			return errs.Wrap(err, errs.CodePartialUpload,
				fmt.Sprintf("uploaded %d media items but tweet creation failed", len(mediaIDs)))
		}
		return err
	}

	var resp transfer.TwitterTweetResponse
	err := postJSON(ctx, client, s.apiBaseURL+"/2/tweets", nil, tweet, &resp)
	if err != nil {
		return nil, tweetFailed(err)
	}
	if len(resp.Errors) > 0 {
		return nil, tweetFailed(errs.Newf(errs.CodeRemoteRejected, "twitter rejected the tweet: %s", resp.Errors[0].Message))
	}
	if resp.Data.ID == "" {
		return nil, tweetFailed(errs.New(errs.CodeRemoteRejected, "no tweet ID returned from twitter"))
	}

	return &PublishResult{
		ExternalID: resp.Data.ID,
		Permalink:  fmt.Sprintf("https://twitter.com/i/web/status/%s", resp.Data.ID),
	}, nil
}

// uploadMedia downloads the media bytes and pushes them through the v1.1
// simple upload endpoint as base64 form data.
func (s *TwitterService) uploadMedia(ctx context.Context, client *http.Client, media *models.Media) (string, error) {
	data, _, err := mediaprep.Fetch(ctx, mediaprep.ResolveURL(s.cfg.AppURL, media.URL))
	if err != nil {
		return "", fmt.Errorf("could not download media for twitter: %w", err)
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))
	if media.IsVideo() {
		form.Set("media_category", "tweet_video")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", classifyHTTPError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", classifyStatus(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var upload transfer.TwitterMediaUploadResponse
	if err := unmarshalJSON(respBody, &upload); err != nil {
		return "", err
	}
	if upload.MediaIDString == "" {
		return "", errs.New(errs.CodeRemoteRejected, "no media ID returned from twitter")
	}

	return upload.MediaIDString, nil
}

// FetchRemoteMetrics pulls the authenticated user's recent tweets with
// public engagement counts.
func (s *TwitterService) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	client := s.signedClient(ctx, creds)

	var me transfer.TwitterUserResponse
	if err := getJSON(ctx, client, s.apiBaseURL+"/2/users/me", nil, &me); err != nil {
		return nil, err
	}
	if me.Data.ID == "" {
		return nil, errs.New(errs.CodeAuthInvalid, "could not resolve twitter user")
	}

	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?max_results=100&tweet.fields=%s",
		s.apiBaseURL, me.Data.ID, url.QueryEscape("public_metrics,created_at"))

	var resp transfer.TwitterTweetLookupResponse
	if err := getJSON(ctx, client, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	metrics := make([]transfer.RemoteMetric, 0, len(resp.Data))
	for _, tweet := range resp.Data {
		m := transfer.RemoteMetric{
			RemoteID:  tweet.ID,
			Permalink: fmt.Sprintf("https://twitter.com/i/web/status/%s", tweet.ID),
			Likes:     tweet.PublicMetrics.LikeCount,
			Comments:  tweet.PublicMetrics.ReplyCount,
			Shares:    tweet.PublicMetrics.RetweetCount + tweet.PublicMetrics.QuoteCount,
			Views:     tweet.PublicMetrics.ImpressionCount,
		}
		if t, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			m.CreatedAt = t
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}
