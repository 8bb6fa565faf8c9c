package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

func TestInstagramShortcodeExtraction(t *testing.T) {
	tests := []struct {
		permalink string
		want      string
	}{
		{"https://www.instagram.com/p/Cxyz123/", "Cxyz123"},
		{"https://www.instagram.com/reel/Ab-cd_9/", "Ab-cd_9"},
		{"https://www.instagram.com/tv/XYZ/", "XYZ"},
		{"https://www.instagram.com/someuser/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, instagramShortcode(tt.permalink), tt.permalink)
	}
}

func TestMatchRemoteMetricExactIdentifier(t *testing.T) {
	variant := &models.Variant{
		Network: models.NetworkTwitter,
		URI:     sql.NullString{String: "12345", Valid: true},
	}
	remote := []transfer.RemoteMetric{
		{RemoteID: "99999", Likes: 1},
		{RemoteID: "12345", Likes: 42},
	}

	match, ok := matchRemoteMetric(models.NetworkTwitter, variant, remote)
	require.True(t, ok)
	assert.EqualValues(t, 42, match.Likes)
}

func TestMatchRemoteMetricInstagramShortcode(t *testing.T) {
	// Stored permalink and listed permalink differ in host and trailing
	// path; the shortcode joins them.
	variant := &models.Variant{
		Network:   models.NetworkInstagram,
		URI:       sql.NullString{String: "17900001", Valid: true},
		Permalink: sql.NullString{String: "https://instagram.com/p/Cxyz123", Valid: true},
	}
	remote := []transfer.RemoteMetric{
		{RemoteID: "17912345", Permalink: "https://www.instagram.com/p/Other1/", Likes: 5},
		{RemoteID: "17954321", Permalink: "https://www.instagram.com/p/Cxyz123/?hl=en", Likes: 77},
	}

	match, ok := matchRemoteMetric(models.NetworkInstagram, variant, remote)
	require.True(t, ok)
	assert.EqualValues(t, 77, match.Likes)
}

func TestMatchRemoteMetricInstagramPermalinkOnly(t *testing.T) {
	// An older variant may carry only the permalink, never the media id.
	// The shortcode key still has to find it.
	variant := &models.Variant{
		Network:   models.NetworkInstagram,
		Permalink: sql.NullString{String: "https://instagram.com/p/ABC123/", Valid: true},
	}
	remote := []transfer.RemoteMetric{
		{RemoteID: "17912345", Permalink: "https://www.instagram.com/p/Other1/", Likes: 5},
		{RemoteID: "17954321", Permalink: "https://www.instagram.com/p/ABC123/", Likes: 31},
	}

	match, ok := matchRemoteMetric(models.NetworkInstagram, variant, remote)
	require.True(t, ok)
	assert.EqualValues(t, 31, match.Likes)
}

func TestMatchRemoteMetricFacebookUnderscoreSplit(t *testing.T) {
	variant := &models.Variant{
		Network: models.NetworkFacebook,
		URI:     sql.NullString{String: "456", Valid: true},
	}
	remote := []transfer.RemoteMetric{
		{RemoteID: "123_789", Likes: 1},
		{RemoteID: "123_456", Likes: 9},
	}

	match, ok := matchRemoteMetric(models.NetworkFacebook, variant, remote)
	require.True(t, ok)
	assert.EqualValues(t, 9, match.Likes)
}

func TestMatchRemoteMetricNoMatch(t *testing.T) {
	variant := &models.Variant{
		Network: models.NetworkBluesky,
		URI:     sql.NullString{String: "at://did/post/1", Valid: true},
	}
	remote := []transfer.RemoteMetric{{RemoteID: "at://did/post/2"}}

	_, ok := matchRemoteMetric(models.NetworkBluesky, variant, remote)
	assert.False(t, ok)
}

func metricsFixture(t *testing.T, users *fakeUserRepo, variants *fakeVariantRepo, metricRepo *fakeMetricRepo, adapters ...*fakeAdapter) MetricsService {
	t.Helper()

	fetchers := make([]MetricsFetcher, len(adapters))
	for i, a := range adapters {
		fetchers[i] = a
	}

	return NewMetricsService(
		users,
		variants,
		metricRepo,
		&fakeCredentialResolver{creds: map[string]Credentials{}},
		fetchers...,
	)
}

func TestRefreshUpsertsAndRestampsSendDate(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	variants := newFakeVariantRepo(&models.Variant{
		ID:      1,
		PostID:  1,
		Network: models.NetworkBluesky,
		URI:     sql.NullString{String: "at://did/post/1", Valid: true},
	})
	metricRepo := newFakeMetricRepo()

	createdAt := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		network: models.NetworkBluesky,
		remote: []transfer.RemoteMetric{
			{RemoteID: "at://did/post/1", Likes: 12, Comments: 3, Shares: 2, CreatedAt: createdAt},
		},
	}

	svc := metricsFixture(t, users, variants, metricRepo, adapter)

	processed, err := svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	metric, _ := metricRepo.GetByVariantID(context.Background(), 1)
	require.NotNil(t, metric)
	assert.EqualValues(t, 12, metric.Likes)
	assert.EqualValues(t, 3, metric.Comments)

	variant, _ := variants.GetByID(context.Background(), 1)
	require.True(t, variant.DateSent.Valid)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), variant.DateSent.Time)
}

func TestRefreshIsIdempotent(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	variants := newFakeVariantRepo(&models.Variant{
		ID:      1,
		PostID:  1,
		Network: models.NetworkTwitter,
		URI:     sql.NullString{String: "555", Valid: true},
	})
	metricRepo := newFakeMetricRepo()

	adapter := &fakeAdapter{
		network: models.NetworkTwitter,
		remote:  []transfer.RemoteMetric{{RemoteID: "555", Likes: 10}},
	}

	svc := metricsFixture(t, users, variants, metricRepo, adapter)

	processed, err := svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	processed, err = svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// One row, created once then overwritten in place.
	assert.Equal(t, 1, metricRepo.creates)
	assert.Equal(t, 1, metricRepo.updates)
	metric, _ := metricRepo.GetByVariantID(context.Background(), 1)
	assert.EqualValues(t, 10, metric.Likes)
}

func TestRefreshLeavesUnmatchedVariantsUntouched(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	variants := newFakeVariantRepo(&models.Variant{
		ID:      1,
		PostID:  1,
		Network: models.NetworkTwitter,
		URI:     sql.NullString{String: "555", Valid: true},
	})
	metricRepo := newFakeMetricRepo()

	adapter := &fakeAdapter{
		network: models.NetworkTwitter,
		remote:  []transfer.RemoteMetric{{RemoteID: "does-not-match", Likes: 10}},
	}

	svc := metricsFixture(t, users, variants, metricRepo, adapter)

	processed, err := svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	metric, _ := metricRepo.GetByVariantID(context.Background(), 1)
	assert.Nil(t, metric)
	assert.Equal(t, 0, metricRepo.creates)
}

func TestRefreshMatchesPermalinkOnlyInstagramVariant(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	variants := newFakeVariantRepo(&models.Variant{
		ID:        1,
		PostID:    1,
		Network:   models.NetworkInstagram,
		Permalink: sql.NullString{String: "https://instagram.com/p/ABC123/", Valid: true},
	})
	metricRepo := newFakeMetricRepo()

	adapter := &fakeAdapter{
		network: models.NetworkInstagram,
		remote: []transfer.RemoteMetric{
			{RemoteID: "17954321", Permalink: "https://www.instagram.com/p/ABC123/", Likes: 31},
		},
	}

	svc := metricsFixture(t, users, variants, metricRepo, adapter)

	processed, err := svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	metric, _ := metricRepo.GetByVariantID(context.Background(), 1)
	require.NotNil(t, metric)
	assert.EqualValues(t, 31, metric.Likes)
}

func TestRefreshFetcherFailureSkipsNetworkOnly(t *testing.T) {
	users := &fakeUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	variants := newFakeVariantRepo(
		&models.Variant{ID: 1, PostID: 1, Network: models.NetworkTwitter, URI: sql.NullString{String: "555", Valid: true}},
		&models.Variant{ID: 2, PostID: 1, Network: models.NetworkBluesky, URI: sql.NullString{String: "at://p/1", Valid: true}},
	)
	metricRepo := newFakeMetricRepo()

	broken := &fakeAdapter{
		network:   models.NetworkTwitter,
		remoteErr: errs.New(errs.CodeRateLimited, "rate limited"),
	}
	working := &fakeAdapter{
		network: models.NetworkBluesky,
		remote:  []transfer.RemoteMetric{{RemoteID: "at://p/1", Likes: 4}},
	}

	svc := metricsFixture(t, users, variants, metricRepo, broken, working)

	processed, err := svc.Refresh(context.Background(), 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	blueskyMetric, _ := metricRepo.GetByVariantID(context.Background(), 2)
	require.NotNil(t, blueskyMetric)
	assert.EqualValues(t, 4, blueskyMetric.Likes)

	twitterMetric, _ := metricRepo.GetByVariantID(context.Background(), 1)
	assert.Nil(t, twitterMetric)
}

func TestRefreshPermissions(t *testing.T) {
	org := sql.NullInt64{Int64: 10, Valid: true}
	users := &fakeUserRepo{
		users: map[int64]*models.User{
			1: {ID: 1, RoleID: 5},                       // global admin
			2: {ID: 2, RoleID: 1, OrganizationID: org},  // manager in org 10
			3: {ID: 3, RoleID: 1, OrganizationID: org},  // plain member, target
			4: {ID: 4, RoleID: 1},                       // outsider
		},
		memberships: map[int64]*models.Membership{
			2: {UserID: 2, OrganizationID: 10, Role: models.MembershipRoleManager},
			3: {UserID: 3, OrganizationID: 10, Role: models.MembershipRoleMember},
		},
	}
	variants := newFakeVariantRepo()
	svc := metricsFixture(t, users, variants, newFakeMetricRepo())

	refresh := func(acting, target int64) error {
		_, err := svc.Refresh(context.Background(), acting, target)
		return err
	}

	// Self always allowed.
	assert.NoError(t, refresh(3, 3))
	// Global role at or above the admin threshold.
	assert.NoError(t, refresh(1, 3))
	// Manager in the target's organization.
	assert.NoError(t, refresh(2, 3))
	// Plain member acting on a peer is rejected.
	assert.Error(t, refresh(3, 2))
	// Outsider is rejected.
	assert.Error(t, refresh(4, 3))
}
