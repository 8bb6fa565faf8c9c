package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/repository"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

// instagramShortcodePattern pulls the shortcode out of a permalink like
// https://www.instagram.com/p/Cxyz123/ or /reel/... or /tv/...
var instagramShortcodePattern = regexp.MustCompile(`/(?:p|reel|tv)/([a-zA-Z0-9_-]+)`)

type MetricsService interface {
	Refresh(ctx context.Context, actingUserID, targetUserID int64) (int, error)
	List(ctx context.Context, userID int64) ([]*models.Metric, error)
}

type metricsService struct {
	u        repository.UserRepository
	v        repository.VariantRepository
	mt       repository.MetricRepository
	creds    CredentialResolver
	fetchers map[string]MetricsFetcher
	now      func() time.Time
}

func NewMetricsService(
	u repository.UserRepository,
	v repository.VariantRepository,
	mt repository.MetricRepository,
	creds CredentialResolver,
	fetchers ...MetricsFetcher) MetricsService {
	m := make(map[string]MetricsFetcher, len(fetchers))
	for _, f := range fetchers {
		m[f.Network()] = f
	}
	return &metricsService{
		u:        u,
		v:        v,
		mt:       mt,
		creds:    creds,
		fetchers: m,
		now:      time.Now,
	}
}

func (s *metricsService) List(ctx context.Context, userID int64) ([]*models.Metric, error) {
	return s.mt.ListByAuthorID(ctx, userID)
}

// canActOn decides whether acting may refresh target's metrics: global role
// at admin level, self, or a Manager in the target's organization.
func (s *metricsService) canActOn(ctx context.Context, actingUserID, targetUserID int64) (bool, error) {
	if actingUserID == targetUserID {
		return true, nil
	}

	acting, err := s.u.GetByID(ctx, actingUserID)
	if err != nil {
		return false, err
	}
	if acting == nil {
		return false, nil
	}
	if acting.RoleID >= models.RoleAdminThreshold {
		return true, nil
	}

	target, err := s.u.GetByID(ctx, targetUserID)
	if err != nil {
		return false, err
	}
	if target == nil || !target.OrganizationID.Valid {
		return false, nil
	}

	membership, err := s.u.GetMembership(ctx, actingUserID, target.OrganizationID.Int64)
	if err != nil {
		return false, err
	}
	return membership != nil && membership.Role == models.MembershipRoleManager, nil
}

// Refresh pulls remote engagement for every network the target has published
// variants on, matches remote items back to variants, and overwrites each
// variant's metric row. It returns the number of variants whose metric row
// was written. Unmatched variants are left untouched; re-running with
// unchanged remote data changes nothing.
func (s *metricsService) Refresh(ctx context.Context, actingUserID, targetUserID int64) (int, error) {
	allowed, err := s.canActOn(ctx, actingUserID, targetUserID)
	if err != nil {
		return 0, err
	}
	if !allowed {
		return 0, errs.New(errs.CodeValidation, "not allowed to refresh metrics for this user")
	}

	variants, err := s.v.ListWithReferenceByAuthor(ctx, targetUserID)
	if err != nil {
		return 0, err
	}
	if len(variants) == 0 {
		return 0, nil
	}

	byNetwork := make(map[string][]*models.Variant)
	for _, v := range variants {
		byNetwork[v.Network] = append(byNetwork[v.Network], v)
	}

	// Fetch each network concurrently; matching and persistence run
	// sequentially once the remote data is in.
	type fetchResult struct {
		network string
		metrics []transfer.RemoteMetric
	}

	var wg sync.WaitGroup
	results := make(chan fetchResult, len(byNetwork))

	for network := range byNetwork {
		fetcher, ok := s.fetchers[network]
		if !ok {
			slog.Info("no metrics fetcher for network", "network", network)
			continue
		}

		wg.Add(1)
		go func(network string, fetcher MetricsFetcher) {
			defer wg.Done()

			creds, err := s.creds.Resolve(ctx, targetUserID, network)
			if err != nil {
				slog.Info("could not resolve credentials for metrics", "network", network, "error", err.Error())
				return
			}

			remote, err := fetcher.FetchRemoteMetrics(ctx, creds)
			if err != nil {
				slog.Info("metrics fetch failed", "network", network, "error", err.Error())
				return
			}
			results <- fetchResult{network: network, metrics: remote}
		}(network, fetcher)
	}

	wg.Wait()
	close(results)

	processed := 0
	for result := range results {
		processed += s.reconcileNetwork(ctx, result.network, byNetwork[result.network], result.metrics)
	}

	return processed, nil
}

// reconcileNetwork returns how many variants got their metric row written.
func (s *metricsService) reconcileNetwork(ctx context.Context, network string, variants []*models.Variant, remote []transfer.RemoteMetric) int {
	processed := 0
	for _, variant := range variants {
		match, ok := matchRemoteMetric(network, variant, remote)
		if !ok {
			continue
		}

		if err := s.upsertMetric(ctx, variant, match); err != nil {
			slog.Info("could not save metric", "variant_id", variant.ID, "error", err.Error())
			continue
		}
		processed++

		if !match.CreatedAt.IsZero() {
			if err := s.v.SetDateSent(ctx, variant.ID, match.CreatedAt); err != nil {
				slog.Info("could not restamp send instant", "variant_id", variant.ID, "error", err.Error())
			}
		}
	}
	return processed
}

// matchRemoteMetric finds the remote item belonging to a variant. Exact
// identifier equality wins everywhere; Instagram and Facebook get
// network-specific secondary keys because stored identifiers and remote
// listings drift in shape.
func matchRemoteMetric(network string, variant *models.Variant, remote []transfer.RemoteMetric) (transfer.RemoteMetric, bool) {
	uri := variant.URI.String
	if uri != "" {
		for _, r := range remote {
			if r.RemoteID == uri {
				return r, true
			}
		}
	}

	switch network {
	case models.NetworkInstagram:
		// The variant may store only a permalink while the listing keys
		// on media id, or vice versa. The shortcode embedded in either
		// permalink is the stable join key.
		code := instagramShortcode(variant.Permalink.String)
		if code == "" {
			code = instagramShortcode(uri)
		}
		if code == "" {
			return transfer.RemoteMetric{}, false
		}
		for _, r := range remote {
			if instagramShortcode(r.Permalink) == code {
				return r, true
			}
		}

	case models.NetworkFacebook:
		if uri == "" {
			return transfer.RemoteMetric{}, false
		}
		// Feed items use the composite {pageID}_{postID} form; stored
		// identifiers sometimes carry only the post half.
		for _, r := range remote {
			if _, postHalf, found := strings.Cut(r.RemoteID, "_"); found && postHalf == uri {
				return r, true
			}
		}
		for _, r := range remote {
			if strings.Contains(r.RemoteID, uri) || strings.Contains(uri, r.RemoteID) {
				return r, true
			}
		}
	}

	return transfer.RemoteMetric{}, false
}

func instagramShortcode(permalink string) string {
	m := instagramShortcodePattern.FindStringSubmatch(permalink)
	if m == nil {
		return ""
	}
	return m[1]
}

// upsertMetric overwrites the variant's single metric row, creating it on
// first refresh.
func (s *metricsService) upsertMetric(ctx context.Context, variant *models.Variant, remote transfer.RemoteMetric) error {
	existing, err := s.mt.GetByVariantID(ctx, variant.ID)
	if err != nil {
		return err
	}

	metric := &models.Metric{
		VariantID:   variant.ID,
		PostID:      variant.PostID,
		Network:     variant.Network,
		Likes:       remote.Likes,
		Comments:    remote.Comments,
		Shares:      remote.Shares,
		Impressions: remote.Views,
		CollectedAt: s.now().UTC(),
	}

	if existing == nil {
		_, err = s.mt.Create(ctx, metric)
		return err
	}

	metric.ID = existing.ID
	return s.mt.Update(ctx, metric)
}
