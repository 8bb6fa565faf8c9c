package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

// In-memory repository doubles shared by the orchestrator and metrics tests.

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[int64]*models.Post
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	m := make(map[int64]*models.Post)
	for _, p := range posts {
		m[p.ID] = p
	}
	return &fakePostRepo{posts: m}
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id], nil
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = int64(len(r.posts) + 1)
	r.posts[post.ID] = post
	return post.ID, nil
}

func (r *fakePostRepo) GetByAuthorID(ctx context.Context, authorID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakePostRepo) CheckByAuthorID(ctx context.Context, postID, authorID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.AuthorID == authorID, nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type fakeVariantRepo struct {
	mu       sync.Mutex
	variants map[int64]*models.Variant
}

func newFakeVariantRepo(variants ...*models.Variant) *fakeVariantRepo {
	m := make(map[int64]*models.Variant)
	for _, v := range variants {
		m[v.ID] = v
	}
	return &fakeVariantRepo{variants: m}
}

func (r *fakeVariantRepo) GetByID(ctx context.Context, id int64) (*models.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.variants[id], nil
}

func (r *fakeVariantRepo) Create(ctx context.Context, tx *sql.Tx, variant *models.Variant) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	variant.ID = int64(len(r.variants) + 1)
	r.variants[variant.ID] = variant
	return variant.ID, nil
}

func (r *fakeVariantRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Variant
	for _, v := range r.variants {
		if v.PostID == postID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVariantRepo) ListWithReferenceByAuthor(ctx context.Context, authorID int64) ([]*models.Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Variant
	for _, v := range r.variants {
		if (v.URI.Valid && v.URI.String != "") || (v.Permalink.Valid && v.Permalink.String != "") {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeVariantRepo) MarkPublished(ctx context.Context, id int64, uri, permalink string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return errs.New(errs.CodeValidation, "variant not found")
	}
	v.Status = models.PostStatusPublished
	v.URI = sql.NullString{String: uri, Valid: true}
	if permalink != "" {
		v.Permalink = sql.NullString{String: permalink, Valid: true}
	}
	date, clock := models.SplitInstant(sentAt)
	v.DateSent = sql.NullTime{Time: date, Valid: true}
	v.TimeSent = sql.NullTime{Time: clock, Valid: true}
	return nil
}

func (r *fakeVariantRepo) SetDateSent(ctx context.Context, id int64, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return errs.New(errs.CodeValidation, "variant not found")
	}
	date, clock := models.SplitInstant(sentAt)
	v.DateSent = sql.NullTime{Time: date, Valid: true}
	v.TimeSent = sql.NullTime{Time: clock, Valid: true}
	return nil
}

func (r *fakeVariantRepo) CountUnpublished(ctx context.Context, postID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.variants {
		if v.PostID == postID && (!v.URI.Valid || v.URI.String == "") {
			n++
		}
	}
	return n, nil
}

type fakeMediaRepo struct {
	medias map[int64][]*models.Media
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{medias: make(map[int64][]*models.Media)}
}

func (r *fakeMediaRepo) Create(ctx context.Context, tx *sql.Tx, media *models.Media) (int64, error) {
	r.medias[media.PostID] = append(r.medias[media.PostID], media)
	return int64(len(r.medias[media.PostID])), nil
}

func (r *fakeMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.Media, error) {
	return r.medias[postID], nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []*models.PublishHistory
}

func (r *fakeHistoryRepo) Create(ctx context.Context, history *models.PublishHistory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, history)
	return int64(len(r.entries)), nil
}

type fakeMetricRepo struct {
	mu      sync.Mutex
	metrics map[int64]*models.Metric
	creates int
	updates int
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{metrics: make(map[int64]*models.Metric)}
}

func (r *fakeMetricRepo) GetByVariantID(ctx context.Context, variantID int64) (*models.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics[variantID], nil
}

func (r *fakeMetricRepo) Create(ctx context.Context, metric *models.Metric) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	metric.ID = int64(len(r.metrics) + 1)
	r.metrics[metric.VariantID] = metric
	return metric.ID, nil
}

func (r *fakeMetricRepo) Update(ctx context.Context, metric *models.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.metrics[metric.VariantID] = metric
	return nil
}

func (r *fakeMetricRepo) ListByAuthorID(ctx context.Context, authorID int64) ([]*models.Metric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Metric
	for _, m := range r.metrics {
		out = append(out, m)
	}
	return out, nil
}

type fakeUserRepo struct {
	users       map[int64]*models.User
	memberships map[int64]*models.Membership // keyed by user id
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) GetMembership(ctx context.Context, userID, organizationID int64) (*models.Membership, error) {
	m := r.memberships[userID]
	if m == nil || m.OrganizationID != organizationID {
		return nil, nil
	}
	return m, nil
}

type fakeCredentialResolver struct {
	creds map[string]Credentials
	err   error
}

func (r *fakeCredentialResolver) Resolve(ctx context.Context, userID int64, network string) (Credentials, error) {
	if r.err != nil {
		return Credentials{}, r.err
	}
	return r.creds[network], nil
}

// fakeAdapter is a scriptable NetworkAdapter and MetricsFetcher.
type fakeAdapter struct {
	network string
	result  *PublishResult
	err     error

	mu        sync.Mutex
	published []int64

	remote    []transfer.RemoteMetric
	remoteErr error
}

func (a *fakeAdapter) Network() string { return a.network }

func (a *fakeAdapter) Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error) {
	a.mu.Lock()
	a.published = append(a.published, variant.ID)
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func (a *fakeAdapter) FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error) {
	if a.remoteErr != nil {
		return nil, a.remoteErr
	}
	return a.remote, nil
}
