package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/repository"
	"github.com/unipost/unipost-api/internal/rules"
	"github.com/unipost/unipost-api/internal/transfer"
	"github.com/unipost/unipost-api/pkg/errs"
)

const publishConcurrency = 5

type PublishService interface {
	PublishVariant(ctx context.Context, userID, variantID int64) (*transfer.PublishOutcome, error)
	PublishAllPending(ctx context.Context, userID, postID int64) ([]transfer.PublishOutcome, error)
}

type publishService struct {
	p        repository.PostRepository
	v        repository.VariantRepository
	m        repository.MediaRepository
	ph       repository.PublishHistoryRepository
	creds    CredentialResolver
	registry *AdapterRegistry
	now      func() time.Time
}

func NewPublishService(
	p repository.PostRepository,
	v repository.VariantRepository,
	m repository.MediaRepository,
	ph repository.PublishHistoryRepository,
	creds CredentialResolver,
	registry *AdapterRegistry) PublishService {
	return &publishService{
		p:        p,
		v:        v,
		m:        m,
		ph:       ph,
		creds:    creds,
		registry: registry,
		now:      time.Now,
	}
}

// PublishVariant pushes one variant to its network. On success the variant
// is stamped with the external identifier and send instant; once no
// unpublished variants remain the post itself flips to PUBLISHED. Failures
// leave all prior state untouched.
func (s *publishService) PublishVariant(ctx context.Context, userID, variantID int64) (*transfer.PublishOutcome, error) {
	variant, err := s.v.GetByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, errs.New(errs.CodeValidation, "variant not found")
	}

	post, err := s.p.GetByID(ctx, variant.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.New(errs.CodeValidation, "post not found")
	}
	if post.AuthorID != userID {
		return nil, errs.New(errs.CodeValidation, "post does not belong to this user")
	}

	if variant.URI.Valid && variant.URI.String != "" {
		// Already published: report the stored identifiers instead of
		// double-posting.
		return &transfer.PublishOutcome{
			VariantID:  variant.ID,
			Network:    variant.Network,
			OK:         true,
			ExternalID: variant.URI.String,
			Permalink:  variant.Permalink.String,
		}, nil
	}

	outcome := s.publishOne(ctx, userID, post, variant)
	return &outcome, nil
}

// publishOne runs the full gate-resolve-publish-persist sequence for a
// single variant and reports the result without failing the caller.
func (s *publishService) publishOne(ctx context.Context, userID int64, post *models.Post, variant *models.Variant) transfer.PublishOutcome {
	outcome := transfer.PublishOutcome{
		VariantID: variant.ID,
		Network:   variant.Network,
	}

	fail := func(err error) transfer.PublishOutcome {
		outcome.Error = err.Error()
		slog.Info("publish failed", "variant_id", variant.ID, "network", variant.Network, "error", err.Error())
		s.recordHistory(ctx, userID, post.ID, variant, "", err)
		return outcome
	}

	medias, err := s.m.ListByPostID(ctx, post.ID)
	if err != nil {
		return fail(err)
	}

	// Re-run the capability rules against the stored media set. Content
	// that drifted past the rules since composition is rejected before any
	// remote call.
	constraints := rules.EvaluateConstraints([]string{variant.Network})
	if decision := rules.CheckMediaSet(rules.KindsOfMedias(medias), constraints); !decision.OK {
		return fail(errs.New(errs.CodeValidation, decision.Reason))
	}

	adapter, ok := s.registry.Get(variant.Network)
	if !ok {
		return fail(errs.Newf(errs.CodeValidation, "no adapter registered for network %s", variant.Network))
	}

	creds, err := s.creds.Resolve(ctx, userID, variant.Network)
	if err != nil {
		return fail(err)
	}

	result, err := adapter.Publish(ctx, creds, post, variant, medias)
	if err != nil {
		return fail(err)
	}

	sentAt := s.now().UTC()
	if err := s.v.MarkPublished(ctx, variant.ID, result.ExternalID, result.Permalink, sentAt); err != nil {
		return fail(err)
	}

	s.recordHistory(ctx, userID, post.ID, variant, result.ExternalID, nil)

	remaining, err := s.v.CountUnpublished(ctx, post.ID)
	if err != nil {
		slog.Info("could not count unpublished variants", "post_id", post.ID, "error", err.Error())
	} else if remaining == 0 {
		if err := s.p.UpdateStatus(ctx, models.PostStatusPublished, post.ID); err != nil {
			slog.Info("could not update post status", "post_id", post.ID, "error", err.Error())
		}
	}

	outcome.OK = true
	outcome.ExternalID = result.ExternalID
	outcome.Permalink = result.Permalink
	return outcome
}

// PublishAllPending fans the post's unpublished variants out concurrently.
// Each variant succeeds or fails on its own; one network being down never
// blocks the others.
func (s *publishService) PublishAllPending(ctx context.Context, userID, postID int64) ([]transfer.PublishOutcome, error) {
	post, err := s.p.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.New(errs.CodeValidation, "post not found")
	}
	if post.AuthorID != userID {
		return nil, errs.New(errs.CodeValidation, "post does not belong to this user")
	}

	variants, err := s.v.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var pending []*models.Variant
	for _, v := range variants {
		if v.URI.Valid && v.URI.String != "" {
			continue
		}
		pending = append(pending, v)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	outcomes := make([]transfer.PublishOutcome, len(pending))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, publishConcurrency)

	for i, variant := range pending {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, variant *models.Variant) {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcomes[i] = s.publishOne(ctx, userID, post, variant)
		}(i, variant)
	}

	wg.Wait()
	return outcomes, nil
}

func (s *publishService) recordHistory(ctx context.Context, userID, postID int64, variant *models.Variant, externalID string, publishErr error) {
	history := &models.PublishHistory{
		UserID:     userID,
		PostID:     postID,
		VariantID:  variant.ID,
		Network:    variant.Network,
		ExternalID: externalID,
	}
	if publishErr != nil {
		history.ErrorMessage = publishErr.Error()
	}
	if _, err := s.ph.Create(ctx, history); err != nil {
		slog.Info("could not save publish history", "variant_id", variant.ID, "error", err.Error())
	}
}
