package service

import (
	"context"
	"fmt"
	"time"

	"pubhub/internal/db"
	"pubhub/internal/model"
	"pubhub/internal/review"

	"go.uber.org/zap"
)

// ReviewService drives reviewer sessions over a publication's resources.
// Records live in the database; the traversal rules live in the review
// package.
type ReviewService struct {
	queries *db.Queries
	pubSvc  *PublicationService
	bus     EventBus
	log     *zap.Logger
}

func NewReviewService(queries *db.Queries, pubSvc *PublicationService, bus EventBus, log *zap.Logger) *ReviewService {
	return &ReviewService{
		queries: queries,
		pubSvc:  pubSvc,
		bus:     bus,
		log:     log,
	}
}

// ReviewSession is what a reviewer gets when opening a publication for
// review.
type ReviewSession struct {
	PublicationURL  string                   `json:"publicationUrl"`
	State           review.SessionState      `json:"state"`
	Records         []model.ResourceToReview `json:"records"`
	InvalidEntities []string                 `json:"invalidEntities,omitempty"`
	RulesChanged    bool                     `json:"rulesChanged"`
}

// Open seeds review records for a publication and returns the session.
// Seeding runs before any cursor read so Next never observes a half
// seeded record set. Re-opening keeps previously reviewed flags.
func (s *ReviewService) Open(ctx context.Context, publicationURL string) (*ReviewSession, error) {
	detail, err := s.pubSvc.Get(ctx, publicationURL)
	if err != nil {
		return nil, err
	}
	if detail.Status.Terminal() {
		return nil, ErrPublicationClosed
	}

	missing, err := s.pubSvc.MissingReviewURLs(ctx, detail.Publication)
	if err != nil {
		return nil, err
	}

	seeded := review.SeedRecords(detail.Publication, missing)
	if len(seeded) > 0 {
		params := make([]db.ResourceToReview, 0, len(seeded))
		for _, r := range seeded {
			params = append(params, db.ResourceToReview{
				ReviewURL:      r.ReviewURL,
				PublicationURL: r.PublicationURL,
				Reviewed:       r.Reviewed,
			})
		}
		if err := s.queries.SeedResourcesToReview(ctx, params); err != nil {
			return nil, fmt.Errorf("failed to seed review records: %w", err)
		}
	}

	records, err := s.records(ctx, publicationURL)
	if err != nil {
		return nil, err
	}

	_ = s.bus.PublishPublication(publicationURL, map[string]interface{}{
		"type":           "review.opened",
		"publicationUrl": publicationURL,
	})

	return &ReviewSession{
		PublicationURL:  publicationURL,
		State:           review.State(records, len(missing) > 0),
		Records:         records,
		InvalidEntities: sortedKeys(missing),
		RulesChanged:    detail.RulesChanged,
	}, nil
}

// Next returns where the review cursor lands, or no stop when the
// publication has nothing left to show.
func (s *ReviewService) Next(ctx context.Context, publicationURL string) (*review.Stop, review.SessionState, error) {
	records, err := s.records(ctx, publicationURL)
	if err != nil {
		return nil, "", err
	}

	state := review.State(records, false)
	stop, ok := review.Next(records)
	if !ok {
		return nil, state, nil
	}
	return &stop, state, nil
}

// MarkVisited flips one record to reviewed. Reviewed is sticky; a repeat
// visit reports no change and emits no event.
func (s *ReviewService) MarkVisited(ctx context.Context, publicationURL, reviewURL string) (bool, error) {
	changed, err := s.queries.MarkResourceReviewed(ctx, reviewURL, publicationURL)
	if err != nil {
		return false, fmt.Errorf("failed to mark resource reviewed: %w", err)
	}
	if !changed {
		return false, nil
	}

	records, err := s.records(ctx, publicationURL)
	if err != nil {
		return true, nil
	}
	reviewed := 0
	for _, r := range records {
		if r.Reviewed {
			reviewed++
		}
	}

	_ = s.bus.PublishPublication(publicationURL, map[string]interface{}{
		"type":           "review.visited",
		"publicationUrl": publicationURL,
		"reviewUrl":      reviewURL,
		"reviewed":       reviewed,
		"total":          len(records),
	})
	return true, nil
}

// Approvable reports whether the publication can be approved now, plus
// any invalid entities blocking it.
func (s *ReviewService) Approvable(ctx context.Context, publicationURL string) (bool, []string, error) {
	detail, err := s.pubSvc.Get(ctx, publicationURL)
	if err != nil {
		return false, nil, err
	}
	if detail.Status.Terminal() {
		return false, nil, ErrPublicationClosed
	}

	missing, err := s.pubSvc.MissingReviewURLs(ctx, detail.Publication)
	if err != nil {
		return false, nil, err
	}

	stored, err := s.records(ctx, publicationURL)
	if err != nil {
		return false, nil, err
	}
	reviewed := make(map[string]bool, len(stored))
	for _, r := range stored {
		if r.Reviewed {
			reviewed[r.ReviewURL] = true
		}
	}

	for _, r := range review.SeedRecords(detail.Publication, missing) {
		if !reviewed[r.ReviewURL] {
			return false, sortedKeys(missing), nil
		}
	}
	return len(missing) == 0, sortedKeys(missing), nil
}

// Cleanup drops review records belonging to closed or long-idle
// publications. Invoked from the background cleanup job.
func (s *ReviewService) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	urls, err := s.queries.StaleReviewPublicationURLs(ctx, maxAge)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale review records: %w", err)
	}
	for _, url := range urls {
		if err := s.queries.DeleteResourcesToReview(ctx, url); err != nil {
			return 0, fmt.Errorf("failed to clean review records for %s: %w", url, err)
		}
		s.log.Info("Cleaned review records", zap.String("publicationUrl", url))
	}
	return len(urls), nil
}

func (s *ReviewService) records(ctx context.Context, publicationURL string) ([]model.ResourceToReview, error) {
	stored, err := s.queries.ListResourcesToReview(ctx, publicationURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load review records: %w", err)
	}
	records := make([]model.ResourceToReview, 0, len(stored))
	for _, r := range stored {
		records = append(records, model.ResourceToReview{
			ReviewURL:      r.ReviewURL,
			PublicationURL: r.PublicationURL,
			Reviewed:       r.Reviewed,
		})
	}
	return records, nil
}
