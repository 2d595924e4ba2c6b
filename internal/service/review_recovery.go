package service

import (
	"context"
	"fmt"

	"pubhub/internal/model"

	"go.uber.org/zap"
)

// RecoverPending re-announces open publications on application start.
// Reviewer consoles subscribe to the shared queue channel on connect, so
// a restart must replay what is still waiting, with review records
// seeded so "Continue review" works immediately.
func (s *ReviewService) RecoverPending(ctx context.Context, log *zap.Logger) error {
	status := string(model.StatusPending)
	pending, err := s.queries.ListPublications(ctx, &status)
	if err != nil {
		return fmt.Errorf("failed to list pending publications: %w", err)
	}

	log.Info("Recovering pending publications", zap.Int("count", len(pending)))

	for _, row := range pending {
		session, err := s.Open(ctx, row.URL)
		if err != nil {
			log.Warn("Failed to reopen review during recovery",
				zap.String("publicationUrl", row.URL),
				zap.Error(err),
			)
			continue
		}

		err = s.bus.PublishReviewers(map[string]interface{}{
			"type":           "publication.pending",
			"publicationUrl": row.URL,
			"name":           row.Name,
			"resourceTypes":  row.ResourceTypes,
			"reviewState":    string(session.State),
			"recovered":      true,
		})
		if err != nil {
			log.Warn("Failed to re-announce publication",
				zap.String("publicationUrl", row.URL),
				zap.Error(err),
			)
		}
	}
	return nil
}
