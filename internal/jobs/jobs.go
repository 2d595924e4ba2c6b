package jobs

import (
	"context"
	"fmt"
	"time"

	"pubhub/internal/db"
	"pubhub/internal/model"
	"pubhub/internal/pubsub"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Review records older than this are eligible for cleanup.
const staleReviewAge = 7 * 24 * time.Hour

type JobServer struct {
	server *asynq.Server
	client *asynq.Client
	db     *db.Pool
	bus    *pubsub.Bus
	log    *zap.Logger
}

func NewJobServer(redisAddr string, dbPool *db.Pool, bus *pubsub.Bus, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server: server,
		client: client,
		db:     dbPool,
		bus:    bus,
		log:    log,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc("publication:remind", js.handleReviewerReminder)
	mux.HandleFunc("publication:reconcile", js.handleReconcile)
	mux.HandleFunc("review:cleanup", js.handleReviewCleanup)

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// Job handlers

// handleReviewerReminder nudges the reviewer queue when a publication has
// been waiting too long.
func (js *JobServer) handleReviewerReminder(ctx context.Context, t *asynq.Task) error {
	publicationURL := string(t.Payload())

	pub, err := js.db.GetPublicationByURL(ctx, publicationURL)
	if err != nil {
		return fmt.Errorf("failed to get publication: %w", err)
	}

	// Only remind while still pending
	if pub.Status != string(model.StatusPending) {
		return nil
	}

	_ = js.bus.PublishReviewers(map[string]interface{}{
		"type":           "publication.reminder",
		"publicationUrl": publicationURL,
		"name":           pub.Name,
		"pendingSince":   pub.CreatedAt.Format(time.RFC3339),
	})

	// Keep nudging until someone closes it
	if err := ScheduleReviewerReminder(js.client, publicationURL, 24*time.Hour); err != nil {
		js.log.Warn("Failed to reschedule reminder", zap.String("publication_url", publicationURL), zap.Error(err))
	}

	js.log.Info("Reviewer reminder sent", zap.String("publication_url", publicationURL))
	return nil
}

// handleReconcile checks whether any resource of a pending publication
// lost its backing entity and tells subscribers about invalid entities.
func (js *JobServer) handleReconcile(ctx context.Context, t *asynq.Task) error {
	publicationURL := string(t.Payload())

	pub, err := js.db.GetPublicationByURL(ctx, publicationURL)
	if err != nil {
		return fmt.Errorf("failed to get publication: %w", err)
	}

	if pub.Status != string(model.StatusPending) {
		return nil
	}

	resources, err := js.db.GetPublicationResources(ctx, publicationURL)
	if err != nil {
		return fmt.Errorf("failed to get publication resources: %w", err)
	}

	var ids []string
	for _, r := range resources {
		if r.Action == string(model.ActionDelete) {
			ids = append(ids, r.TargetURL)
		} else if r.SourceURL != nil {
			ids = append(ids, *r.SourceURL)
		}
	}

	existing, err := js.db.ExistingEntityIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to check entities: %w", err)
	}

	var invalid []string
	for _, r := range resources {
		checkID := ""
		if r.Action == string(model.ActionDelete) {
			checkID = r.TargetURL
		} else if r.SourceURL != nil {
			checkID = *r.SourceURL
		}
		if checkID != "" && !existing[checkID] {
			invalid = append(invalid, r.ReviewURL)
		}
	}

	if len(invalid) > 0 {
		_ = js.bus.PublishPublication(publicationURL, map[string]interface{}{
			"type":            "publication.invalid_entities",
			"publicationUrl":  publicationURL,
			"invalidEntities": invalid,
		})
		js.log.Info("Invalid entities detected",
			zap.String("publication_url", publicationURL),
			zap.Int("count", len(invalid)),
		)
	}

	// Re-check hourly while the publication stays open
	if err := ScheduleReconcile(js.client, publicationURL, time.Hour); err != nil {
		js.log.Warn("Failed to reschedule reconcile", zap.String("publication_url", publicationURL), zap.Error(err))
	}

	return nil
}

// handleReviewCleanup drops review records for closed or abandoned
// publications and reschedules itself.
func (js *JobServer) handleReviewCleanup(ctx context.Context, t *asynq.Task) error {
	urls, err := js.db.StaleReviewPublicationURLs(ctx, staleReviewAge)
	if err != nil {
		return fmt.Errorf("failed to find stale review records: %w", err)
	}

	for _, url := range urls {
		if err := js.db.DeleteResourcesToReview(ctx, url); err != nil {
			return fmt.Errorf("failed to clean review records for %s: %w", url, err)
		}
		if err := js.bus.GetStreams().TrimStream("publication:" + url); err != nil {
			js.log.Warn("Failed to trim event stream", zap.String("publication_url", url), zap.Error(err))
		}
	}

	if len(urls) > 0 {
		js.log.Info("Review records cleaned", zap.Int("publications", len(urls)))
	}

	if err := ScheduleReviewCleanup(js.client, 24*time.Hour); err != nil {
		js.log.Warn("Failed to reschedule review cleanup", zap.Error(err))
	}

	return nil
}

// Schedule jobs

func ScheduleReviewerReminder(client *asynq.Client, publicationURL string, delay time.Duration) error {
	task := asynq.NewTask("publication:remind", []byte(publicationURL))
	_, err := client.Enqueue(task, asynq.ProcessIn(delay), asynq.Queue("low"))
	return err
}

func ScheduleReconcile(client *asynq.Client, publicationURL string, delay time.Duration) error {
	task := asynq.NewTask("publication:reconcile", []byte(publicationURL))
	_, err := client.Enqueue(task, asynq.ProcessIn(delay), asynq.Queue("default"))
	return err
}

func ScheduleReviewCleanup(client *asynq.Client, delay time.Duration) error {
	task := asynq.NewTask("review:cleanup", nil)
	_, err := client.Enqueue(task, asynq.ProcessIn(delay), asynq.Queue("low"))
	return err
}
