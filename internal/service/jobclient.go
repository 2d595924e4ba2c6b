package service

import (
	"time"

	"pubhub/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient interface for scheduling background jobs
type JobClient interface {
	ScheduleReviewerReminder(publicationURL string, delay time.Duration) error
	ScheduleReconcile(publicationURL string, delay time.Duration) error
	ScheduleReviewCleanup(delay time.Duration) error
}

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) ScheduleReviewerReminder(publicationURL string, delay time.Duration) error {
	return jobs.ScheduleReviewerReminder(c.client, publicationURL, delay)
}

func (c *AsynqJobClient) ScheduleReconcile(publicationURL string, delay time.Duration) error {
	return jobs.ScheduleReconcile(c.client, publicationURL, delay)
}

func (c *AsynqJobClient) ScheduleReviewCleanup(delay time.Duration) error {
	return jobs.ScheduleReviewCleanup(c.client, delay)
}
