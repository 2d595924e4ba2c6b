package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel naming. Bucket channels carry events about a user's own
// resources, publication channels follow one request through its
// lifecycle, and the reviewers channel is the shared approval queue.
const ReviewersChannel = "reviewers"

type Bus struct {
	rdb     *redis.Client
	log     *zap.Logger
	ctx     context.Context
	wsHub   WSHub
	streams *Streams
}

type WSHub interface {
	Publish(channel string, message map[string]interface{})
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{
		rdb:     rdb,
		log:     log,
		ctx:     context.Background(),
		streams: NewStreams(rdb, log),
	}
}

// SetWSHub sets the WebSocket hub for event broadcasting
func (b *Bus) SetWSHub(hub WSHub) {
	b.wsHub = hub
}

// GetStreams returns the streams provider
func (b *Bus) GetStreams() *Streams {
	return b.streams
}

// PublishBucket publishes an event to a user bucket's channel
func (b *Bus) PublishBucket(bucket string, event map[string]interface{}) error {
	return b.Publish("bucket:"+bucket, event)
}

// PublishPublication publishes an event to a publication's channel
func (b *Bus) PublishPublication(publicationURL string, event map[string]interface{}) error {
	return b.Publish("publication:"+publicationURL, event)
}

// PublishReviewers publishes an event to the shared reviewer queue channel
func (b *Bus) PublishReviewers(event map[string]interface{}) error {
	return b.Publish(ReviewersChannel, event)
}

// Publish publishes an event to a channel
func (b *Bus) Publish(channel string, event map[string]interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Publish to Redis pub/sub
	err = b.rdb.Publish(b.ctx, channel, data).Err()
	if err != nil {
		b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		return err
	}

	// Also publish to Redis Streams for replay
	seq, err := b.streams.PublishEvent(channel, event)
	if err != nil {
		b.log.Warn("Failed to publish to stream", zap.String("channel", channel), zap.Error(err))
		// Continue even if stream publish fails
	}

	// Add sequence number to event for WebSocket
	eventWithSeq := make(map[string]interface{})
	for k, v := range event {
		eventWithSeq[k] = v
	}
	eventWithSeq["seq"] = seq

	// Broadcast to WebSocket hub if available
	if b.wsHub != nil {
		b.wsHub.Publish(channel, eventWithSeq)
	}

	b.log.Debug("Published event", zap.String("channel", channel), zap.Int64("seq", seq))
	return nil
}
