package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamEvent represents an event stored in Redis Streams
// Note: This matches ws.StreamEvent structure
type StreamEvent struct {
	Channel   string
	Sequence  int64
	Event     map[string]interface{}
	Timestamp time.Time
}

// Streams manages Redis Streams for event replay, so a reviewer UI that
// reconnects mid-session can catch up on publication events it missed.
type Streams struct {
	rdb *redis.Client
	log *zap.Logger
	ctx context.Context
}

// NewStreams creates a new Streams manager
func NewStreams(rdb *redis.Client, log *zap.Logger) *Streams {
	return &Streams{
		rdb: rdb,
		log: log,
		ctx: context.Background(),
	}
}

// PublishEvent publishes an event to a Redis Stream with sequence number
func (s *Streams) PublishEvent(channel string, event map[string]interface{}) (int64, error) {
	streamKey := "stream:" + channel

	seq, err := s.nextSequence(channel)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", err)
	}

	eventWithSeq := make(map[string]interface{}, len(event)+3)
	for k, v := range event {
		eventWithSeq[k] = v
	}
	eventWithSeq["seq"] = seq
	eventWithSeq["channel"] = channel
	eventWithSeq["timestamp"] = time.Now().Format(time.RFC3339)

	eventData, err := json.Marshal(eventWithSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.rdb.XAdd(s.ctx, &redis.XAddArgs{
		Stream: streamKey,
		ID:     "*",
		Values: map[string]interface{}{"data": string(eventData)},
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add to stream: %w", err)
	}

	return seq, nil
}

func (s *Streams) nextSequence(channel string) (int64, error) {
	seq, err := s.rdb.Incr(s.ctx, "seq:"+channel).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return seq, nil
}

// GetLastSequence gets the last acknowledged sequence for a channel and connection
func (s *Streams) GetLastSequence(channel, connectionID string) (int64, error) {
	ackKey := fmt.Sprintf("ack:%s:%s", channel, connectionID)

	seqStr, err := s.rdb.Get(s.ctx, ackKey).Result()
	if err == redis.Nil {
		return 0, nil // No acknowledgment yet
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last sequence: %w", err)
	}

	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sequence: %w", err)
	}
	return seq, nil
}

// AcknowledgeSequence records an acknowledgment for a sequence number
func (s *Streams) AcknowledgeSequence(channel, connectionID string, sequence int64) error {
	ackKey := fmt.Sprintf("ack:%s:%s", channel, connectionID)
	if err := s.rdb.Set(s.ctx, ackKey, sequence, 0).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge sequence: %w", err)
	}
	return nil
}

// ReplayEvents replays events from a given sequence number
func (s *Streams) ReplayEvents(channel string, sinceSeq int64, limit int64) ([]StreamEvent, error) {
	streamKey := "stream:" + channel

	result, err := s.rdb.XRange(s.ctx, streamKey, "-", "+").Result()
	if err == redis.Nil {
		return []StreamEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	var events []StreamEvent
	for _, msg := range result {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}

		var eventData map[string]interface{}
		if err := json.Unmarshal([]byte(data), &eventData); err != nil {
			s.log.Warn("Failed to unmarshal event", zap.Error(err))
			continue
		}

		seq, _ := eventData["seq"].(float64)
		if int64(seq) <= sinceSeq {
			continue
		}

		channelName, _ := eventData["channel"].(string)
		timestampStr, _ := eventData["timestamp"].(string)
		timestamp, _ := time.Parse(time.RFC3339, timestampStr)
		if timestamp.IsZero() {
			timestamp = time.Now()
		}

		// Strip stream metadata from the replayed event
		event := make(map[string]interface{})
		for k, v := range eventData {
			if k != "seq" && k != "channel" && k != "timestamp" {
				event[k] = v
			}
		}

		events = append(events, StreamEvent{
			Channel:   channelName,
			Sequence:  int64(seq),
			Event:     event,
			Timestamp: timestamp,
		})
		if limit > 0 && int64(len(events)) >= limit {
			break
		}
	}
	return events, nil
}

// TrimStream drops replay history for a channel. Called when a review
// session is abandoned and its events no longer matter.
func (s *Streams) TrimStream(channel string) error {
	if err := s.rdb.Del(s.ctx, "stream:"+channel, "seq:"+channel).Err(); err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	return nil
}
