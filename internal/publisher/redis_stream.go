// Package publisher emits accepted records onto a Redis stream so downstream
// consumers see results while a run is still in progress.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

const (
	DefaultStream = "hockey.fixtures"

	// streamMaxLen caps the stream; trimming is approximate.
	streamMaxLen = 10000

	TypeFixture  = "fixture"
	TypeStanding = "standing"
)

// RedisStreamPublisher publishes records to a Redis stream. It is a sink for
// both fixtures and standings.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	runID  string
	now    func() time.Time
}

// NewRedisStreamPublisher creates a publisher on an existing client. The client
// stays owned by the caller.
func NewRedisStreamPublisher(client *redis.Client, stream, runID string) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, runID: runID, now: time.Now}
}

// WriteFixtures publishes one message per record in a single round trip.
func (p *RedisStreamPublisher) WriteFixtures(ctx context.Context, records []fixture.Record) error {
	payloads := make([]any, len(records))
	for i, r := range records {
		payloads[i] = r
	}
	return p.publish(ctx, TypeFixture, payloads)
}

// WriteStandings publishes one message per table row.
func (p *RedisStreamPublisher) WriteStandings(ctx context.Context, rows []standings.Row) error {
	payloads := make([]any, len(rows))
	for i, r := range rows {
		payloads[i] = r
	}
	return p.publish(ctx, TypeStanding, payloads)
}

// Close is a no-op; see NewRedisStreamPublisher.
func (p *RedisStreamPublisher) Close() error { return nil }

func (p *RedisStreamPublisher) publish(ctx context.Context, kind string, payloads []any) error {
	if len(payloads) == 0 {
		return nil
	}

	args := make([]*redis.XAddArgs, 0, len(payloads))
	for _, payload := range payloads {
		values, err := Message(kind, p.runID, payload, p.now())
		if err != nil {
			return err
		}
		args = append(args, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: values,
		})
	}

	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range args {
			pipe.XAdd(ctx, a)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing %d %s messages to %s: %w", len(args), kind, p.stream, err)
	}
	return nil
}

// Message builds the stream entry fields for one record.
func Message(kind, runID string, payload any, at time.Time) (map[string]interface{}, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", kind, err)
	}
	return map[string]interface{}{
		"type":      kind,
		"run_id":    runID,
		"data":      string(data),
		"timestamp": at.Unix(),
	}, nil
}
