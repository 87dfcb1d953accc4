package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/fixture"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/publisher"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/standings"
)

// Event is the frame sent to clients for each accepted record.
type Event struct {
	Type      string          `json:"type"`
	RunID     string          `json:"run_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// BroadcastSink pushes records to the hub as they are accepted. Slow or absent
// clients never hold up the run; undeliverable frames are dropped.
type BroadcastSink struct {
	hub   *Hub
	runID string
	now   func() time.Time
}

// NewBroadcastSink creates a sink broadcasting on hub for runID.
func NewBroadcastSink(hub *Hub, runID string) *BroadcastSink {
	return &BroadcastSink{hub: hub, runID: runID, now: time.Now}
}

func (s *BroadcastSink) WriteFixtures(ctx context.Context, records []fixture.Record) error {
	for _, r := range records {
		if err := s.send(publisher.TypeFixture, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *BroadcastSink) WriteStandings(ctx context.Context, rows []standings.Row) error {
	for _, r := range rows {
		if err := s.send(publisher.TypeStanding, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *BroadcastSink) Close() error { return nil }

func (s *BroadcastSink) send(kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Type: kind, RunID: s.runID, Data: data, Timestamp: s.now().UTC()})
	if err != nil {
		return err
	}
	s.hub.Broadcast(frame)
	return nil
}
