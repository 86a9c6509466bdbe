package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one entry of the append-only audit log.
type Event struct {
	ID       string          `json:"id" yaml:"id"`
	TS       time.Time       `json:"ts" yaml:"ts"`
	Type     string          `json:"type" yaml:"type"`
	EntityID string          `json:"entityId" yaml:"entityId"`
	Payload  json.RawMessage `json:"payload" yaml:"-"`
}

// AppendEvent records an event. Callers treat the log as best effort.
func (s *Store) AppendEvent(ctx context.Context, typ, entityID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		ID:       uuid.NewString(),
		TS:       time.Now().UTC(),
		Type:     strings.TrimSpace(typ),
		EntityID: strings.TrimSpace(entityID),
		Payload:  raw,
	}
	db, err := s.conn(ctx)
	if err != nil {
		return Event{}, err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO events(id, ts_unixms, type, entity_id, payload_json) VALUES(?, ?, ?, ?, ?)`,
		ev.ID, ev.TS.UnixMilli(), ev.Type, ev.EntityID, string(raw)); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ReadEventsTail returns the last n events, oldest first.
func (s *Store) ReadEventsTail(ctx context.Context, n int) ([]Event, error) {
	return s.readEvents(ctx, "", n)
}

// ReadEventsForEntity returns the last n events for one entity, oldest first.
func (s *Store) ReadEventsForEntity(ctx context.Context, entityID string, n int) ([]Event, error) {
	return s.readEvents(ctx, strings.TrimSpace(entityID), n)
}

func (s *Store) readEvents(ctx context.Context, entityID string, n int) ([]Event, error) {
	if n <= 0 {
		n = 50
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, ts_unixms, type, entity_id, payload_json FROM events`
	args := []any{}
	if entityID != "" {
		q += ` WHERE entity_id = ?`
		args = append(args, entityID)
	}
	q += ` ORDER BY ts_unixms DESC, rowid DESC LIMIT ?`
	args = append(args, n)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev      Event
			tsMs    int64
			payload string
		)
		if err := rows.Scan(&ev.ID, &tsMs, &ev.Type, &ev.EntityID, &payload); err != nil {
			return nil, err
		}
		ev.TS = time.UnixMilli(tsMs).UTC()
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
