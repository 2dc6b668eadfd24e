package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event represents one telemetry entry in the append-only log.
type Event struct {
	ID         string
	PluginName string
	Event      string
	Payload    map[string]any
	CreatedAt  time.Time
}

// TelemetryRepository provides append and query access to the telemetry log.
type TelemetryRepository struct {
	db *sql.DB
}

// Telemetry returns the telemetry repository for this store.
func (s *Store) Telemetry() *TelemetryRepository {
	return &TelemetryRepository{db: s.db}
}

// Append inserts a new telemetry event.
func (r *TelemetryRepository) Append(pluginName, event string, payload map[string]any) error {
	data := []byte("{}")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = encoded
	}

	_, err := r.db.Exec(
		`INSERT INTO telemetry_events (id, plugin_name, event, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), pluginName, event, string(data), time.Now(),
	)
	return err
}

// Recent returns the newest events, most recent first, up to limit.
func (r *TelemetryRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, plugin_name, event, payload, created_at
		 FROM telemetry_events ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentByPlugin returns the newest events for one plugin, most recent first.
func (r *TelemetryRepository) RecentByPlugin(pluginName string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, plugin_name, event, payload, created_at
		 FROM telemetry_events WHERE plugin_name = ?
		 ORDER BY created_at DESC, id LIMIT ?`,
		pluginName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e := &Event{}
		var payload string

		if err := rows.Scan(&e.ID, &e.PluginName, &e.Event, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			e.Payload = map[string]any{"raw": payload}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
