// Package audit appends domain events to the event_log table. Evaluation
// status transitions are the main producer.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/Luks9/SMS/internal/evaluation"
)

const TypeStatusChanged = "evaluation.status_changed"

type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, typ, key, dataJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, dataJSON, time.Now().Unix())
	return err
}

// StatusChanged implements evaluation.StatusRecorder. Append failures are
// logged, never surfaced: the transition already committed.
func (r *EventRepo) StatusChanged(ctx context.Context, evaluationID string, from, to evaluation.Status) {
	data, _ := json.Marshal(map[string]string{"from": string(from), "to": string(to)})
	if err := r.Append(ctx, TypeStatusChanged, evaluationID, string(data)); err != nil {
		log.Printf("event log append failed for %s: %v", evaluationID, err)
	}
}

// Recent returns the newest events for one key, newest first.
func (r *EventRepo) Recent(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", site_id, typ, key, data, created_at FROM event_log
		 WHERE key=$1 ORDER BY "offset" DESC LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
