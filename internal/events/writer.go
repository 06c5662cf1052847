package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	GoalCreated        = "goal.created"
	GoalDeleted        = "goal.deleted"
	TaskCreated        = "task.created"
	TaskCompleted      = "task.completed"
	TaskDeleted        = "task.deleted"
	FocusLogged        = "focus.logged"
	PhoneUsageRecorded = "usage.recorded"
)

type Writer struct {
	Now func() time.Time
}

type Payload map[string]any

// Append records an event inside the caller's transaction so the audit entry
// commits or rolls back with the mutation it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if actorID == "" {
		actorID = "local-user"
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
