package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Timestamps are stored in UTC with a fixed layout so range filters can compare strings.
const tsLayout = "2006-01-02T15:04:05Z"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const goalColumns = `id,title,category,start_at,end_at,daily_minutes,active,created_at`

func scanGoal(row rowScanner) (domain.Goal, error) {
	var g domain.Goal
	var start, end, created string
	err := row.Scan(&g.ID, &g.Title, &g.Category, &start, &end, &g.DailyMinutes, &g.Active, &created)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	if g.StartAt, err = parseTS(start); err != nil {
		return g, fmt.Errorf("goal %s start_at: %w", g.ID, err)
	}
	if g.EndAt, err = parseTS(end); err != nil {
		return g, fmt.Errorf("goal %s end_at: %w", g.ID, err)
	}
	if g.CreatedAt, err = parseTS(created); err != nil {
		return g, fmt.Errorf("goal %s created_at: %w", g.ID, err)
	}
	return g, nil
}

func (r Repo) InsertGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO goals(`+goalColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.Title, g.Category, formatTS(g.StartAt), formatTS(g.EndAt), g.DailyMinutes, g.Active, formatTS(g.CreatedAt))
	return err
}

func (r Repo) GetGoal(ctx context.Context, id string) (domain.Goal, error) {
	return scanGoal(r.DB.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id=?`, id))
}

// ListActiveGoals returns active goals, most recently created first.
func (r Repo) ListActiveGoals(ctx context.Context) ([]domain.Goal, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE active=1 ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r Repo) DeleteGoal(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const taskColumns = `id,goal_id,title,description,due_at,minutes,priority,completed,completed_at,created_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var goalID, description, completedAt sql.NullString
	var due, created string
	err := row.Scan(&t.ID, &goalID, &t.Title, &description, &due, &t.Minutes, &t.Priority, &t.Completed, &completedAt, &created)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if goalID.Valid {
		t.GoalID = &goalID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if t.DueAt, err = parseTS(due); err != nil {
		return t, fmt.Errorf("task %s due_at: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTS(created); err != nil {
		return t, fmt.Errorf("task %s created_at: %w", t.ID, err)
	}
	if completedAt.Valid {
		ts, err := parseTS(completedAt.String)
		if err != nil {
			return t, fmt.Errorf("task %s completed_at: %w", t.ID, err)
		}
		t.CompletedAt = &ts
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.GoalID), t.Title, nullable(t.Description), formatTS(t.DueAt), t.Minutes, t.Priority,
		t.Completed, nullableTime(t.CompletedAt), formatTS(t.CreatedAt))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET goal_id=?, title=?, description=?, due_at=?, minutes=?, priority=?, completed=?, completed_at=? WHERE id=?`,
		nullableStringPtr(t.GoalID), t.Title, nullable(t.Description), formatTS(t.DueAt), t.Minutes, t.Priority,
		t.Completed, nullableTime(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	DueFrom   time.Time
	DueBefore time.Time
	GoalID    string
	Completed *bool
	Limit     int
}

// ListTasks returns tasks matching f, most recently created first.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if !f.DueFrom.IsZero() {
		clauses = append(clauses, "due_at >= ?")
		args = append(args, formatTS(f.DueFrom))
	}
	if !f.DueBefore.IsZero() {
		clauses = append(clauses, "due_at < ?")
		args = append(args, formatTS(f.DueBefore))
	}
	if f.GoalID != "" {
		clauses = append(clauses, "goal_id=?")
		args = append(args, f.GoalID)
	}
	if f.Completed != nil {
		clauses = append(clauses, "completed=?")
		args = append(args, *f.Completed)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// AddDailyProgress adds minutes to a goal's day record, creating it on first use.
func (r Repo) AddDailyProgress(ctx context.Context, tx *sql.Tx, goalID, day string, minutes, target int, now time.Time) (domain.DailyProgress, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO daily_progress(goal_id,day,minutes_done,target_met,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(goal_id,day) DO UPDATE SET minutes_done=daily_progress.minutes_done+excluded.minutes_done, updated_at=excluded.updated_at`,
		goalID, day, minutes, minutes >= target, formatTS(now))
	if err != nil {
		return domain.DailyProgress{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE daily_progress SET target_met=(minutes_done >= ?) WHERE goal_id=? AND day=?`, target, goalID, day); err != nil {
		return domain.DailyProgress{}, err
	}
	return scanDailyProgress(tx.QueryRowContext(ctx, `SELECT goal_id,day,minutes_done,target_met,updated_at FROM daily_progress WHERE goal_id=? AND day=?`, goalID, day))
}

func (r Repo) ListDailyProgress(ctx context.Context, day string) ([]domain.DailyProgress, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT goal_id,day,minutes_done,target_met,updated_at FROM daily_progress WHERE day=? ORDER BY goal_id`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DailyProgress
	for rows.Next() {
		p, err := scanDailyProgress(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func scanDailyProgress(row rowScanner) (domain.DailyProgress, error) {
	var p domain.DailyProgress
	var updated string
	err := row.Scan(&p.GoalID, &p.Day, &p.MinutesDone, &p.TargetMet, &updated)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.UpdatedAt, err = parseTS(updated)
	return p, err
}

func (r Repo) InsertTimerSession(ctx context.Context, tx *sql.Tx, s domain.TimerSession) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO timer_sessions(id,goal_id,kind,started_at,ended_at,minutes,completed,interrupted) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, nullableStringPtr(s.GoalID), string(s.Kind), formatTS(s.StartedAt), formatTS(s.EndedAt), s.Minutes, s.Completed, s.Interrupted)
	return err
}

func (r Repo) ListTimerSessions(ctx context.Context, from, before time.Time) ([]domain.TimerSession, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,goal_id,kind,started_at,ended_at,minutes,completed,interrupted FROM timer_sessions
WHERE started_at >= ? AND started_at < ? ORDER BY started_at DESC`, formatTS(from), formatTS(before))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TimerSession
	for rows.Next() {
		var s domain.TimerSession
		var goalID sql.NullString
		var kind, started, ended string
		if err := rows.Scan(&s.ID, &goalID, &kind, &started, &ended, &s.Minutes, &s.Completed, &s.Interrupted); err != nil {
			return nil, err
		}
		s.Kind = domain.TimerKind(kind)
		if goalID.Valid {
			s.GoalID = &goalID.String
		}
		if s.StartedAt, err = parseTS(started); err != nil {
			return nil, err
		}
		if s.EndedAt, err = parseTS(ended); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// AddPhoneUsage accumulates minutes and unlocks for an app on a day.
func (r Repo) AddPhoneUsage(ctx context.Context, tx *sql.Tx, u domain.PhoneUsage) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO phone_usage(day,app,minutes,unlocks,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(day,app) DO UPDATE SET minutes=phone_usage.minutes+excluded.minutes, unlocks=phone_usage.unlocks+excluded.unlocks, updated_at=excluded.updated_at`,
		u.Day, u.App, u.Minutes, u.Unlocks, formatTS(u.UpdatedAt))
	return err
}

// ListPhoneUsage returns a day's usage, heaviest app first.
func (r Repo) ListPhoneUsage(ctx context.Context, day string) ([]domain.PhoneUsage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT day,app,minutes,unlocks,updated_at FROM phone_usage WHERE day=? ORDER BY minutes DESC, app ASC`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.PhoneUsage
	for rows.Next() {
		var u domain.PhoneUsage
		var updated string
		if err := rows.Scan(&u.Day, &u.App, &u.Minutes, &u.Unlocks, &updated); err != nil {
			return nil, err
		}
		if u.UpdatedAt, err = parseTS(updated); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

// LatestEventsFrom lists events newest first, starting at beforeID when it is
// non-zero.
func (r Repo) LatestEventsFrom(ctx context.Context, limit int, beforeID int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	var clauses []string
	var args []any
	if beforeID > 0 {
		clauses = append(clauses, "id<=?")
		args = append(args, beforeID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events `+where+` ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return formatTS(*v)
}
