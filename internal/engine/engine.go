package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"focusline/internal/config"
	"focusline/internal/domain"
	"focusline/internal/events"
	"focusline/internal/repo"
)

// DefaultGoalDays is the span of a goal created without an end date: three
// 30-day months.
const DefaultGoalDays = 90

// Engine owns every write to the workspace database. Each mutation runs in its
// own transaction together with its audit event.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Config  *config.Config
	Now     func() time.Time
	ActorID string
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{},
		Config:  cfg,
		Now:     time.Now,
		ActorID: "local-user",
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertGoal stores g, filling in id, category, active flag and timestamps when unset.
func (e Engine) InsertGoal(ctx context.Context, g domain.Goal) (domain.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	if g.Title == "" {
		return domain.Goal{}, errors.New("goal title is required")
	}
	if g.DailyMinutes <= 0 {
		return domain.Goal{}, fmt.Errorf("goal daily minutes must be positive, got %d", g.DailyMinutes)
	}
	now := e.now()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Category == "" {
		g.Category = domain.DefaultGoalCategory
	}
	if g.StartAt.IsZero() {
		g.StartAt = now
	}
	if g.EndAt.IsZero() {
		g.EndAt = g.StartAt.AddDate(0, 0, DefaultGoalDays)
	}
	if g.EndAt.Before(g.StartAt) {
		return domain.Goal{}, errors.New("goal end date precedes its start")
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.Active = true
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertGoal(ctx, tx, g); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		return e.writer().Append(ctx, tx, events.GoalCreated, "goal", g.ID, e.ActorID, events.Payload{
			"title":         g.Title,
			"daily_minutes": g.DailyMinutes,
			"end_at":        g.EndAt.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

func (e Engine) GetGoal(ctx context.Context, id string) (domain.Goal, error) {
	return e.Repo.GetGoal(ctx, id)
}

func (e Engine) ActiveGoals(ctx context.Context) ([]domain.Goal, error) {
	return e.Repo.ListActiveGoals(ctx)
}

// DeleteGoal removes a goal; its tasks stay and lose the link, its daily progress goes with it.
func (e Engine) DeleteGoal(ctx context.Context, id string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteGoal(ctx, tx, id); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.GoalDeleted, "goal", id, e.ActorID, nil)
	})
}

// InsertTask stores t, filling in id, priority and timestamps when unset.
func (e Engine) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return domain.Task{}, errors.New("task title is required")
	}
	if t.Priority == 0 {
		t.Priority = 2
	}
	if t.Priority < 1 || t.Priority > 3 {
		return domain.Task{}, fmt.Errorf("task priority must be between 1 and 3, got %d", t.Priority)
	}
	if t.Minutes < 0 {
		return domain.Task{}, fmt.Errorf("task minutes must not be negative, got %d", t.Minutes)
	}
	now := e.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.DueAt.IsZero() {
		t.DueAt = domain.StartOfDay(now)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.GoalID != nil {
		if _, err := e.Repo.GetGoal(ctx, *t.GoalID); err != nil {
			return domain.Task{}, fmt.Errorf("goal %s: %w", *t.GoalID, err)
		}
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		payload := events.Payload{"title": t.Title, "due_at": t.DueAt.UTC().Format(time.RFC3339), "minutes": t.Minutes}
		if t.GoalID != nil {
			payload["goal_id"] = *t.GoalID
		}
		return e.writer().Append(ctx, tx, events.TaskCreated, "task", t.ID, e.ActorID, payload)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

// TasksByDate returns tasks due in [start, end).
func (e Engine) TasksByDate(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, repo.TaskFilters{DueFrom: start, DueBefore: end})
}

// TodayTasks returns tasks due today in the engine clock's location.
func (e Engine) TodayTasks(ctx context.Context) ([]domain.Task, error) {
	start := domain.StartOfDay(e.now())
	return e.TasksByDate(ctx, start, start.AddDate(0, 0, 1))
}

// CompleteTask marks a task done. Completing a goal-linked task credits its
// minutes to the goal's progress for the completion day. Completing an already
// completed task is a no-op.
func (e Engine) CompleteTask(ctx context.Context, id string) (domain.Task, error) {
	var out domain.Task
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		t, err := e.Repo.GetTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.Completed {
			out = t
			return nil
		}
		now := e.now()
		t.Completed = true
		t.CompletedAt = &now
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if t.GoalID != nil && t.Minutes > 0 {
			if err := e.creditGoal(ctx, tx, *t.GoalID, t.Minutes, now); err != nil {
				return err
			}
		}
		out = t
		return e.writer().Append(ctx, tx, events.TaskCompleted, "task", t.ID, e.ActorID, events.Payload{"title": t.Title})
	})
	return out, err
}

func (e Engine) DeleteTask(ctx context.Context, id string) error {
	return e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteTask(ctx, tx, id); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.TaskDeleted, "task", id, e.ActorID, nil)
	})
}

func (e Engine) creditGoal(ctx context.Context, tx *sql.Tx, goalID string, minutes int, at time.Time) error {
	var target int
	err := tx.QueryRowContext(ctx, `SELECT daily_minutes FROM goals WHERE id=?`, goalID).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		// goal deleted since the task was linked
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := e.Repo.AddDailyProgress(ctx, tx, goalID, domain.DayKey(at), minutes, target, at); err != nil {
		return fmt.Errorf("daily progress: %w", err)
	}
	return nil
}

// DailyProgress returns per-goal progress for the day containing t.
func (e Engine) DailyProgress(ctx context.Context, t time.Time) ([]domain.DailyProgress, error) {
	return e.Repo.ListDailyProgress(ctx, domain.DayKey(t))
}
