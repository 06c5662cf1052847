package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"focusline/internal/domain"
	"focusline/internal/logging"
)

// Store is the persistence the assistant reads and mutates. engine.Engine
// satisfies it.
type Store interface {
	InsertGoal(ctx context.Context, g domain.Goal) (domain.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
	ActiveGoals(ctx context.Context) ([]domain.Goal, error)
	InsertTask(ctx context.Context, t domain.Task) (domain.Task, error)
	CompleteTask(ctx context.Context, id string) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	TasksByDate(ctx context.Context, start, end time.Time) ([]domain.Task, error)
}

// Result is a dispatched action's user-facing message and what it did.
// Taken is nil when nothing was changed or shown.
type Result struct {
	Message string
	Taken   *ActionTaken
}

const (
	monthDays       = 30
	taskPriority    = 2
	progressGoalTop = 5
)

type Dispatcher struct {
	Store Store
	Now   func() time.Time
	// MirrorGoalTask adds a same-day task for a new goal's daily minutes.
	MirrorGoalTask bool
	Logger         *zap.Logger
}

func (d Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch performs the single mutation or read a performs. Store errors are
// returned as-is; not-found lookups are replies, not errors.
func (d Dispatcher) Dispatch(ctx context.Context, a Action) (Result, error) {
	switch a.Kind {
	case KindReply:
		return Result{Message: a.Message}, nil
	case KindCreateGoal:
		return d.createGoal(ctx, a)
	case KindCreateTask:
		return d.createTask(ctx, a)
	case KindCompleteTask:
		return d.completeTask(ctx, a)
	case KindDeleteGoal:
		return d.deleteGoal(ctx, a)
	case KindDeleteTask:
		return d.deleteTask(ctx, a)
	case KindShowProgress:
		return d.showProgress(ctx)
	default:
		return Result{}, fmt.Errorf("dispatch: unsupported action %q", a.Kind)
	}
}

func (d Dispatcher) createGoal(ctx context.Context, a Action) (Result, error) {
	now := d.now()
	g, err := d.Store.InsertGoal(ctx, domain.Goal{
		Title:        a.Title,
		Category:     domain.DefaultGoalCategory,
		StartAt:      now,
		EndAt:        now.AddDate(0, 0, a.DurationMonths*monthDays),
		DailyMinutes: a.DailyMinutes,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create goal: %w", err)
	}
	if d.MirrorGoalTask {
		goalID := g.ID
		_, err := d.Store.InsertTask(ctx, domain.Task{
			GoalID:   &goalID,
			Title:    g.Title + " (Study)",
			DueAt:    domain.StartOfDay(now),
			Minutes:  g.DailyMinutes,
			Priority: taskPriority,
		})
		if err != nil {
			return Result{}, fmt.Errorf("create goal task: %w", err)
		}
	}
	logging.OrNop(d.Logger).Debug("goal created", zap.String("goal_id", g.ID), zap.String("title", g.Title))
	return Result{
		Message: fmt.Sprintf("🎯 Goal created: %s\nDuration: %d months\nDaily target: %d minutes", g.Title, a.DurationMonths, g.DailyMinutes),
		Taken: &ActionTaken{
			Kind:     GoalCreated,
			ItemName: g.Title,
			Details:  fmt.Sprintf("%d min/day for %d months", g.DailyMinutes, a.DurationMonths),
		},
	}, nil
}

func (d Dispatcher) createTask(ctx context.Context, a Action) (Result, error) {
	now := d.now()
	t := domain.Task{
		Title:    a.Title,
		DueAt:    a.Due.Resolve(now),
		Minutes:  a.Minutes,
		Priority: taskPriority,
	}
	if a.GoalTitle != "" {
		goals, err := d.Store.ActiveGoals(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("active goals: %w", err)
		}
		if g, ok := matchGoal(goals, a.GoalTitle); ok {
			id := g.ID
			t.GoalID = &id
		}
	}
	t, err := d.Store.InsertTask(ctx, t)
	if err != nil {
		return Result{}, fmt.Errorf("create task: %w", err)
	}
	label := a.Due.Label()
	return Result{
		Message: fmt.Sprintf("✅ Task added: %s\nDue: %s\nTime: %d minutes", t.Title, label, t.Minutes),
		Taken:   &ActionTaken{Kind: TaskCreated, ItemName: t.Title, Details: "Due: " + label},
	}, nil
}

func (d Dispatcher) completeTask(ctx context.Context, a Action) (Result, error) {
	tasks, err := d.todayTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	t, ok := matchTask(tasks, a.Title)
	if !ok {
		return Result{Message: fmt.Sprintf("I couldn't find a task matching %q in today's list.", a.Title)}, nil
	}
	t, err = d.Store.CompleteTask(ctx, t.ID)
	if err != nil {
		return Result{}, fmt.Errorf("complete task: %w", err)
	}
	return Result{
		Message: fmt.Sprintf("🎉 Great job! Marked \"%s\" as complete.", t.Title),
		Taken:   &ActionTaken{Kind: TaskCompleted, ItemName: t.Title},
	}, nil
}

func (d Dispatcher) deleteGoal(ctx context.Context, a Action) (Result, error) {
	goals, err := d.Store.ActiveGoals(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("active goals: %w", err)
	}
	g, ok := matchGoal(goals, a.Title)
	if !ok {
		return Result{Message: fmt.Sprintf("I couldn't find a goal matching %q.", a.Title)}, nil
	}
	if err := d.Store.DeleteGoal(ctx, g.ID); err != nil {
		return Result{}, fmt.Errorf("delete goal: %w", err)
	}
	return Result{
		Message: fmt.Sprintf("🗑️ Deleted goal \"%s\".", g.Title),
		Taken:   &ActionTaken{Kind: GoalDeleted, ItemName: g.Title},
	}, nil
}

func (d Dispatcher) deleteTask(ctx context.Context, a Action) (Result, error) {
	tasks, err := d.todayTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	t, ok := matchTask(tasks, a.Title)
	if !ok {
		return Result{Message: fmt.Sprintf("I couldn't find a task matching %q in today's list.", a.Title)}, nil
	}
	if err := d.Store.DeleteTask(ctx, t.ID); err != nil {
		return Result{}, fmt.Errorf("delete task: %w", err)
	}
	return Result{
		Message: fmt.Sprintf("🗑️ Deleted task \"%s\".", t.Title),
		Taken:   &ActionTaken{Kind: TaskDeleted, ItemName: t.Title},
	}, nil
}

func (d Dispatcher) showProgress(ctx context.Context) (Result, error) {
	tasks, err := d.todayTasks(ctx)
	if err != nil {
		return Result{}, err
	}
	goals, err := d.Store.ActiveGoals(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("active goals: %w", err)
	}
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	pct := 0
	if len(tasks) > 0 {
		pct = done * 100 / len(tasks)
	}
	now := d.now()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Today's progress\nTasks: %d/%d completed (%d%%)\nActive goals: %d\n", done, len(tasks), pct, len(goals))
	for i, g := range goals {
		if i == progressGoalTop {
			break
		}
		fmt.Fprintf(&b, "• %s (%d days left)\n", g.Title, g.DaysLeft(now))
	}
	b.WriteString(progressClosing(pct))
	return Result{
		Message: b.String(),
		Taken:   &ActionTaken{Kind: ListShown, ItemName: "Progress", Details: fmt.Sprintf("%d/%d tasks", done, len(tasks))},
	}, nil
}

func (d Dispatcher) todayTasks(ctx context.Context) ([]domain.Task, error) {
	start := domain.StartOfDay(d.now())
	tasks, err := d.Store.TasksByDate(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("today's tasks: %w", err)
	}
	return tasks, nil
}

// matchGoal returns the first goal whose title contains name, ignoring case.
func matchGoal(goals []domain.Goal, name string) (domain.Goal, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.Goal{}, false
	}
	for _, g := range goals {
		if strings.Contains(strings.ToLower(g.Title), needle) {
			return g, true
		}
	}
	return domain.Goal{}, false
}

func matchTask(tasks []domain.Task, name string) (domain.Task, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return domain.Task{}, false
	}
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return t, true
		}
	}
	return domain.Task{}, false
}
