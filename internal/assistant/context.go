package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"focusline/internal/domain"
)

const DefaultContextLimit = 5

type GoalContext struct {
	Title        string `json:"title"`
	DailyMinutes int    `json:"daily_minutes"`
	EndDateLabel string `json:"end_date"`
}

type TaskContext struct {
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
	Minutes     int    `json:"minutes"`
}

// ContextProvider reads the user's active goals and today's tasks.
type ContextProvider struct {
	Store Store
	Now   func() time.Time
	Limit int
}

func (p ContextProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p ContextProvider) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return DefaultContextLimit
}

// Snapshot returns at most Limit goals and Limit tasks in store order.
func (p ContextProvider) Snapshot(ctx context.Context) ([]GoalContext, []TaskContext, error) {
	goals, err := p.Store.ActiveGoals(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("active goals: %w", err)
	}
	tasks, err := p.todayTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	n := p.limit()
	if len(goals) > n {
		goals = goals[:n]
	}
	if len(tasks) > n {
		tasks = tasks[:n]
	}
	gc := make([]GoalContext, 0, len(goals))
	for _, g := range goals {
		gc = append(gc, GoalContext{Title: g.Title, DailyMinutes: g.DailyMinutes, EndDateLabel: g.EndAt.Format("Jan 2, 2006")})
	}
	tc := make([]TaskContext, 0, len(tasks))
	for _, t := range tasks {
		tc = append(tc, TaskContext{Title: t.Title, IsCompleted: t.Completed, Minutes: t.Minutes})
	}
	return gc, tc, nil
}

// Answer formats the reply to a list query from the full, untruncated lists.
func (p ContextProvider) Answer(ctx context.Context, a Action) (Result, error) {
	switch a.Kind {
	case KindListGoals:
		goals, err := p.Store.ActiveGoals(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("active goals: %w", err)
		}
		return listGoals(goals), nil
	case KindListTasks:
		tasks, err := p.todayTasks(ctx)
		if err != nil {
			return Result{}, err
		}
		return listTasks(tasks), nil
	default:
		return Result{}, fmt.Errorf("not a list query: %q", a.Kind)
	}
}

func (p ContextProvider) todayTasks(ctx context.Context) ([]domain.Task, error) {
	start := domain.StartOfDay(p.now())
	tasks, err := p.Store.TasksByDate(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("today's tasks: %w", err)
	}
	return tasks, nil
}

func listGoals(goals []domain.Goal) Result {
	taken := &ActionTaken{Kind: ListShown, ItemName: "Goals", Details: fmt.Sprintf("%d goals", len(goals))}
	if len(goals) == 0 {
		return Result{Message: `You don't have any active goals yet. Try "create goal Learn Kotlin in 3 months".`, Taken: taken}
	}
	var b strings.Builder
	b.WriteString("🎯 Your goals:")
	for i, g := range goals {
		fmt.Fprintf(&b, "\n%d. %s (%d min/day)", i+1, g.Title, g.DailyMinutes)
	}
	return Result{Message: b.String(), Taken: taken}
}

func listTasks(tasks []domain.Task) Result {
	taken := &ActionTaken{Kind: ListShown, ItemName: "Tasks", Details: fmt.Sprintf("%d tasks", len(tasks))}
	if len(tasks) == 0 {
		return Result{Message: `No tasks for today. Try "add task Review notes today".`, Taken: taken}
	}
	var b strings.Builder
	b.WriteString("📋 Today's tasks:")
	for _, t := range tasks {
		box := "☐"
		if t.Completed {
			box = "☑"
		}
		fmt.Fprintf(&b, "\n%s %s (%d min)", box, t.Title, t.Minutes)
	}
	return Result{Message: b.String(), Taken: taken}
}
