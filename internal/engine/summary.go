package engine

import (
	"context"
	"time"

	"focusline/internal/domain"
)

type GoalSummary struct {
	Goal        domain.Goal
	MinutesDone int
	TargetMet   bool
	DaysLeft    int
}

// Summary is the day's progress across tasks, goals, focus sessions and
// phone usage.
type Summary struct {
	Day            string
	TasksTotal     int
	TasksCompleted int
	Percent        int
	Goals          []GoalSummary
	FocusMinutes   int
	ScreenMinutes  int
	Unlocks        int
}

// DailySummary builds the progress summary for the day containing t.
func (e Engine) DailySummary(ctx context.Context, t time.Time) (Summary, error) {
	start := domain.StartOfDay(t)
	s := Summary{Day: domain.DayKey(start)}

	tasks, err := e.TasksByDate(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return Summary{}, err
	}
	s.TasksTotal = len(tasks)
	for _, task := range tasks {
		if task.Completed {
			s.TasksCompleted++
		}
	}
	if s.TasksTotal > 0 {
		s.Percent = s.TasksCompleted * 100 / s.TasksTotal
	}

	goals, err := e.ActiveGoals(ctx)
	if err != nil {
		return Summary{}, err
	}
	progress, err := e.DailyProgress(ctx, start)
	if err != nil {
		return Summary{}, err
	}
	byGoal := make(map[string]domain.DailyProgress, len(progress))
	for _, p := range progress {
		byGoal[p.GoalID] = p
	}
	for _, g := range goals {
		p := byGoal[g.ID]
		s.Goals = append(s.Goals, GoalSummary{
			Goal:        g,
			MinutesDone: p.MinutesDone,
			TargetMet:   p.TargetMet,
			DaysLeft:    g.DaysLeft(e.now()),
		})
	}

	sessions, err := e.FocusSessions(ctx, start)
	if err != nil {
		return Summary{}, err
	}
	for _, fs := range sessions {
		if fs.Kind == domain.TimerFocus && fs.Completed {
			s.FocusMinutes += fs.Minutes
		}
	}
	usage, err := e.Usage(ctx, start)
	if err != nil {
		return Summary{}, err
	}
	for _, u := range usage {
		s.ScreenMinutes += u.Minutes
		s.Unlocks += u.Unlocks
	}
	return s, nil
}
