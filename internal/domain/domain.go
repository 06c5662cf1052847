package domain

import "time"

const DefaultGoalCategory = "General"

type Goal struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	StartAt      time.Time `json:"start_at" format:"date-time"`
	EndAt        time.Time `json:"end_at" format:"date-time"`
	DailyMinutes int       `json:"daily_minutes"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at" format:"date-time"`
}

// DaysLeft counts whole days from now until the goal's end, never negative.
func (g Goal) DaysLeft(now time.Time) int {
	d := g.EndAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

type Task struct {
	ID          string     `json:"id"`
	GoalID      *string    `json:"goal_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       time.Time  `json:"due_at" format:"date-time"`
	Minutes     int        `json:"minutes"`
	Priority    int        `json:"priority" minimum:"1" maximum:"3"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt   time.Time  `json:"created_at" format:"date-time"`
}

type DailyProgress struct {
	GoalID      string    `json:"goal_id"`
	Day         string    `json:"day" format:"date"`
	MinutesDone int       `json:"minutes_done"`
	TargetMet   bool      `json:"target_met"`
	UpdatedAt   time.Time `json:"updated_at" format:"date-time"`
}

type TimerKind string

const (
	TimerFocus      TimerKind = "focus"
	TimerShortBreak TimerKind = "short_break"
	TimerLongBreak  TimerKind = "long_break"
)

type TimerSession struct {
	ID          string    `json:"id"`
	GoalID      *string   `json:"goal_id,omitempty"`
	Kind        TimerKind `json:"kind" enum:"focus,short_break,long_break"`
	StartedAt   time.Time `json:"started_at" format:"date-time"`
	EndedAt     time.Time `json:"ended_at" format:"date-time"`
	Minutes     int       `json:"minutes"`
	Completed   bool      `json:"completed"`
	Interrupted bool      `json:"interrupted"`
}

type PhoneUsage struct {
	Day       string    `json:"day" format:"date"`
	App       string    `json:"app"`
	Minutes   int       `json:"minutes"`
	Unlocks   int       `json:"unlocks"`
	UpdatedAt time.Time `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// DayKey formats t as the YYYY-MM-DD key used for per-day records.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
