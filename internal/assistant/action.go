// Package assistant turns chat messages into goal and task changes.
//
// A message is first run through Parse, an ordered table of lexical rules.
// Matched actions go to the Dispatcher; misses are escalated to an optional
// inference model whose reply is normalized into the same Action shape. Every
// message ends in exactly one ChatReply.
package assistant

import "time"

// Kind names the operation an Action performs.
type Kind string

const (
	KindReply        Kind = "reply"
	KindCreateGoal   Kind = "create_goal"
	KindCreateTask   Kind = "create_task"
	KindCompleteTask Kind = "complete_task"
	KindDeleteGoal   Kind = "delete_goal"
	KindDeleteTask   Kind = "delete_task"
	KindShowProgress Kind = "show_progress"
	// List queries are answered from the context provider and never dispatched.
	KindListGoals Kind = "list_goals"
	KindListTasks Kind = "list_tasks"
)

// Action is the tagged union produced by the interpreter and the inference
// fallback. Only the fields of its Kind are meaningful.
type Action struct {
	Kind    Kind   `json:"action"`
	Message string `json:"message,omitempty"`
	Title   string `json:"title,omitempty"`

	// create_goal
	DurationMonths int `json:"duration_months,omitempty"`
	DailyMinutes   int `json:"daily_minutes,omitempty"`

	// create_task
	Due       DueDate `json:"due"`
	Minutes   int     `json:"minutes,omitempty"`
	GoalTitle string  `json:"goal_title,omitempty"`
}

// IsQuery reports whether a is a read-only list query.
func (a Action) IsQuery() bool {
	return a.Kind == KindListGoals || a.Kind == KindListTasks
}

// Reply wraps message in a plain reply action.
func Reply(message string) Action {
	return Action{Kind: KindReply, Message: message}
}

// DueKind selects how a DueDate resolves to a calendar day.
type DueKind string

const (
	DueToday    DueKind = "today"
	DueTomorrow DueKind = "tomorrow"
	DueNextWeek DueKind = "next_week"
	DueOn       DueKind = "date"
)

// DueDate is a task's due day, relative or a literal YYYY-MM-DD date.
type DueDate struct {
	Kind DueKind `json:"kind,omitempty"`
	Date string  `json:"date,omitempty"`
}

// Resolve returns the due day's midnight relative to now.
func (d DueDate) Resolve(now time.Time) time.Time {
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	switch d.Kind {
	case DueTomorrow:
		return today.AddDate(0, 0, 1)
	case DueNextWeek:
		return today.AddDate(0, 0, 7)
	case DueOn:
		t, err := time.ParseInLocation(dateLayout, d.Date, now.Location())
		if err != nil {
			return today
		}
		return t
	default:
		return today
	}
}

// Label is the human-readable form used in confirmations.
func (d DueDate) Label() string {
	switch d.Kind {
	case DueTomorrow:
		return "tomorrow"
	case DueNextWeek:
		return "next week"
	case DueOn:
		return d.Date
	default:
		return "today"
	}
}

const dateLayout = "2006-01-02"

// TakenKind classifies an ActionTaken.
type TakenKind string

const (
	GoalCreated   TakenKind = "GoalCreated"
	TaskCreated   TakenKind = "TaskCreated"
	GoalDeleted   TakenKind = "GoalDeleted"
	TaskDeleted   TakenKind = "TaskDeleted"
	TaskCompleted TakenKind = "TaskCompleted"
	ListShown     TakenKind = "ListShown"
	NoneTaken     TakenKind = "None"
)

// ActionTaken records what a dispatched action changed or showed.
type ActionTaken struct {
	Kind     TakenKind `json:"kind"`
	ItemName string    `json:"item_name"`
	Details  string    `json:"details,omitempty"`
}
