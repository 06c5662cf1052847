package server

import (
	"encoding/json"
	"time"

	"focusline/internal/assistant"
	"focusline/internal/domain"
	"focusline/internal/engine"
)

// Request payloads

type SendMessageRequest struct {
	Message string `json:"message" doc:"Free-form chat message"`
}

type CreateGoalRequest struct {
	Title          string `json:"title" minLength:"1"`
	Category       string `json:"category,omitempty"`
	DurationMonths int    `json:"duration_months,omitempty" minimum:"0" doc:"Defaults to 3; one month is 30 days"`
	DailyMinutes   int    `json:"daily_minutes,omitempty" minimum:"0" doc:"Defaults to 30"`
}

type CreateTaskRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
	GoalID      string `json:"goal_id,omitempty"`
	DueDate     string `json:"due_date,omitempty" format:"date" doc:"YYYY-MM-DD; defaults to today"`
	Minutes     int    `json:"minutes,omitempty" minimum:"0"`
	Priority    int    `json:"priority,omitempty" minimum:"0" maximum:"3"`
}

type LogFocusRequest struct {
	GoalID      string `json:"goal_id,omitempty"`
	Kind        string `json:"kind,omitempty" enum:"focus,short_break,long_break"`
	Minutes     int    `json:"minutes,omitempty" minimum:"0"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

type RecordUsageRequest struct {
	App     string `json:"app" minLength:"1"`
	Minutes int    `json:"minutes" minimum:"0"`
	Unlocks int    `json:"unlocks,omitempty" minimum:"0"`
}

// Response payloads

type SessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at" format:"date-time"`
}

type ActionTakenResponse struct {
	Kind     string `json:"kind" enum:"GoalCreated,TaskCreated,GoalDeleted,TaskDeleted,TaskCompleted,ListShown,None"`
	ItemName string `json:"item_name"`
	Details  string `json:"details,omitempty"`
}

type ReplyResponse struct {
	Message     string               `json:"message"`
	Source      string               `json:"source" enum:"rules,model,fallback"`
	ActionTaken *ActionTakenResponse `json:"action_taken,omitempty"`
}

type TurnResponse struct {
	Role        string               `json:"role" enum:"user,assistant"`
	Text        string               `json:"text"`
	ActionTaken *ActionTakenResponse `json:"action_taken,omitempty"`
	At          time.Time            `json:"at" format:"date-time"`
}

type GoalResponse struct {
	domain.Goal
	DaysLeft int `json:"days_left"`
}

type GoalProgressResponse struct {
	GoalID       string `json:"goal_id"`
	Title        string `json:"title"`
	DailyMinutes int    `json:"daily_minutes"`
	MinutesDone  int    `json:"minutes_done"`
	TargetMet    bool   `json:"target_met"`
	DaysLeft     int    `json:"days_left"`
}

type ProgressResponse struct {
	Day            string                 `json:"day" format:"date"`
	TasksTotal     int                    `json:"tasks_total"`
	TasksCompleted int                    `json:"tasks_completed"`
	Percent        int                    `json:"percent"`
	FocusMinutes   int                    `json:"focus_minutes"`
	ScreenMinutes  int                    `json:"screen_minutes"`
	Unlocks        int                    `json:"unlocks"`
	Goals          []GoalProgressResponse `json:"goals"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type listTurns struct {
	Items []TurnResponse `json:"items"`
}

type listGoals struct {
	Items []GoalResponse `json:"items"`
}

type listTasks struct {
	Items []domain.Task `json:"items"`
}

type listFocus struct {
	Items []domain.TimerSession `json:"items"`
}

type listUsage struct {
	Items []domain.PhoneUsage `json:"items"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func sessionResponse(s *assistant.Session) SessionResponse {
	return SessionResponse{ID: s.ID, UserID: s.UserID, StartedAt: s.StartedAt}
}

func takenResponse(t *assistant.ActionTaken) *ActionTakenResponse {
	if t == nil {
		return nil
	}
	return &ActionTakenResponse{Kind: string(t.Kind), ItemName: t.ItemName, Details: t.Details}
}

func replyResponse(r assistant.ChatReply) ReplyResponse {
	return ReplyResponse{Message: r.Message, Source: string(r.Source), ActionTaken: takenResponse(r.Taken)}
}

func turnResponses(turns []assistant.Turn) []TurnResponse {
	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{Role: string(t.Role), Text: t.Text, ActionTaken: takenResponse(t.Taken), At: t.At})
	}
	return out
}

func goalResponse(g domain.Goal, now time.Time) GoalResponse {
	return GoalResponse{Goal: g, DaysLeft: g.DaysLeft(now)}
}

func progressResponse(s engine.Summary) ProgressResponse {
	res := ProgressResponse{
		Day:            s.Day,
		TasksTotal:     s.TasksTotal,
		TasksCompleted: s.TasksCompleted,
		Percent:        s.Percent,
		FocusMinutes:   s.FocusMinutes,
		ScreenMinutes:  s.ScreenMinutes,
		Unlocks:        s.Unlocks,
		Goals:          []GoalProgressResponse{},
	}
	for _, g := range s.Goals {
		res.Goals = append(res.Goals, GoalProgressResponse{
			GoalID:       g.Goal.ID,
			Title:        g.Goal.Title,
			DailyMinutes: g.Goal.DailyMinutes,
			MinutesDone:  g.MinutesDone,
			TargetMet:    g.TargetMet,
			DaysLeft:     g.DaysLeft,
		})
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}
