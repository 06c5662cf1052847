package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusline/internal/assistant"
)

// Reply is the JSON object every backend answers with.
type Reply struct {
	Action  string    `json:"action"`
	Message string    `json:"message"`
	Data    ReplyData `json:"data"`
}

type ReplyData struct {
	GoalTitle      string `json:"goalTitle,omitempty"`
	TaskTitle      string `json:"taskTitle,omitempty"`
	DurationMonths int    `json:"durationMonths,omitempty"`
	DailyMinutes   int    `json:"dailyMinutes,omitempty"`
	DueDate        string `json:"dueDate,omitempty"`
	Minutes        int    `json:"minutes,omitempty"`
}

var errNoJSON = errors.New("no JSON object in model output")

// Decode parses model output into an Action. Markdown fences and prose
// around the object are ignored.
func Decode(raw string) (assistant.Action, error) {
	body, err := extractObject(raw)
	if err != nil {
		return assistant.Action{}, err
	}
	var r Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return assistant.Action{}, fmt.Errorf("decode model reply: %w", err)
	}
	return r.ToAction()
}

// ToAction maps the wire reply onto an assistant.Action.
func (r Reply) ToAction() (assistant.Action, error) {
	kind := assistant.Kind(strings.ToLower(strings.TrimSpace(r.Action)))
	a := assistant.Action{Kind: kind, Message: strings.TrimSpace(r.Message)}
	switch kind {
	case assistant.KindReply, assistant.KindShowProgress:
	case assistant.KindCreateGoal:
		a.Title = r.Data.GoalTitle
		a.DurationMonths = r.Data.DurationMonths
		a.DailyMinutes = r.Data.DailyMinutes
	case assistant.KindCreateTask:
		a.Title = r.Data.TaskTitle
		a.Minutes = r.Data.Minutes
		a.GoalTitle = r.Data.GoalTitle
		a.Due = parseDue(r.Data.DueDate)
	case assistant.KindCompleteTask, assistant.KindDeleteTask:
		a.Title = r.Data.TaskTitle
	case assistant.KindDeleteGoal:
		a.Title = r.Data.GoalTitle
	default:
		return assistant.Action{}, fmt.Errorf("unknown action %q", r.Action)
	}
	return a, nil
}

// Encode is the inverse of Decode, used by the heuristic backend.
func Encode(r Reply) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode model reply: %w", err)
	}
	return string(b), nil
}

func parseDue(s string) assistant.DueDate {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "today":
		return assistant.DueDate{Kind: assistant.DueToday}
	case "tomorrow":
		return assistant.DueDate{Kind: assistant.DueTomorrow}
	case "next_week", "next week":
		return assistant.DueDate{Kind: assistant.DueNextWeek}
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return assistant.DueDate{Kind: assistant.DueOn, Date: s}
	}
	return assistant.DueDate{Kind: assistant.DueToday}
}

// extractObject returns the outermost {...} span of raw.
func extractObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return raw[start : end+1], nil
}
