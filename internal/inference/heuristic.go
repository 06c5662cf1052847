package inference

import (
	"context"
	"strings"
)

// Heuristic is the built-in keyword model. It needs no weights or network
// and answers in the same JSON shape as the real backends.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

func (Heuristic) Complete(_ context.Context, p Prompt, _ int) (string, error) {
	return Encode(heuristicReply(p.Message))
}

func heuristicReply(msg string) Reply {
	lower := strings.ToLower(msg)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("create") && has("goal"):
		name := quoted(msg, "New Goal")
		return Reply{
			Action:  "create_goal",
			Message: "I'll create a goal for " + name,
			Data:    ReplyData{GoalTitle: name, DurationMonths: 3, DailyMinutes: 30},
		}
	case has("add") && has("task"):
		name := quoted(msg, "New Task")
		return Reply{
			Action:  "create_task",
			Message: "I'll add the task: " + name,
			Data:    ReplyData{TaskTitle: name, DueDate: "today", Minutes: 30},
		}
	case has("list", "show"):
		return Reply{Action: "reply", Message: "Here are your current items. You can ask me to create goals or add tasks!"}
	case has("help"):
		return Reply{Action: "reply", Message: "I can help you manage goals and tasks! Try saying: 'Create a goal to learn Python' or 'Add task review notes tomorrow'"}
	case has("complete", "done", "finish"):
		return Reply{
			Action:  "complete_task",
			Message: "Great job! I'll mark that as complete.",
			Data:    ReplyData{TaskTitle: quoted(msg, "task")},
		}
	case has("delete", "remove"):
		return Reply{Action: "reply", Message: "To delete an item, please specify exactly which goal or task you want to remove."}
	case has("progress", "how am i", "status"):
		return Reply{Action: "show_progress", Message: "Let me show you your progress summary!"}
	default:
		return Reply{Action: "reply", Message: "I'm your local assistant! I can help you create goals, add tasks, and track your progress. What would you like to do?"}
	}
}

// quoted returns the first double-quoted span of s, or def.
func quoted(s, def string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return def
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return def
	}
	return s[start+1 : start+1+end]
}
