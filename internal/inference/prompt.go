package inference

import (
	"fmt"
	"strings"

	"focusline/internal/assistant"
)

// Prompt is a system instruction plus the user turn. Message is the raw chat
// message, kept apart so backends can inspect it without the context block.
type Prompt struct {
	System  string
	Context string
	Message string
}

// User renders the user turn sent to chat-style backends.
func (p Prompt) User() string {
	if p.Context == "" {
		return "User message: " + p.Message
	}
	return p.Context + "\n\nUser message: " + p.Message
}

const systemPrompt = `You are a productivity assistant that manages the user's goals and tasks.
Answer with exactly one JSON object and nothing else:
{"action": "<reply|create_goal|create_task|complete_task|delete_goal|delete_task|show_progress>",
 "message": "<short reply for the user>",
 "data": {"goalTitle": "", "taskTitle": "", "durationMonths": 3, "dailyMinutes": 30,
          "dueDate": "<today|tomorrow|next_week|YYYY-MM-DD>", "minutes": 30}}
Use "reply" when the user is chatting or the request is unclear.
Only fill the data fields the action needs.`

// BuildPrompt renders req into a Prompt.
func BuildPrompt(req assistant.Request) Prompt {
	var b strings.Builder
	if len(req.Goals) > 0 {
		b.WriteString("Active goals:\n")
		for _, g := range req.Goals {
			fmt.Fprintf(&b, "- %s (%d min/day, ends %s)\n", g.Title, g.DailyMinutes, g.EndDateLabel)
		}
	}
	if len(req.Tasks) > 0 {
		b.WriteString("Today's tasks:\n")
		for _, t := range req.Tasks {
			state := "open"
			if t.IsCompleted {
				state = "done"
			}
			fmt.Fprintf(&b, "- %s (%d min, %s)\n", t.Title, t.Minutes, state)
		}
	}
	return Prompt{
		System:  systemPrompt,
		Context: strings.TrimRight(b.String(), "\n"),
		Message: strings.TrimSpace(req.Message),
	}
}
