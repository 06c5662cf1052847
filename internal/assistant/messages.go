package assistant

const HelpText = `Here's what I can do:
• create goal <title> in <N> months, <M> min a day
• add task <title> [today|tomorrow|next week|YYYY-MM-DD] [N min] [for <goal> goal]
• complete task <title>
• delete goal <title> / delete task <title>
• list goals / list tasks
• show my progress`

// FallbackText is the reply when neither the rules nor the model produced an action.
const FallbackText = `I didn't catch that. Try one of these:
• create goal Learn Kotlin in 6 months
• add task Review notes tomorrow
• complete task Review notes
• show my progress
• help`

const (
	AskGoalTitle       = `What goal would you like to create? Try "create goal Learn Kotlin in 3 months".`
	AskTaskTitle       = `What task would you like to add? Try "add task Review notes tomorrow".`
	AskCompleteTitle   = `Which task did you finish? Try "complete task Review notes".`
	AskDeleteGoalTitle = `Which goal should I delete? Try "delete goal Learn Kotlin".`
	AskDeleteTaskTitle = `Which task should I delete? Try "delete task Review notes".`
	AskSomething       = `Say something like "help" to see what I can do.`
	ErrorText          = `Sorry, something went wrong saving that. Please try again.`
)

func progressClosing(pct int) string {
	switch {
	case pct >= 80:
		return "Outstanding work today! 🌟"
	case pct >= 50:
		return "Great progress, keep it up! 💪"
	case pct > 0:
		return "Good start, keep going!"
	default:
		return "Every step counts. Pick one task and get started!"
	}
}
