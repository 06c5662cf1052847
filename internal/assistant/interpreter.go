package assistant

import (
	"fmt"
	"regexp"
	"strings"
)

// rule is one row of the interpreter table: a predicate over the normalized
// input and the extractor that builds the action once it matches.
type rule struct {
	name    string
	match   func(in input) bool
	extract func(in input) Action
}

// input carries the message with whitespace collapsed, in original case and lowercased.
type input struct {
	text  string
	lower string
}

func normalize(raw string) input {
	text := strings.Join(strings.Fields(raw), " ")
	return input{text: text, lower: strings.ToLower(text)}
}

// phrase is the lowercased text without trailing punctuation, for exact-phrase rules.
func (in input) phrase() string {
	return strings.TrimRight(in.lower, "?!. ")
}

// Rules are evaluated in order; the first match wins.
var rules = []rule{
	{name: "help", match: isHelp, extract: func(input) Action { return Reply(HelpText) }},
	{name: "list_goals", match: isListGoals, extract: func(input) Action { return Action{Kind: KindListGoals} }},
	{name: "list_tasks", match: isListTasks, extract: func(input) Action { return Action{Kind: KindListTasks} }},
	{name: "create_goal", match: isCreateGoal, extract: extractCreateGoal},
	{name: "create_task", match: isCreateTask, extract: extractCreateTask},
	{name: "complete_task", match: isCompleteTask, extract: extractCompleteTask},
	{name: "delete", match: isDelete, extract: extractDelete},
	{name: "show_progress", match: isShowProgress, extract: func(input) Action { return Action{Kind: KindShowProgress} }},
}

// Parse classifies text into an Action. It reports false when no rule
// matches, including for blank input. Parse has no side effects.
func Parse(text string) (Action, bool) {
	a, _, ok := parse(text)
	return a, ok
}

func parse(text string) (Action, string, bool) {
	in := normalize(text)
	if in.text == "" {
		return Action{}, "", false
	}
	for _, r := range rules {
		if r.match(in) {
			return r.extract(in), r.name, true
		}
	}
	return Action{}, "", false
}

var (
	helpPhrases      = []string{"help", "commands", "what can you do"}
	listGoalPhrases  = []string{"list goals", "show goals", "my goals", "show me my goals", "what are my goals"}
	listTaskPhrases  = []string{"list tasks", "show tasks", "my tasks", "show me my tasks", "what are my tasks"}
	completePhrases  = []string{"complete task", "done task", "finish task", "finished with task"}
	progressPhrases  = []string{"show progress", "show my progress", "what's my progress", "how am i doing", "my status", "my progress"}
	createWordRe     = regexp.MustCompile(`\b(?:create|add|new|start|set)\b`)
	goalWordRe       = regexp.MustCompile(`\bgoals?\b`)
	taskWordRe       = regexp.MustCompile(`\btasks?\b`)
	deleteWordRe     = regexp.MustCompile(`\b(?:delete|remove)\b`)
	curlyApostrophes = strings.NewReplacer("’", "'", "‘", "'")
)

func isHelp(in input) bool {
	return containsExact(helpPhrases, in.phrase())
}

func isListGoals(in input) bool {
	return in.phrase() == "goals" || containsAny(in.lower, listGoalPhrases)
}

func isListTasks(in input) bool {
	return in.phrase() == "tasks" || containsAny(in.lower, listTaskPhrases)
}

// isCreateGoal needs a create verb and the goal token. When "task" comes
// before "goal" the message is a task linked to a goal ("add task X for Y goal").
func isCreateGoal(in input) bool {
	if !createWordRe.MatchString(in.lower) {
		return false
	}
	goal := goalWordRe.FindStringIndex(in.lower)
	if goal == nil {
		return false
	}
	task := taskWordRe.FindStringIndex(in.lower)
	return task == nil || task[0] > goal[0]
}

func isCreateTask(in input) bool {
	return createWordRe.MatchString(in.lower) && taskWordRe.MatchString(in.lower)
}

func isCompleteTask(in input) bool {
	return containsAny(in.lower, completePhrases)
}

func isDelete(in input) bool {
	return deleteWordRe.MatchString(in.lower) && (goalWordRe.MatchString(in.lower) || taskWordRe.MatchString(in.lower))
}

func isShowProgress(in input) bool {
	return containsAny(curlyApostrophes.Replace(in.lower), progressPhrases)
}

func extractCreateGoal(in input) Action {
	title := goalTitle(in.text)
	if title == "" {
		return Reply(AskGoalTitle)
	}
	months := durationMonths(in.lower)
	minutes := dailyMinutes(in.lower)
	return Action{
		Kind:           KindCreateGoal,
		Title:          title,
		DurationMonths: months,
		DailyMinutes:   minutes,
		Message:        fmt.Sprintf("Created goal %q: %d min/day for %d months.", title, minutes, months),
	}
}

func extractCreateTask(in input) Action {
	title, goal := taskTitle(in.text)
	if title == "" {
		return Reply(AskTaskTitle)
	}
	due := dueDate(in.lower)
	minutes := taskMinutes(in.lower)
	msg := fmt.Sprintf("Added task %q due %s (%d min).", title, due.Label(), minutes)
	return Action{
		Kind:      KindCreateTask,
		Title:     title,
		Due:       due,
		Minutes:   minutes,
		GoalTitle: goal,
		Message:   msg,
	}
}

func extractCompleteTask(in input) Action {
	title := remainderAfter(in.text, completePhraseRe)
	if title == "" {
		return Reply(AskCompleteTitle)
	}
	return Action{
		Kind:    KindCompleteTask,
		Title:   title,
		Message: fmt.Sprintf("Marked %q as complete.", title),
	}
}

func extractDelete(in input) Action {
	if goalWordRe.MatchString(in.lower) {
		title := deleteTitle(in.text, deleteGoalPhraseRe, goalWordRe)
		if title == "" {
			return Reply(AskDeleteGoalTitle)
		}
		return Action{Kind: KindDeleteGoal, Title: title, Message: fmt.Sprintf("Deleted goal %q.", title)}
	}
	title := deleteTitle(in.text, deleteTaskPhraseRe, taskWordRe)
	if title == "" {
		return Reply(AskDeleteTaskTitle)
	}
	return Action{Kind: KindDeleteTask, Title: title, Message: fmt.Sprintf("Deleted task %q.", title)}
}

func containsExact(set []string, s string) bool {
	for _, p := range set {
		if s == p {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
