package assistant

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateGoal(t *testing.T) {
	a, ok := Parse("create goal Learn Kotlin in 6 months")
	require.True(t, ok)
	assert.Equal(t, KindCreateGoal, a.Kind)
	assert.Equal(t, "Learn Kotlin", a.Title)
	assert.Equal(t, 6, a.DurationMonths)
	assert.Equal(t, 30, a.DailyMinutes)
}

func TestParseCreateTask(t *testing.T) {
	a, ok := Parse("add task Review notes tomorrow")
	require.True(t, ok)
	assert.Equal(t, KindCreateTask, a.Kind)
	assert.Equal(t, "Review notes", a.Title)
	assert.Equal(t, DueDate{Kind: DueTomorrow}, a.Due)
	assert.Equal(t, 30, a.Minutes)
	assert.Empty(t, a.GoalTitle)
}

func TestParseIsCaseInsensitive(t *testing.T) {
	want, ok := Parse("create goal X")
	require.True(t, ok)
	for _, in := range []string{"CREATE GOAL X", "Create Goal X", "  create   goal X  "} {
		got, ok := Parse(in)
		require.True(t, ok, in)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
	assert.Equal(t, "X", want.Title)
}

func TestParseIsPure(t *testing.T) {
	inputs := []string{"add task Plan trip next week 45 min", "delete goal Learn Kotlin", "how am I doing?"}
	for _, in := range inputs {
		first, ok1 := Parse(in)
		second, ok2 := Parse(in)
		require.Equal(t, ok1, ok2)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("Parse(%q) not repeatable:\n%s", in, diff)
		}
	}
}

func TestParseNoMatch(t *testing.T) {
	for _, in := range []string{"", "   \t\n", "asdljk random gibberish", "thanks!"} {
		_, ok := Parse(in)
		assert.False(t, ok, "%q", in)
	}
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"help", Reply(HelpText)},
		{"What can you do?", Reply(HelpText)},
		{"goals", Action{Kind: KindListGoals}},
		{"show me my goals", Action{Kind: KindListGoals}},
		{"What are my tasks?", Action{Kind: KindListTasks}},
		{"list tasks", Action{Kind: KindListTasks}},
		{"create goal", Reply(AskGoalTitle)},
		{"add task", Reply(AskTaskTitle)},
		{"complete task", Reply(AskCompleteTitle)},
		{"delete goal", Reply(AskDeleteGoalTitle)},
		{"remove task", Reply(AskDeleteTaskTitle)},
		{"show my progress", Action{Kind: KindShowProgress}},
		{"How am I doing?", Action{Kind: KindShowProgress}},
		{"what’s my progress", Action{Kind: KindShowProgress}},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if !ok {
			t.Fatalf("Parse(%q) did not match", tt.in)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParseGoalDailyTime(t *testing.T) {
	tests := []struct {
		in      string
		title   string
		months  int
		minutes int
	}{
		{"create goal Run a marathon in 6 months, 1 hour a day", "Run a marathon", 6, 60},
		{"Create goal Learn Go, 45 min daily", "Learn Go", 3, 45},
		{"new goal: read more books for 12 months 2 hours per day", "Read more books", 12, 120},
		{"set a goal to meditate every hour", "Meditate every hour", 3, 60},
	}
	for _, tt := range tests {
		a, ok := Parse(tt.in)
		require.True(t, ok, tt.in)
		require.Equal(t, KindCreateGoal, a.Kind, tt.in)
		assert.Equal(t, tt.title, a.Title, tt.in)
		assert.Equal(t, tt.months, a.DurationMonths, tt.in)
		assert.Equal(t, tt.minutes, a.DailyMinutes, tt.in)
	}
}

func TestParseTaskClauses(t *testing.T) {
	tests := []struct {
		in      string
		title   string
		due     DueDate
		minutes int
		goal    string
	}{
		{"add task Read chapter 3 for Kotlin goal 45 min", "Read chapter 3", DueDate{Kind: DueToday}, 45, "Kotlin"},
		{"add task submit report on 2026-03-01", "Submit report", DueDate{Kind: DueOn, Date: "2026-03-01"}, 30, ""},
		{"add task Fix bike 2026-13-45", "Fix bike", DueDate{Kind: DueToday}, 30, ""},
		{"create task Plan trip next week", "Plan trip", DueDate{Kind: DueNextWeek}, 30, ""},
		{"add task Stretch today 10 min for my fitness goal", "Stretch", DueDate{Kind: DueToday}, 10, "fitness"},
	}
	for _, tt := range tests {
		a, ok := Parse(tt.in)
		require.True(t, ok, tt.in)
		require.Equal(t, KindCreateTask, a.Kind, tt.in)
		assert.Equal(t, tt.title, a.Title, tt.in)
		assert.Equal(t, tt.due, a.Due, tt.in)
		assert.Equal(t, tt.minutes, a.Minutes, tt.in)
		assert.Equal(t, tt.goal, a.GoalTitle, tt.in)
	}
}

func TestParseCompleteAndDelete(t *testing.T) {
	tests := []struct {
		in    string
		kind  Kind
		title string
	}{
		{"complete task Review notes", KindCompleteTask, "Review notes"},
		{"I finished with task: Laundry", KindCompleteTask, "Laundry"},
		{"done task groceries", KindCompleteTask, "groceries"},
		{"delete goal NonexistentGoal", KindDeleteGoal, "NonexistentGoal"},
		{"remove the task Laundry", KindDeleteTask, "Laundry"},
		{"Delete my goal called Learn Kotlin", KindDeleteGoal, "Learn Kotlin"},
	}
	for _, tt := range tests {
		a, ok := Parse(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.kind, a.Kind, tt.in)
		assert.Equal(t, tt.title, a.Title, tt.in)
	}
}

func TestParseRuleOrder(t *testing.T) {
	// help is exact-phrase only, so this is a goal creation
	a, ok := Parse("help me create goal Spanish")
	require.True(t, ok)
	assert.Equal(t, KindCreateGoal, a.Kind)
	assert.Equal(t, "Spanish", a.Title)

	// a task mentioned before its goal is a linked task
	a, ok = Parse("add task Vocabulary drill for Spanish goal")
	require.True(t, ok)
	assert.Equal(t, KindCreateTask, a.Kind)
	assert.Equal(t, "Spanish", a.GoalTitle)

	_, name, ok := parse("my goals")
	require.True(t, ok)
	assert.Equal(t, "list_goals", name)
}

func TestDueDateResolve(t *testing.T) {
	day := func(d DueDate) string { return d.Resolve(fixedNow).Format(time.RFC3339) }
	assert.Equal(t, "2026-03-10T00:00:00Z", day(DueDate{}))
	assert.Equal(t, "2026-03-11T00:00:00Z", day(DueDate{Kind: DueTomorrow}))
	assert.Equal(t, "2026-03-17T00:00:00Z", day(DueDate{Kind: DueNextWeek}))
	assert.Equal(t, "2026-04-01T00:00:00Z", day(DueDate{Kind: DueOn, Date: "2026-04-01"}))
	assert.Equal(t, "2026-03-10T00:00:00Z", day(DueDate{Kind: DueOn, Date: "not-a-date"}))
	assert.Equal(t, "next week", DueDate{Kind: DueNextWeek}.Label())
}
