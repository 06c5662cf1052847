package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusline/internal/domain"
)

func newDispatcher(store *memStore) Dispatcher {
	return Dispatcher{Store: store, Now: clock}
}

func TestDispatchCompleteTaskBySubstring(t *testing.T) {
	store := &memStore{}
	store.addTask("Review notes (Study)", false)
	ctx := context.Background()

	a, ok := Parse("complete task Review notes")
	require.True(t, ok)
	res, err := newDispatcher(store).Dispatch(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, res.Taken)
	assert.Equal(t, ActionTaken{Kind: TaskCompleted, ItemName: "Review notes (Study)"}, *res.Taken)
	assert.True(t, store.tasks[0].Completed)
	assert.Equal(t, 1, store.mutations)
}

func TestDispatchDeleteMissingGoalDoesNothing(t *testing.T) {
	store := &memStore{}
	store.addGoal("Learn Kotlin", 30)

	a, ok := Parse("delete goal NonexistentGoal")
	require.True(t, ok)
	res, err := newDispatcher(store).Dispatch(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, res.Taken)
	assert.Contains(t, res.Message, "couldn't find")
	assert.Equal(t, 0, store.mutations)
	assert.Len(t, store.goals, 1)
}

func TestDispatchCreateGoal(t *testing.T) {
	store := &memStore{}
	res, err := newDispatcher(store).Dispatch(context.Background(), Action{
		Kind: KindCreateGoal, Title: "Learn Kotlin", DurationMonths: 6, DailyMinutes: 30,
	})
	require.NoError(t, err)
	require.Len(t, store.goals, 1)
	g := store.goals[0]
	assert.Equal(t, domain.DefaultGoalCategory, g.Category)
	assert.Equal(t, fixedNow.AddDate(0, 0, 180), g.EndAt)
	assert.Empty(t, store.tasks)
	assert.Equal(t, &ActionTaken{Kind: GoalCreated, ItemName: "Learn Kotlin", Details: "30 min/day for 6 months"}, res.Taken)
}

func TestDispatchCreateGoalMirrorsTask(t *testing.T) {
	store := &memStore{}
	d := newDispatcher(store)
	d.MirrorGoalTask = true
	_, err := d.Dispatch(context.Background(), Action{Kind: KindCreateGoal, Title: "Learn Kotlin", DurationMonths: 3, DailyMinutes: 45})
	require.NoError(t, err)
	require.Len(t, store.tasks, 1)
	task := store.tasks[0]
	assert.Equal(t, "Learn Kotlin (Study)", task.Title)
	assert.Equal(t, 45, task.Minutes)
	require.NotNil(t, task.GoalID)
	assert.Equal(t, store.goals[0].ID, *task.GoalID)
	assert.Equal(t, domain.StartOfDay(fixedNow), task.DueAt)
}

func TestDispatchCreateTaskLinksGoal(t *testing.T) {
	store := &memStore{}
	store.addGoal("Get fit", 20)
	kotlin := store.addGoal("Learn Kotlin", 30)

	a, ok := Parse("add task Read chapter 3 for kotlin goal tomorrow")
	require.True(t, ok)
	res, err := newDispatcher(store).Dispatch(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, store.tasks, 1)
	task := store.tasks[0]
	require.NotNil(t, task.GoalID)
	assert.Equal(t, kotlin.ID, *task.GoalID)
	assert.Equal(t, 2, task.Priority)
	assert.False(t, task.Completed)
	assert.Equal(t, domain.StartOfDay(fixedNow).AddDate(0, 0, 1), task.DueAt)
	assert.Equal(t, &ActionTaken{Kind: TaskCreated, ItemName: "Read chapter 3", Details: "Due: tomorrow"}, res.Taken)
}

func TestDispatchCreateTaskUnknownGoal(t *testing.T) {
	store := &memStore{}
	store.addGoal("Learn Kotlin", 30)
	_, err := newDispatcher(store).Dispatch(context.Background(), Action{Kind: KindCreateTask, Title: "Jog", Minutes: 20, GoalTitle: "marathon"})
	require.NoError(t, err)
	require.Len(t, store.tasks, 1)
	assert.Nil(t, store.tasks[0].GoalID)
}

func TestDispatchDeleteTask(t *testing.T) {
	store := &memStore{}
	store.addTask("Laundry", false)
	store.addTask("Groceries", false)
	res, err := newDispatcher(store).Dispatch(context.Background(), Action{Kind: KindDeleteTask, Title: "laundry"})
	require.NoError(t, err)
	assert.Equal(t, TaskDeleted, res.Taken.Kind)
	require.Len(t, store.tasks, 1)
	assert.Equal(t, "Groceries", store.tasks[0].Title)
}

func TestDispatchShowProgressThresholds(t *testing.T) {
	tests := []struct {
		done, total int
		closing     string
	}{
		{4, 5, "Outstanding"},
		{1, 2, "Great progress"},
		{1, 4, "Good start"},
		{0, 0, "Every step counts"},
	}
	for _, tt := range tests {
		store := &memStore{}
		for i := 0; i < tt.total; i++ {
			store.addTask("task", i < tt.done)
		}
		res, err := newDispatcher(store).Dispatch(context.Background(), Action{Kind: KindShowProgress})
		require.NoError(t, err)
		assert.Contains(t, res.Message, tt.closing)
		require.NotNil(t, res.Taken)
		assert.Equal(t, ListShown, res.Taken.Kind)
		assert.Equal(t, "Progress", res.Taken.ItemName)
		assert.Equal(t, fmt.Sprintf("%d/%d tasks", tt.done, tt.total), res.Taken.Details)
	}
}

func TestDispatchShowProgressListsTopGoals(t *testing.T) {
	store := &memStore{}
	for _, title := range []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"} {
		store.addGoal(title, 10)
	}
	res, err := newDispatcher(store).Dispatch(context.Background(), Action{Kind: KindShowProgress})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Active goals: 7")
	assert.Contains(t, res.Message, "• g5 (90 days left)")
	assert.NotContains(t, res.Message, "g6")
}

func TestDispatchStoreError(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	_, err := newDispatcher(store).Dispatch(context.Background(), Action{Kind: KindCreateGoal, Title: "X", DurationMonths: 1, DailyMinutes: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDispatchReplyPassesThrough(t *testing.T) {
	res, err := newDispatcher(&memStore{}).Dispatch(context.Background(), Reply("hi"))
	require.NoError(t, err)
	assert.Equal(t, Result{Message: "hi"}, res)
}
