package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newEscalator(store *memStore, model Inference) Escalator {
	return Escalator{
		Model:   model,
		Context: ContextProvider{Store: store, Now: clock},
		Timeout: time.Second,
	}
}

func TestEscalateUnavailableSkipsModel(t *testing.T) {
	model := &stubModel{available: false, action: Reply("never")}
	got := newEscalator(&memStore{}, model).Escalate(context.Background(), "asdljk random gibberish")
	assert.Equal(t, Reply(FallbackText), got)
	assert.Equal(t, 0, model.callCount())
}

func TestEscalateNilModel(t *testing.T) {
	got := newEscalator(&memStore{}, nil).Escalate(context.Background(), "anything")
	assert.Equal(t, Reply(FallbackText), got)
}

func TestEscalateTimeoutAbandonsCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	model := &stubModel{available: true, block: true}
	e := newEscalator(&memStore{}, model)
	e.Timeout = 20 * time.Millisecond

	start := time.Now()
	got := e.Escalate(context.Background(), "tell me a story")
	assert.Equal(t, Reply(FallbackText), got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, model.callCount())
}

func TestEscalateModelError(t *testing.T) {
	model := &stubModel{available: true, err: errors.New("backend down")}
	got := newEscalator(&memStore{}, model).Escalate(context.Background(), "hmm")
	assert.Equal(t, Reply(FallbackText), got)
	assert.Equal(t, 1, model.callCount(), "no retries")
}

func TestEscalateRejectsUnknownAction(t *testing.T) {
	model := &stubModel{available: true, action: Action{Kind: "dance"}}
	got := newEscalator(&memStore{}, model).Escalate(context.Background(), "hmm")
	assert.Equal(t, Reply(FallbackText), got)

	model.action = Action{Kind: KindListGoals}
	got = newEscalator(&memStore{}, model).Escalate(context.Background(), "hmm")
	assert.Equal(t, Reply(FallbackText), got)
}

func TestEscalateNormalizesDefaults(t *testing.T) {
	model := &stubModel{available: true, action: Action{Kind: KindCreateGoal, Title: " Learn Spanish "}}
	got := newEscalator(&memStore{}, model).Escalate(context.Background(), "i want to learn spanish")
	assert.Equal(t, Action{Kind: KindCreateGoal, Title: "Learn Spanish", DurationMonths: 3, DailyMinutes: 30}, got)

	model.action = Action{Kind: KindCreateTask}
	got = newEscalator(&memStore{}, model).Escalate(context.Background(), "remind me")
	assert.Equal(t, Reply(AskTaskTitle), got)
}

func TestEscalateSendsBoundedContext(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 8; i++ {
		store.addGoal("goal", 15)
		store.addTask("task", i%2 == 0)
	}
	model := &stubModel{available: true, action: Action{Kind: KindShowProgress}}
	e := newEscalator(store, model)
	e.MaxTokens = 128
	got := e.Escalate(context.Background(), "how's it going")
	assert.Equal(t, KindShowProgress, got.Kind)

	require.Equal(t, 1, model.callCount())
	req := model.calls[0]
	assert.Equal(t, "how's it going", req.Message)
	assert.Len(t, req.Goals, DefaultContextLimit)
	assert.Len(t, req.Tasks, DefaultContextLimit)
	assert.Equal(t, 128, req.MaxTokens)
	assert.Equal(t, TaskContext{Title: "task", IsCompleted: true, Minutes: 30}, req.Tasks[0])
}
