package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"focusline/internal/logging"
)

const DefaultEscalationTimeout = 30 * time.Second

// Request is what the inference model sees for one unmatched message.
type Request struct {
	Message   string
	Goals     []GoalContext
	Tasks     []TaskContext
	MaxTokens int
}

// Inference turns an unmatched message into an Action. inference.Model
// implements it.
type Inference interface {
	Available() bool
	Generate(ctx context.Context, req Request) (Action, error)
}

var ErrModelUnavailable = errors.New("inference model unavailable")

// Escalator asks the model about messages the rules did not match. Every
// failure ends in the FallbackText reply.
type Escalator struct {
	Model     Inference
	Context   ContextProvider
	Timeout   time.Duration
	MaxTokens int
	Logger    *zap.Logger
}

// Escalate never fails: errors and timeouts are logged and answered with
// FallbackText. There are no retries.
func (e Escalator) Escalate(ctx context.Context, text string) Action {
	log := logging.OrNop(e.Logger)
	a, err := e.generate(ctx, text)
	if err != nil {
		log.Warn("inference fallback", zap.Error(err))
		return Reply(FallbackText)
	}
	return a
}

func (e Escalator) generate(ctx context.Context, text string) (Action, error) {
	if e.Model == nil || !e.Model.Available() {
		return Action{}, ErrModelUnavailable
	}
	goals, tasks, err := e.Context.Snapshot(ctx)
	if err != nil {
		return Action{}, fmt.Errorf("context snapshot: %w", err)
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultEscalationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		action Action
		err    error
	}
	// buffered so an abandoned call can still finish and exit
	done := make(chan result, 1)
	go func() {
		a, err := e.Model.Generate(ctx, Request{Message: text, Goals: goals, Tasks: tasks, MaxTokens: e.MaxTokens})
		done <- result{a, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return Action{}, fmt.Errorf("generate: %w", r.err)
		}
		return normalizeModelAction(r.action)
	case <-ctx.Done():
		return Action{}, fmt.Errorf("generate: %w", ctx.Err())
	}
}

// normalizeModelAction applies the interpreter's defaults to a model reply.
// List queries are not accepted from the model.
func normalizeModelAction(a Action) (Action, error) {
	a.Title = strings.TrimSpace(a.Title)
	a.GoalTitle = strings.TrimSpace(a.GoalTitle)
	switch a.Kind {
	case KindReply:
		if strings.TrimSpace(a.Message) == "" {
			return Action{}, errors.New("model returned an empty reply")
		}
	case KindCreateGoal:
		if a.Title == "" {
			return Reply(AskGoalTitle), nil
		}
		if a.DurationMonths <= 0 {
			a.DurationMonths = DefaultDurationMonths
		}
		if a.DailyMinutes <= 0 {
			a.DailyMinutes = DefaultDailyMinutes
		}
	case KindCreateTask:
		if a.Title == "" {
			return Reply(AskTaskTitle), nil
		}
		if a.Minutes <= 0 {
			a.Minutes = DefaultTaskMinutes
		}
		if a.Due.Kind == "" {
			a.Due.Kind = DueToday
		}
	case KindCompleteTask:
		if a.Title == "" {
			return Reply(AskCompleteTitle), nil
		}
	case KindDeleteGoal:
		if a.Title == "" {
			return Reply(AskDeleteGoalTitle), nil
		}
	case KindDeleteTask:
		if a.Title == "" {
			return Reply(AskDeleteTaskTitle), nil
		}
	case KindShowProgress:
	default:
		return Action{}, fmt.Errorf("model returned unsupported action %q", a.Kind)
	}
	return a, nil
}
