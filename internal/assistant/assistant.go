package assistant

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"focusline/internal/logging"
)

// Source says which path produced a reply.
type Source string

const (
	SourceRules    Source = "rules"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// PrefLastAction is the session preference holding the last action kind handled.
const PrefLastAction = "last_action"

// ChatReply is the assistant's answer to one message.
type ChatReply struct {
	Message string       `json:"message"`
	Taken   *ActionTaken `json:"taken,omitempty"`
	Source  Source       `json:"source"`
}

// Assistant handles one chat message at a time for a session.
type Assistant struct {
	Dispatcher Dispatcher
	Context    ContextProvider
	Escalator  Escalator
	Logger     *zap.Logger
	Now        func() time.Time
}

// Options wires an Assistant over one store and clock.
type Options struct {
	Store          Store
	Model          Inference
	Now            func() time.Time
	ContextLimit   int
	MirrorGoalTask bool
	Timeout        time.Duration
	MaxTokens      int
	Logger         *zap.Logger
}

func New(opts Options) *Assistant {
	log := logging.OrNop(opts.Logger)
	cp := ContextProvider{Store: opts.Store, Now: opts.Now, Limit: opts.ContextLimit}
	return &Assistant{
		Dispatcher: Dispatcher{Store: opts.Store, Now: opts.Now, MirrorGoalTask: opts.MirrorGoalTask, Logger: log},
		Context:    cp,
		Escalator:  Escalator{Model: opts.Model, Context: cp, Timeout: opts.Timeout, MaxTokens: opts.MaxTokens, Logger: log},
		Logger:     log,
		Now:        opts.Now,
	}
}

func (a *Assistant) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Handle answers text and records both turns in s when s is non-nil. It
// always returns a reply; store errors become an apology.
func (a *Assistant) Handle(ctx context.Context, s *Session, text string) ChatReply {
	if s != nil {
		s.record(Turn{Role: RoleUser, Text: text, At: a.now()})
	}
	r := a.reply(ctx, s, text)
	if s != nil {
		s.record(Turn{Role: RoleAssistant, Text: r.Message, Taken: r.Taken, At: a.now()})
	}
	return r
}

func (a *Assistant) reply(ctx context.Context, s *Session, text string) ChatReply {
	log := logging.OrNop(a.Logger)
	if strings.TrimSpace(text) == "" {
		return ChatReply{Message: AskSomething, Source: SourceRules}
	}
	action, rule, ok := parse(text)
	source := SourceRules
	if !ok {
		action = a.Escalator.Escalate(ctx, text)
		source = SourceModel
		if action.Kind == KindReply && action.Message == FallbackText {
			source = SourceFallback
		}
	}
	log.Debug("message interpreted", zap.String("rule", rule), zap.String("action", string(action.Kind)), zap.String("source", string(source)))
	if s != nil {
		s.SetPref(PrefLastAction, string(action.Kind))
	}

	var (
		res Result
		err error
	)
	if action.IsQuery() {
		res, err = a.Context.Answer(ctx, action)
	} else {
		res, err = a.Dispatcher.Dispatch(ctx, action)
	}
	if err != nil {
		log.Error("dispatch failed", zap.String("action", string(action.Kind)), zap.Error(err))
		return ChatReply{Message: ErrorText, Source: source}
	}
	return ChatReply{Message: res.Message, Taken: res.Taken, Source: source}
}
