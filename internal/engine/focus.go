package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"focusline/internal/domain"
	"focusline/internal/events"
)

// Pomodoro defaults, in minutes.
const (
	DefaultFocusMinutes      = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15
)

type FocusOptions struct {
	GoalID      string
	Kind        domain.TimerKind
	Minutes     int
	EndedAt     time.Time
	Interrupted bool
}

// LogFocus records a finished timer session. Uninterrupted focus sessions on a
// goal count toward that goal's daily progress.
func (e Engine) LogFocus(ctx context.Context, opts FocusOptions) (domain.TimerSession, error) {
	if opts.Kind == "" {
		opts.Kind = domain.TimerFocus
	}
	if opts.Minutes == 0 {
		switch opts.Kind {
		case domain.TimerShortBreak:
			opts.Minutes = DefaultShortBreakMinutes
		case domain.TimerLongBreak:
			opts.Minutes = DefaultLongBreakMinutes
		default:
			opts.Minutes = DefaultFocusMinutes
		}
	}
	switch opts.Kind {
	case domain.TimerFocus, domain.TimerShortBreak, domain.TimerLongBreak:
	default:
		return domain.TimerSession{}, fmt.Errorf("invalid timer kind %q", opts.Kind)
	}
	if opts.Minutes < 0 {
		return domain.TimerSession{}, fmt.Errorf("timer minutes must be positive, got %d", opts.Minutes)
	}
	end := opts.EndedAt
	if end.IsZero() {
		end = e.now()
	}
	s := domain.TimerSession{
		ID:          uuid.NewString(),
		Kind:        opts.Kind,
		StartedAt:   end.Add(-time.Duration(opts.Minutes) * time.Minute),
		EndedAt:     end,
		Minutes:     opts.Minutes,
		Completed:   !opts.Interrupted,
		Interrupted: opts.Interrupted,
	}
	if opts.GoalID != "" {
		if _, err := e.Repo.GetGoal(ctx, opts.GoalID); err != nil {
			return domain.TimerSession{}, fmt.Errorf("goal %s: %w", opts.GoalID, err)
		}
		id := opts.GoalID
		s.GoalID = &id
	}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertTimerSession(ctx, tx, s); err != nil {
			return fmt.Errorf("insert timer session: %w", err)
		}
		if s.GoalID != nil && s.Kind == domain.TimerFocus && s.Completed {
			if err := e.creditGoal(ctx, tx, *s.GoalID, s.Minutes, end); err != nil {
				return err
			}
		}
		return e.writer().Append(ctx, tx, events.FocusLogged, "timer_session", s.ID, e.ActorID, events.Payload{
			"kind":    string(s.Kind),
			"minutes": s.Minutes,
		})
	})
	if err != nil {
		return domain.TimerSession{}, err
	}
	return s, nil
}

// FocusSessions lists sessions started on the day containing t.
func (e Engine) FocusSessions(ctx context.Context, t time.Time) ([]domain.TimerSession, error) {
	start := domain.StartOfDay(t)
	return e.Repo.ListTimerSessions(ctx, start, start.AddDate(0, 0, 1))
}

// RecordUsage adds screen time and unlocks for an app to today's totals.
func (e Engine) RecordUsage(ctx context.Context, app string, minutes, unlocks int) (domain.PhoneUsage, error) {
	app = strings.TrimSpace(app)
	if app == "" {
		return domain.PhoneUsage{}, errors.New("app is required")
	}
	if minutes < 0 || unlocks < 0 {
		return domain.PhoneUsage{}, errors.New("minutes and unlocks must not be negative")
	}
	now := e.now()
	u := domain.PhoneUsage{Day: domain.DayKey(now), App: app, Minutes: minutes, Unlocks: unlocks, UpdatedAt: now}
	err := e.inTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.AddPhoneUsage(ctx, tx, u); err != nil {
			return fmt.Errorf("record usage: %w", err)
		}
		return e.writer().Append(ctx, tx, events.PhoneUsageRecorded, "phone_usage", u.Day+"/"+u.App, e.ActorID, events.Payload{
			"minutes": minutes,
			"unlocks": unlocks,
		})
	})
	if err != nil {
		return domain.PhoneUsage{}, err
	}
	return u, nil
}

// Usage lists phone usage for the day containing t.
func (e Engine) Usage(ctx context.Context, t time.Time) ([]domain.PhoneUsage, error) {
	return e.Repo.ListPhoneUsage(ctx, domain.DayKey(t))
}
