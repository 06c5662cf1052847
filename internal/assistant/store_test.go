package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"focusline/internal/domain"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// memStore is an in-memory Store that counts mutations.
type memStore struct {
	mu        sync.Mutex
	goals     []domain.Goal
	tasks     []domain.Task
	mutations int
	nextID    int
	err       error
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) InsertGoal(_ context.Context, g domain.Goal) (domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Goal{}, m.err
	}
	if g.ID == "" {
		g.ID = m.id("goal")
	}
	g.Active = true
	m.goals = append(m.goals, g)
	m.mutations++
	return g, nil
}

func (m *memStore) DeleteGoal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.goals {
		if g.ID == id {
			m.goals = append(m.goals[:i], m.goals[i+1:]...)
			m.mutations++
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) ActiveGoals(context.Context) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Goal, len(m.goals))
	copy(out, m.goals)
	return out, nil
}

func (m *memStore) InsertTask(_ context.Context, t domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Task{}, m.err
	}
	if t.ID == "" {
		t.ID = m.id("task")
	}
	m.tasks = append(m.tasks, t)
	m.mutations++
	return t, nil
}

func (m *memStore) CompleteTask(_ context.Context, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == id {
			m.tasks[i].Completed = true
			m.mutations++
			return m.tasks[i], nil
		}
	}
	return domain.Task{}, errors.New("not found")
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			m.mutations++
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) TasksByDate(_ context.Context, start, end time.Time) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Task
	for _, t := range m.tasks {
		if !t.DueAt.Before(start) && t.DueAt.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) addGoal(title string, minutes int) domain.Goal {
	g, _ := m.InsertGoal(context.Background(), domain.Goal{
		Title:        title,
		DailyMinutes: minutes,
		StartAt:      fixedNow,
		EndAt:        fixedNow.AddDate(0, 0, 90),
	})
	m.mutations--
	return g
}

func (m *memStore) addTask(title string, done bool) domain.Task {
	t, _ := m.InsertTask(context.Background(), domain.Task{
		Title:     title,
		DueAt:     domain.StartOfDay(fixedNow),
		Minutes:   30,
		Priority:  2,
		Completed: done,
	})
	m.mutations--
	return t
}

// stubModel is an Inference returning a fixed action or blocking until cancelled.
type stubModel struct {
	available bool
	action    Action
	err       error
	block     bool

	mu    sync.Mutex
	calls []Request
}

func (s *stubModel) Available() bool { return s.available }

func (s *stubModel) Generate(ctx context.Context, req Request) (Action, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return Action{}, ctx.Err()
	}
	return s.action, s.err
}

func (s *stubModel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
