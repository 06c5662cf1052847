package inference

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"focusline/internal/assistant"
	"focusline/internal/logging"
)

// Model wraps a Backend with a loaded flag. Generate fails with ErrNotLoaded
// until Load succeeds. Model implements assistant.Inference.
type Model struct {
	backend Backend
	logger  *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

func NewModel(b Backend, logger *zap.Logger) *Model {
	return &Model{backend: b, logger: logging.OrNop(logger)}
}

func (m *Model) Backend() string { return m.backend.Name() }

// Load readies the backend. Loading twice is a no-op.
func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	if l, ok := m.backend.(Loader); ok {
		if err := l.Load(ctx); err != nil {
			return fmt.Errorf("load %s: %w", m.backend.Name(), err)
		}
	}
	m.loaded = true
	m.logger.Info("inference model loaded", zap.String("backend", m.backend.Name()))
	return nil
}

func (m *Model) Unload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		m.logger.Info("inference model unloaded", zap.String("backend", m.backend.Name()))
	}
	m.loaded = false
}

func (m *Model) Available() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Model) Generate(ctx context.Context, req assistant.Request) (assistant.Action, error) {
	if !m.Available() {
		return assistant.Action{}, ErrNotLoaded
	}
	raw, err := m.backend.Complete(ctx, BuildPrompt(req), req.MaxTokens)
	if err != nil {
		return assistant.Action{}, err
	}
	a, err := Decode(raw)
	if err != nil {
		m.logger.Debug("undecodable model output", zap.String("backend", m.backend.Name()), zap.String("raw", raw))
		return assistant.Action{}, err
	}
	return a, nil
}
