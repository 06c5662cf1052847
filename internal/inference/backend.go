// Package inference answers chat messages the assistant's rules did not
// match. A Backend turns a prompt into raw model text; Model adds the
// load/unload lifecycle and decodes the reply into an assistant.Action.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"focusline/internal/config"
)

// Backend produces a completion for one prompt.
type Backend interface {
	Name() string
	Complete(ctx context.Context, p Prompt, maxTokens int) (string, error)
}

// Loader is implemented by backends that must reach a server before use.
type Loader interface {
	Load(ctx context.Context) error
}

var ErrNotLoaded = errors.New("model not loaded")

// New builds the model for cfg. It returns nil for the "none" backend.
func New(ctx context.Context, cfg config.Inference, logger *zap.Logger) (*Model, error) {
	var b Backend
	switch cfg.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendHeuristic, "":
		b = Heuristic{}
	case config.BackendLlamaCpp:
		b = NewLlamaCpp(cfg.LlamaCpp.BaseURL, cfg.LlamaCpp.Model, cfg.LlamaCpp.APIKey, httpTimeout(cfg.Timeout))
	case config.BackendGemini:
		b = NewGemini(cfg.Gemini.Model, cfg.Gemini.APIKeyEnv)
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.Backend)
	}
	return NewModel(b, logger), nil
}

func httpTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
