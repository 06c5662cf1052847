package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"focusline/internal/app"
	"focusline/internal/config"
)

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"", "2026-03-10"},
		{"Today", "2026-03-10"},
		{"tomorrow", "2026-03-11"},
		{"next-week", "2026-03-17"},
		{"next_week", "2026-03-17"},
		{"2026-04-01", "2026-04-01"},
	}
	for _, tt := range tests {
		got, err := parseDue(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want+"T00:00:00Z", got.Format(time.RFC3339), tt.in)
	}
	_, err := parseDue("someday", now)
	assert.Error(t, err)
}

func TestChatLoop(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.Backend = config.BackendNone
	a, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir(), Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer a.Close()

	in := strings.NewReader("create goal Learn Go in 2 months\nshow my goals\nexit\nadd task never reached\n")
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), a, in, &out))

	transcript := out.String()
	assert.Contains(t, transcript, "🎯 Goal created")
	assert.Contains(t, transcript, "1. Learn Go (30 min/day)")
	assert.Equal(t, 0, a.Sessions.Len())

	tasks, err := a.Engine.TodayTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
