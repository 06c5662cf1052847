package focuslinesdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientChatFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "POST /v0/sessions":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"s1","user_id":"alice","started_at":"2026-03-10T09:00:00Z"}`))
		case "POST /v0/sessions/s1/messages":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "show my progress", body["message"])
			_, _ = w.Write([]byte(`{"message":"📊 Today's progress","source":"rules","action_taken":{"kind":"ListShown","item_name":"Progress","details":"0/0 tasks"}}`))
		case "DELETE /v0/sessions/s1":
			w.WriteHeader(http.StatusNoContent)
		case "GET /v0/goals":
			_, _ = w.Write([]byte(`{"items":[{"id":"g1","title":"Learn Go","daily_minutes":30,"days_left":89}]}`))
		case "GET /v0/progress":
			assert.Equal(t, "2026-03-10", r.URL.Query().Get("date"))
			_, _ = w.Write([]byte(`{"day":"2026-03-10","tasks_total":2,"tasks_completed":1,"percent":50,"goals":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	c.BearerToken = "tok"
	ctx := context.Background()

	s, err := c.OpenSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID)

	reply, err := c.Send(ctx, s.ID, "show my progress")
	require.NoError(t, err)
	require.NotNil(t, reply.ActionTaken)
	assert.Equal(t, "ListShown", reply.ActionTaken.Kind)

	goals, err := c.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 89, goals[0].DaysLeft)

	p, err := c.Progress(ctx, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 50, p.Percent)

	require.NoError(t, c.CloseSession(ctx, s.ID))
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found","message":"session not found"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Send(context.Background(), "gone", "help")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "not_found")
}
