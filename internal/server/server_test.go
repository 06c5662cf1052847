package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"focusline/internal/app"
	"focusline/internal/config"
	"focusline/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	cfg := config.Default()
	a, err := app.Open(context.Background(), app.Options{
		Workspace: t.TempDir(),
		Config:    cfg,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	handler, err := New(Config{
		Engine:    a.Engine,
		Assistant: a.Assistant,
		Sessions:  a.Sessions,
		BasePath:  "/v0",
		Auth:      auth,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			a.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func openSession(t *testing.T, srv *testServer, headers map[string]string) SessionResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions", nil, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("open session status %d: %s", res.StatusCode, string(data))
	}
	var s SessionResponse
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	return s
}

func send(t *testing.T, srv *testServer, sessionID, msg string) ReplyResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+sessionID+"/messages", map[string]any{"message": msg}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("send %q status %d: %s", msg, res.StatusCode, string(data))
	}
	var r ReplyResponse
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	return r
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK || !bytes.Contains(data, []byte(`"ok"`)) {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
}

func TestChatCreatesAndCompletesTask(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	s := openSession(t, srv, nil)
	if s.UserID != LocalUser {
		t.Fatalf("expected local user, got %q", s.UserID)
	}

	r := send(t, srv, s.ID, "add task Review notes tomorrow")
	if r.Source != "rules" || r.ActionTaken == nil || r.ActionTaken.Kind != "TaskCreated" {
		t.Fatalf("unexpected create reply: %+v", r)
	}
	if r.ActionTaken.Details != "Due: tomorrow" {
		t.Fatalf("unexpected details %q", r.ActionTaken.Details)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/tasks?date=2026-03-11", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks: %d %s", res.StatusCode, string(data))
	}
	var tasks listTasks
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(tasks.Items) != 1 || tasks.Items[0].Title != "Review notes" {
		t.Fatalf("expected tomorrow's task, got %+v", tasks.Items)
	}

	// completion only looks at today's list
	r = send(t, srv, s.ID, "complete task Review notes")
	if r.ActionTaken != nil {
		t.Fatalf("expected no action for a task due tomorrow, got %+v", r.ActionTaken)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions/"+s.ID+"/transcript", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transcript: %d %s", res.StatusCode, string(data))
	}
	var turns listTurns
	if err := json.Unmarshal(data, &turns); err != nil {
		t.Fatalf("unmarshal transcript: %v", err)
	}
	if len(turns.Items) != 4 || turns.Items[0].Role != "user" || turns.Items[1].ActionTaken == nil {
		t.Fatalf("unexpected transcript: %+v", turns.Items)
	}
}

func TestCloseSession(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	s := openSession(t, srv, nil)
	res, data := doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/sessions/"+s.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("close: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/sessions/"+s.ID+"/messages", map[string]any{"message": "help"}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d %s", res.StatusCode, string(data))
	}
	var envelope apiError
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if envelope.Body.Code != "not_found" {
		t.Fatalf("unexpected error code %q", envelope.Body.Code)
	}
}

func TestGoalsAndProgress(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/goals", map[string]any{
		"title":           "Learn Kotlin",
		"duration_months": 6,
		"daily_minutes":   20,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create goal: %d %s", res.StatusCode, string(data))
	}
	var goal GoalResponse
	if err := json.Unmarshal(data, &goal); err != nil {
		t.Fatalf("unmarshal goal: %v", err)
	}
	if goal.DaysLeft != 180 || goal.Category != domain.DefaultGoalCategory {
		t.Fatalf("unexpected goal: %+v", goal)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks", map[string]any{
		"title":   "Kotlin koans",
		"goal_id": goal.ID,
		"minutes": 20,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+task.ID+"/complete", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/progress", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("progress: %d %s", res.StatusCode, string(data))
	}
	var progress ProgressResponse
	if err := json.Unmarshal(data, &progress); err != nil {
		t.Fatalf("unmarshal progress: %v", err)
	}
	if progress.Percent != 100 || len(progress.Goals) != 1 || !progress.Goals[0].TargetMet {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/goals/"+goal.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete goal: %d %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/goals/"+goal.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", res.StatusCode)
	}
}

func TestValidationErrors(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	for _, tc := range []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"blank goal title", http.MethodPost, "/v0/goals", map[string]any{"title": ""}, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/v0/tasks?date=tomorrow", nil, http.StatusBadRequest},
		{"unknown goal", http.MethodPost, "/v0/tasks", map[string]any{"title": "x", "goal_id": "nope"}, http.StatusNotFound},
		{"bad timer kind", http.MethodPost, "/v0/focus", map[string]any{"kind": "nap"}, http.StatusBadRequest},
		{"bad cursor", http.MethodGet, "/v0/events?cursor=abc", nil, http.StatusBadRequest},
		{"missing task", http.MethodPost, "/v0/tasks/missing/complete", nil, http.StatusNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, data := doJSON(t, client, tc.method, srv.URL+tc.path, tc.body, nil)
			if res.StatusCode != tc.want {
				t.Fatalf("want %d, got %d: %s", tc.want, res.StatusCode, string(data))
			}
			if !bytes.Contains(data, []byte(`"error"`)) {
				t.Fatalf("expected error envelope, got %s", string(data))
			}
		})
	}
}

func TestFocusUsageAndEvents(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/focus", map[string]any{"minutes": 25}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("log focus: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/usage", map[string]any{"app": "Instagram", "minutes": 30, "unlocks": 4}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("record usage: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/usage", nil, nil)
	var usage listUsage
	if err := json.Unmarshal(data, &usage); err != nil || len(usage.Items) != 1 {
		t.Fatalf("list usage: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?limit=1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Type != "usage.recorded" || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?limit=1&cursor="+page.NextCursor, nil, nil)
	var last paginatedEvents
	if err := json.Unmarshal(data, &last); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].Type != "focus.logged" || last.NextCursor != "" {
		t.Fatalf("unexpected second page: %d %+v", res.StatusCode, last)
	}
	if _, ok := last.Items[0].Payload["unlocks"]; ok {
		t.Fatalf("focus event payload carries usage fields: %+v", last.Items[0].Payload)
	}
}

func TestJWTAuth(t *testing.T) {
	secret := "test-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	res, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health must stay open, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/goals", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/goals", nil, map[string]string{"Authorization": "Bearer nonsense"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", res.StatusCode)
	}

	alice := signToken(t, secret, "alice")
	bob := signToken(t, secret, "bob")
	s := openSession(t, srv, map[string]string{"Authorization": "Bearer " + alice})
	if s.UserID != "alice" {
		t.Fatalf("expected alice, got %q", s.UserID)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/sessions/"+s.ID+"/transcript", nil, map[string]string{"Authorization": "Bearer " + bob})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("another user's session must be hidden, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/sessions/"+s.ID+"/transcript", nil, map[string]string{"Authorization": "Bearer " + alice})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("owner transcript: %d", res.StatusCode)
	}
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
