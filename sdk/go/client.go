package focuslinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Focusline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

// ActionTaken describes what a chat message changed or showed.
type ActionTaken struct {
	Kind     string `json:"kind"`
	ItemName string `json:"item_name"`
	Details  string `json:"details,omitempty"`
}

type Reply struct {
	Message     string       `json:"message"`
	Source      string       `json:"source"`
	ActionTaken *ActionTaken `json:"action_taken,omitempty"`
}

// Goal represents the API goal model (partial).
type Goal struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	EndAt        time.Time `json:"end_at"`
	DailyMinutes int       `json:"daily_minutes"`
	DaysLeft     int       `json:"days_left"`
}

type GoalProgress struct {
	GoalID       string `json:"goal_id"`
	Title        string `json:"title"`
	DailyMinutes int    `json:"daily_minutes"`
	MinutesDone  int    `json:"minutes_done"`
	TargetMet    bool   `json:"target_met"`
	DaysLeft     int    `json:"days_left"`
}

type Progress struct {
	Day            string         `json:"day"`
	TasksTotal     int            `json:"tasks_total"`
	TasksCompleted int            `json:"tasks_completed"`
	Percent        int            `json:"percent"`
	FocusMinutes   int            `json:"focus_minutes"`
	ScreenMinutes  int            `json:"screen_minutes"`
	Unlocks        int            `json:"unlocks"`
	Goals          []GoalProgress `json:"goals"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// OpenSession starts a chat session for the authenticated user.
func (c *Client) OpenSession(ctx context.Context) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "sessions", nil, &resp)
	return resp, err
}

func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Send posts a chat message to a session and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, sessionID, message string) (Reply, error) {
	var resp Reply
	endpoint := fmt.Sprintf("sessions/%s/messages", url.PathEscape(sessionID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"message": message}, &resp)
	return resp, err
}

// Goals lists active goals.
func (c *Client) Goals(ctx context.Context) ([]Goal, error) {
	var resp struct {
		Items []Goal `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "goals", nil, &resp)
	return resp.Items, err
}

// Progress returns the summary for day (YYYY-MM-DD); empty means today.
func (c *Client) Progress(ctx context.Context, day string) (Progress, error) {
	endpoint := "progress"
	if day != "" {
		endpoint += "?date=" + url.QueryEscape(day)
	}
	var resp Progress
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
