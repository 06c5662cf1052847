package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"focusline/internal/assistant"
	"focusline/internal/domain"
	"focusline/internal/engine"
	"focusline/internal/logging"
	"focusline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine    engine.Engine
	Assistant *assistant.Assistant
	Sessions  *assistant.Sessions
	BasePath  string
	Auth      AuthConfig
	Logger    *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"session_id\":\"3f2c\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Focusline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Assistant == nil || cfg.Sessions == nil {
		return nil, errors.New("server: assistant and sessions are required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := logging.OrNop(cfg.Logger)
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = log
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Focusline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerSessions(group, cfg.Assistant, cfg.Sessions)
	registerGoals(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerProgress(group, cfg.Engine)
	registerFocus(group, cfg.Engine)
	registerUsage(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath, cfg.Auth.enabled())

	return router, nil
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"),
		strings.Contains(lowered, " must "),
		strings.Contains(lowered, "precedes"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string, secured bool) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			if secured {
				applyAuthSecurity(oas, basePath)
			}
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Focusline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      When a JWT secret is configured, authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// ownedSession returns the open session id if it belongs to the caller.
// Sessions of other users are reported as missing.
func ownedSession(ctx context.Context, sessions *assistant.Sessions, id string) (*assistant.Session, huma.StatusError) {
	userID, authErr := userIDFromContext(ctx)
	if authErr != nil {
		return nil, authErr
	}
	s, ok := sessions.Get(id)
	if !ok || s.UserID != userID {
		return nil, newAPIError(http.StatusNotFound, "not_found", "session not found", map[string]any{"session_id": id})
	}
	return s, nil
}

func registerSessions(api huma.API, a *assistant.Assistant, sessions *assistant.Sessions) {
	type sessionPath struct {
		SessionID string `path:"session_id"`
	}
	huma.Register(api, huma.Operation{
		OperationID:   "open-session",
		Method:        http.MethodPost,
		Path:          "/sessions",
		Summary:       "Open a chat session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s := sessions.Open(userID)
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: sessionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "close-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{session_id}",
		Summary:       "Close a chat session",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct{}, error) {
		s, err := ownedSession(ctx, sessions, input.SessionID)
		if err != nil {
			return nil, err
		}
		sessions.Close(s.ID)
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-message",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/messages",
		Summary:     "Send a chat message and get the assistant's reply",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string             `path:"session_id"`
		Body      SendMessageRequest `json:"body"`
	}) (*struct {
		Body ReplyResponse `json:"body"`
	}, error) {
		s, err := ownedSession(ctx, sessions, input.SessionID)
		if err != nil {
			return nil, err
		}
		reply := a.Handle(ctx, s, input.Body.Message)
		return &struct {
			Body ReplyResponse `json:"body"`
		}{Body: replyResponse(reply)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-transcript",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/transcript",
		Summary:     "Read a session transcript",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *sessionPath) (*struct {
		Body listTurns `json:"body"`
	}, error) {
		s, err := ownedSession(ctx, sessions, input.SessionID)
		if err != nil {
			return nil, err
		}
		return &struct {
			Body listTurns `json:"body"`
		}{Body: listTurns{Items: turnResponses(s.Transcript())}}, nil
	})
}

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List active goals",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body listGoals `json:"body"`
	}, error) {
		goals, err := e.ActiveGoals(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		now := clock(e)
		resp := listGoals{Items: []GoalResponse{}}
		for _, g := range goals {
			resp.Items = append(resp.Items, goalResponse(g, now))
		}
		return &struct {
			Body listGoals `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*struct {
		Body GoalResponse `json:"body"`
	}, error) {
		months := input.Body.DurationMonths
		if months <= 0 {
			months = assistant.DefaultDurationMonths
		}
		daily := input.Body.DailyMinutes
		if daily <= 0 {
			daily = assistant.DefaultDailyMinutes
		}
		now := clock(e)
		g, err := e.InsertGoal(ctx, domain.Goal{
			Title:        input.Body.Title,
			Category:     input.Body.Category,
			StartAt:      now,
			EndAt:        now.AddDate(0, 0, months*30),
			DailyMinutes: daily,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body GoalResponse `json:"body"`
		}{Body: goalResponse(g, now)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-goal",
		Method:        http.MethodDelete,
		Path:          "/goals/{goal_id}",
		Summary:       "Delete goal",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		GoalID string `path:"goal_id"`
	}) (*struct{}, error) {
		if err := e.DeleteGoal(ctx, input.GoalID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks due on a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" doc:"YYYY-MM-DD; defaults to today"`
	}) (*struct {
		Body listTasks `json:"body"`
	}, error) {
		day, apiErr := parseDay(input.Date, clock(e))
		if apiErr != nil {
			return nil, apiErr
		}
		tasks, err := e.TasksByDate(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, handleError(err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return &struct {
			Body listTasks `json:"body"`
		}{Body: listTasks{Items: tasks}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		due, apiErr := parseDay(input.Body.DueDate, clock(e))
		if apiErr != nil {
			return nil, apiErr
		}
		minutes := input.Body.Minutes
		if minutes == 0 {
			minutes = assistant.DefaultTaskMinutes
		}
		t := domain.Task{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			DueAt:       due,
			Minutes:     minutes,
			Priority:    input.Body.Priority,
		}
		if input.Body.GoalID != "" {
			goalID := input.Body.GoalID
			t.GoalID = &goalID
		}
		created, err := e.InsertTask(ctx, t)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: created}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/complete",
		Summary:     "Complete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CompleteTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerProgress(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "progress",
		Method:      http.MethodGet,
		Path:        "/progress",
		Summary:     "Daily progress summary",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" doc:"YYYY-MM-DD; defaults to today"`
	}) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		day, apiErr := parseDay(input.Date, clock(e))
		if apiErr != nil {
			return nil, apiErr
		}
		s, err := e.DailySummary(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: progressResponse(s)}, nil
	})
}

func registerFocus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-focus",
		Method:        http.MethodPost,
		Path:          "/focus",
		Summary:       "Log a finished timer session",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body LogFocusRequest `json:"body"`
	}) (*struct {
		Body domain.TimerSession `json:"body"`
	}, error) {
		s, err := e.LogFocus(ctx, engine.FocusOptions{
			GoalID:      input.Body.GoalID,
			Kind:        domain.TimerKind(input.Body.Kind),
			Minutes:     input.Body.Minutes,
			Interrupted: input.Body.Interrupted,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TimerSession `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-focus",
		Method:      http.MethodGet,
		Path:        "/focus",
		Summary:     "List timer sessions started on a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" doc:"YYYY-MM-DD; defaults to today"`
	}) (*struct {
		Body listFocus `json:"body"`
	}, error) {
		day, apiErr := parseDay(input.Date, clock(e))
		if apiErr != nil {
			return nil, apiErr
		}
		items, err := e.FocusSessions(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.TimerSession{}
		}
		return &struct {
			Body listFocus `json:"body"`
		}{Body: listFocus{Items: items}}, nil
	})
}

func registerUsage(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "record-usage",
		Method:      http.MethodPost,
		Path:        "/usage",
		Summary:     "Add screen time for an app to today's totals",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body RecordUsageRequest `json:"body"`
	}) (*struct {
		Body domain.PhoneUsage `json:"body"`
	}, error) {
		u, err := e.RecordUsage(ctx, input.Body.App, input.Body.Minutes, input.Body.Unlocks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PhoneUsage `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-usage",
		Method:      http.MethodGet,
		Path:        "/usage",
		Summary:     "List phone usage for a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date" doc:"YYYY-MM-DD; defaults to today"`
	}) (*struct {
		Body listUsage `json:"body"`
	}, error) {
		day, apiErr := parseDay(input.Date, clock(e))
		if apiErr != nil {
			return nil, apiErr
		}
		items, err := e.Usage(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.PhoneUsage{}
		}
		return &struct {
			Body listUsage `json:"body"`
		}{Body: listUsage{Items: items}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"goal,task,timer_session,phone_usage"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit+1, cursorID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func clock(e engine.Engine) time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// parseDay returns midnight of raw (YYYY-MM-DD) in now's location, or of now
// when raw is empty.
func parseDay(raw string, now time.Time) (time.Time, huma.StatusError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.StartOfDay(now), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, now.Location())
	if err != nil {
		return time.Time{}, newAPIError(http.StatusBadRequest, "bad_request", "invalid date, want YYYY-MM-DD", map[string]any{"date": raw})
	}
	return t, nil
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
