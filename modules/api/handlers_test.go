package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/todo-service/config"
	domain "github.com/example/todo-service/domain/todo"
	"github.com/example/todo-service/modules/persistence"
	"github.com/example/todo-service/modules/todo"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// servicePort calls a todo.Service directly, without the service container.
type servicePort struct {
	svc *todo.Service
}

func (p servicePort) CreateTodo(ctx context.Context, in domain.CreateInput) (*domain.Todo, error) {
	return p.svc.Create(ctx, in)
}
func (p servicePort) ListTodos(ctx context.Context) ([]*domain.Todo, error) {
	return p.svc.List(ctx)
}
func (p servicePort) UpdateTodo(ctx context.Context, id string, in domain.UpdateInput) (*domain.Todo, error) {
	return p.svc.Update(ctx, id, in)
}
func (p servicePort) DeleteTodo(ctx context.Context, id string) (*domain.Todo, error) {
	return p.svc.Delete(ctx, id)
}

// errPort fails every call with err.
type errPort struct {
	err error
}

func (p errPort) CreateTodo(context.Context, domain.CreateInput) (*domain.Todo, error) {
	return nil, p.err
}
func (p errPort) ListTodos(context.Context) ([]*domain.Todo, error) {
	return nil, p.err
}
func (p errPort) UpdateTodo(context.Context, string, domain.UpdateInput) (*domain.Todo, error) {
	return nil, p.err
}
func (p errPort) DeleteTodo(context.Context, string) (*domain.Todo, error) {
	return nil, p.err
}

type stubStatus struct {
	resp *persistence.StatusResponse
	err  error
}

func (s stubStatus) Status(context.Context) (*persistence.StatusResponse, error) {
	return s.resp, s.err
}

type testServer struct {
	app     *fiber.App
	tracker *persistence.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tracker := persistence.NewTracker()
	tracker.BeginOpen()
	tracker.Observe(persistence.Connected)
	gate := persistence.NewGate(tracker)

	svc := todo.NewService(gate, persistence.NewMemoryStore(nil), persistence.IsValidID, time.Second, &mockLogger{})

	m := NewModule(config.HTTPConfig{CORSOrigins: "*"}, &mockLogger{})
	m.todos = servicePort{svc: svc}
	m.SetGate(gate)
	return &testServer{app: m.newApp(), tracker: tracker}
}

func newPortServer(t *testing.T, port todo.TodoPort) *fiber.App {
	t.Helper()
	m := NewModule(config.HTTPConfig{CORSOrigins: "*"}, &mockLogger{})
	m.todos = port
	return m.newApp()
}

type rawEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   string          `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, rawEnvelope) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env rawEnvelope
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	return resp.StatusCode, env
}

func decodeTodo(t *testing.T, env rawEnvelope) domain.Todo {
	t.Helper()
	var td domain.Todo
	require.NoError(t, json.Unmarshal(env.Data, &td))
	return td
}

func TestAPI_CreateTodo(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s.app, "POST", "/api/todos", `{"title":"  Buy milk ","description":" 2L "}`)
	assert.Equal(t, fiber.StatusCreated, code)
	assert.True(t, env.Success)
	assert.Equal(t, "Todo created successfully.", env.Message)
	assert.Empty(t, env.Error)

	td := decodeTodo(t, env)
	assert.Equal(t, "Buy milk", td.Title)
	assert.Equal(t, "2L", td.Description)
	assert.False(t, td.Completed)
	assert.Len(t, td.ID, 24)
}

func TestAPI_CreateTodoValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"empty object", `{}`},
		{"blank title", `{"title":"   "}`},
		{"null title", `{"title":null}`},
		{"wrong title type", `{"title":42}`},
		{"wrong completed type", `{"title":"x","completed":"yes"}`},
		{"malformed json", `{"title":`},
		{"array body", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s.app, "POST", "/api/todos", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, env.Data)
		})
	}
}

func TestAPI_ListTodos(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s.app, "GET", "/api/todos", "")
	assert.Equal(t, fiber.StatusOK, code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 0, *env.Count)
	assert.JSONEq(t, `[]`, string(env.Data))

	for _, title := range []string{"A", "B", "C"} {
		code, _ := do(t, s.app, "POST", "/api/todos", `{"title":"`+title+`"}`)
		require.Equal(t, fiber.StatusCreated, code)
		time.Sleep(2 * time.Millisecond)
	}

	code, env = do(t, s.app, "GET", "/api/todos", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Todos retrieved successfully.", env.Message)
	require.NotNil(t, env.Count)
	assert.Equal(t, 3, *env.Count)

	var todos []domain.Todo
	require.NoError(t, json.Unmarshal(env.Data, &todos))
	require.Len(t, todos, 3)
	assert.Equal(t, "C", todos[0].Title)
	assert.Equal(t, "B", todos[1].Title)
	assert.Equal(t, "A", todos[2].Title)
}

func TestAPI_UpdateTodo(t *testing.T) {
	s := newTestServer(t)

	_, env := do(t, s.app, "POST", "/api/todos", `{"title":"Write report","description":"Q1"}`)
	created := decodeTodo(t, env)

	code, env := do(t, s.app, "PUT", "/api/todos/"+created.ID, `{"completed":true}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Todo updated successfully.", env.Message)

	updated := decodeTodo(t, env)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Write report", updated.Title)
	assert.Equal(t, "Q1", updated.Description)
	assert.True(t, updated.Completed)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func TestAPI_UpdateTodoErrors(t *testing.T) {
	s := newTestServer(t)

	_, env := do(t, s.app, "POST", "/api/todos", `{"title":"Exists"}`)
	created := decodeTodo(t, env)
	unknown := strings.Repeat("0", 24)

	tests := []struct {
		name    string
		path    string
		body    string
		code    int
		message string
	}{
		{"malformed id", "/api/todos/abc", `{"title":"x"}`, fiber.StatusBadRequest, "Invalid ID format."},
		{"id prefix", "/api/todos/" + created.ID[:23], `{"title":"x"}`, fiber.StatusBadRequest, "Invalid ID format."},
		{"unknown id", "/api/todos/" + unknown, `{"title":"x"}`, fiber.StatusNotFound, "Todo not found."},
		{"unknown id with blank title", "/api/todos/" + unknown, `{"title":" "}`, fiber.StatusNotFound, "Todo not found."},
		{"blank title", "/api/todos/" + created.ID, `{"title":"  "}`, fiber.StatusBadRequest, "Title cannot be empty."},
		{"null completed", "/api/todos/" + created.ID, `{"completed":null}`, fiber.StatusBadRequest, "Completed must be a boolean."},
		{"wrong type", "/api/todos/" + created.ID, `{"completed":"true"}`, fiber.StatusBadRequest, "Invalid request body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s.app, "PUT", tt.path, tt.body)
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAPI_DeleteTodo(t *testing.T) {
	s := newTestServer(t)

	_, env := do(t, s.app, "POST", "/api/todos", `{"title":"Temp"}`)
	created := decodeTodo(t, env)

	code, env := do(t, s.app, "DELETE", "/api/todos/"+created.ID, "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Todo deleted successfully.", env.Message)
	assert.Equal(t, created.ID, decodeTodo(t, env).ID)

	code, env = do(t, s.app, "DELETE", "/api/todos/"+created.ID, "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "Todo not found.", env.Message)

	code, _ = do(t, s.app, "DELETE", "/api/todos/not-an-id", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestAPI_StorageUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.tracker.Observe(persistence.Disconnected)

	requests := []struct{ method, path, body string }{
		{"GET", "/api/todos", ""},
		{"POST", "/api/todos", `{"title":"x"}`},
		{"PUT", "/api/todos/" + strings.Repeat("a", 24), `{"title":"x"}`},
		{"DELETE", "/api/todos/bad", ""},
	}

	for _, r := range requests {
		code, env := do(t, s.app, r.method, r.path, r.body)
		assert.Equal(t, fiber.StatusServiceUnavailable, code, r.method)
		assert.False(t, env.Success)
		assert.Equal(t, "Database is unavailable. Please try again later.", env.Message)
		assert.Contains(t, env.Error, "disconnected")
	}
}

func TestAPI_StorageFailureStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"transient", domain.StorageFailure("Failed to list todos.", true, errors.New("timeout")), fiber.StatusServiceUnavailable},
		{"permanent", domain.StorageFailure("Failed to list todos.", false, errors.New("bad")), fiber.StatusInternalServerError},
		{"unavailable", domain.Unavailable("connecting"), fiber.StatusServiceUnavailable},
		{"transport", errors.New("list service call failed: nats: timeout"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newPortServer(t, errPort{err: tt.err})

			code, env := do(t, app, "GET", "/api/todos", "")
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
			assert.NotEmpty(t, env.Error)
			assert.Nil(t, env.Count)
		})
	}
}

func TestAPI_Status(t *testing.T) {
	m := NewModule(config.HTTPConfig{CORSOrigins: "*"}, &mockLogger{})
	m.todos = errPort{}
	m.storage = stubStatus{resp: &persistence.StatusResponse{Driver: "mongo", State: "connecting"}}
	app := m.newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "connecting", body.Database)
	assert.NotEmpty(t, body.Message)

	m.storage = stubStatus{err: errors.New("no responders")}
	app = m.newApp()
	resp, err = app.Test(httptest.NewRequest("GET", "/status", nil), -1)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unknown", body.Database)
}

func TestAPI_RequestIDAndCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/todos", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestAPI_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	code, env := do(t, s.app, "GET", "/nope", "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestAPI_ServesStaticClient(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>todos</html>"), 0o600))

	m := NewModule(config.HTTPConfig{CORSOrigins: "*", StaticDir: dir}, &mockLogger{})
	m.todos = errPort{}
	app := m.newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "todos")
}
