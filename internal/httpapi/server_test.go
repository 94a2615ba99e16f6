package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/sprintcrew/internal/app"
	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/broadcast"
	"github.com/runoshun/sprintcrew/internal/infra/cache"
	"github.com/runoshun/sprintcrew/internal/infra/external"
	"github.com/runoshun/sprintcrew/internal/infra/jsonstore"
	"github.com/runoshun/sprintcrew/internal/testutil"
	"github.com/runoshun/sprintcrew/internal/usecase/shared"
)

var tokens = map[string]string{
	"alice": "t-alice",
	"bob":   "t-bob",
	"carol": "t-carol",
	"dave":  "t-dave",
	"eve":   "t-eve",
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *shared.Pagination `json:"pagination"`
	Count      *int               `json:"count"`
	Message    string             `json:"message"`
	Success    bool               `json:"success"`
}

type env struct {
	t       *testing.T
	store   *testutil.FaultyStore
	hub     *broadcast.Hub
	handler http.Handler
	server  *Server
}

func newEnv(t *testing.T, mode string) *env {
	t.Helper()
	js := jsonstore.New(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, js.Initialize())
	store := &testutil.FaultyStore{Store: js}

	cfg := domain.NewDefaultConfig()
	cfg.Server.Mode = mode
	for user, token := range tokens {
		cfg.Auth.Tokens[token] = user
	}

	c := cache.New(cfg.Cache, nil)
	t.Cleanup(c.Close)
	hub := broadcast.NewHub(broadcast.DefaultBuffer, nil)
	t.Cleanup(hub.Close)

	container := app.NewWithDeps(app.Config{}, app.Deps{
		Store:     store,
		Cache:     c,
		Queue:     &testutil.InlineQueue{},
		Auth:      external.NewTokenAuthenticator(cfg.Auth),
		Audit:     &testutil.MockAuditLogger{},
		Notifier:  &testutil.MockNotifier{},
		Hub:       hub,
		AppConfig: cfg,
	})
	srv := New(container)
	srv.heartbeat = 50 * time.Millisecond
	return &env{t: t, store: store, hub: hub, handler: srv.Handler(), server: srv}
}

func (e *env) do(method, path, user string, body any) (int, envelope) {
	e.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+tokens[user])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (e *env) project() *domain.Project {
	e.t.Helper()
	code, res := e.do(http.MethodPost, "/projects", "alice", map[string]any{
		"name": "Checkout",
		"members": []map[string]string{
			{"userId": "bob", "role": "manager"},
			{"userId": "carol", "role": "member"},
			{"userId": "dave", "role": "viewer"},
		},
	})
	require.Equal(e.t, http.StatusCreated, code, res.Message)
	return decode[*domain.Project](e.t, res.Data)
}

func (e *env) sprint(projectID, name string) *domain.Sprint {
	e.t.Helper()
	code, res := e.do(http.MethodPost, "/projects/"+projectID+"/sprints", "bob", map[string]any{"name": name})
	require.Equal(e.t, http.StatusCreated, code, res.Message)
	return decode[*domain.Sprint](e.t, res.Data)
}

func (e *env) task(projectID, title string) *domain.Task {
	e.t.Helper()
	code, res := e.do(http.MethodPost, "/projects/"+projectID+"/tasks", "carol", map[string]any{"title": title})
	require.Equal(e.t, http.StatusCreated, code, res.Message)
	return decode[*domain.Task](e.t, res.Data)
}

func TestHealthzAndMetricsNeedNoAuth(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)

	code, res := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sprintcrew_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)

	code, res := e.do(http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, res.Success)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSprintProgressFlow(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	s := e.sprint(p.ID, "Sprint 1")
	task := e.task(p.ID, "Write docs")
	assert.Equal(t, "ToDo", task.Status)

	code, res := e.do(http.MethodPost, "/sprints/"+s.ID+"/tasks/"+task.ID, "carol", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Equal(t, 0, decode[*domain.Sprint](t, res.Data).Progress)

	code, res = e.do(http.MethodPut, "/tasks/"+task.ID, "carol", map[string]any{"status": "Done"})
	require.Equal(t, http.StatusOK, code, res.Message)

	code, res = e.do(http.MethodGet, "/sprints/"+s.ID, "dave", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	view := decode[struct {
		Tasks    []*domain.Task `json:"tasks"`
		Progress int            `json:"progress"`
	}](t, res.Data)
	assert.Equal(t, 100, view.Progress)
	require.Len(t, view.Tasks, 1)
	assert.Equal(t, task.ID, view.Tasks[0].ID)

	code, res = e.do(http.MethodPost, "/sprints/"+s.ID+"/recalculate-progress", "carol", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	recalc := decode[struct {
		Previous int `json:"previous"`
		Progress int `json:"progress"`
	}](t, res.Data)
	assert.Equal(t, 100, recalc.Previous)
	assert.Equal(t, 100, recalc.Progress)

	code, res = e.do(http.MethodDelete, "/sprints/"+s.ID+"/tasks/"+task.ID, "carol", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.Empty(t, decode[*domain.Sprint](t, res.Data).TaskIDs)
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	other := e.project()
	s := e.sprint(p.ID, "Sprint 1")
	foreign := e.task(other.ID, "Elsewhere")
	missing := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	tests := []struct {
		body   any
		name   string
		method string
		path   string
		user   string
		want   int
	}{
		{name: "viewer creates sprint", method: http.MethodPost, path: "/projects/" + p.ID + "/sprints", user: "dave", body: map[string]any{"name": "Nope"}, want: http.StatusForbidden},
		{name: "member creates sprint", method: http.MethodPost, path: "/projects/" + p.ID + "/sprints", user: "carol", body: map[string]any{"name": "Nope"}, want: http.StatusForbidden},
		{name: "stranger reads sprint", method: http.MethodGet, path: "/sprints/" + s.ID, user: "eve", want: http.StatusForbidden},
		{name: "short name", method: http.MethodPost, path: "/projects/" + p.ID + "/sprints", user: "bob", body: map[string]any{"name": "ab"}, want: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/projects/" + p.ID + "/sprints", user: "bob", body: "{", want: http.StatusBadRequest},
		{name: "malformed id", method: http.MethodGet, path: "/sprints/not-a-uuid", user: "bob", want: http.StatusBadRequest},
		{name: "missing sprint", method: http.MethodGet, path: "/sprints/" + missing, user: "bob", want: http.StatusNotFound},
		{name: "cross-project add", method: http.MethodPost, path: "/sprints/" + s.ID + "/tasks/" + foreign.ID, user: "alice", want: http.StatusBadRequest},
		{name: "status not settable", method: http.MethodPut, path: "/sprints/" + s.ID, user: "bob", body: map[string]any{"status": "Active"}, want: http.StatusBadRequest},
		{name: "bad page", method: http.MethodGet, path: "/projects/" + p.ID + "/sprints?page=x", user: "bob", want: http.StatusBadRequest},
		{name: "limit too large", method: http.MethodGet, path: "/projects/" + p.ID + "/sprints?limit=500", user: "bob", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := e.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, code, res.Message)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestInternalErrorsAreSanitizedInProduction(t *testing.T) {
	for _, tt := range []struct {
		mode   string
		detail bool
	}{
		{mode: domain.ModeProduction, detail: false},
		{mode: domain.ModeDevelopment, detail: true},
	} {
		t.Run(tt.mode, func(t *testing.T) {
			e := newEnv(t, tt.mode)
			p := e.project()
			e.store.FailSaveSprint = true

			code, res := e.do(http.MethodPost, "/projects/"+p.ID+"/sprints", "bob", map[string]any{"name": "Sprint 1"})
			assert.Equal(t, http.StatusInternalServerError, code)
			if tt.detail {
				assert.Contains(t, res.Message, testutil.ErrInjected.Error())
			} else {
				assert.Equal(t, "internal server error", res.Message)
			}
		})
	}
}

func TestListSprintsPagination(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	e.sprint(p.ID, "Alpha")
	e.sprint(p.ID, "Beta")
	e.sprint(p.ID, "Gamma")

	code, res := e.do(http.MethodGet, "/projects/"+p.ID+"/sprints?limit=2&page=2", "dave", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	require.NotNil(t, res.Count)
	assert.Equal(t, 1, *res.Count)
	assert.Equal(t, &shared.Pagination{Total: 3, Page: 2, Limit: 2, Pages: 2}, res.Pagination)

	code, res = e.do(http.MethodGet, "/projects/"+p.ID+"/sprints?search=bet", "dave", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	sprints := decode[[]*domain.Sprint](t, res.Data)
	require.Len(t, sprints, 1)
	assert.Equal(t, "Beta", sprints[0].Name)
}

func TestProjectEndpoints(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	e.sprint(p.ID, "Sprint 1")

	code, res := e.do(http.MethodGet, "/projects", "carol", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, *res.Count)

	code, _ = e.do(http.MethodDelete, "/projects/"+p.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = e.do(http.MethodDelete, "/projects/"+p.ID, "alice", nil)
	require.Equal(t, http.StatusOK, code, res.Message)
	assert.JSONEq(t, `{"deletedSprints":1,"deletedTasks":0}`, string(res.Data))

	code, _ = e.do(http.MethodGet, "/projects/"+p.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestImportTasks(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	s := e.sprint(p.ID, "Sprint 1")

	content := "---\ntitle: First\nsprint: Sprint 1\n---\n\n---\ntitle: Second\nstatus: Done\nsprint: " + s.ID + "\n---\n"
	code, res := e.do(http.MethodPost, "/projects/"+p.ID+"/tasks/import", "carol", content)
	require.Equal(t, http.StatusCreated, code, res.Message)

	code, res = e.do(http.MethodGet, "/sprints/"+s.ID, "carol", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 50, decode[*domain.Sprint](t, res.Data).Progress)
}

func TestStreamEvents(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()
	ts := httptest.NewServer(e.handler)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/rooms/project/"+p.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokens["dave"])

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool {
		return e.hub.Subscribers(domain.ProjectRoom(p.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	e.sprint(p.ID, "Sprint 1")

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, found := strings.CutPrefix(scanner.Text(), "event:"); found {
			events = append(events, strings.TrimSpace(name))
			if strings.TrimSpace(name) == domain.EventSprintCreated {
				break
			}
		}
	}
	assert.Equal(t, []string{"subscribed", domain.EventSprintCreated}, events)
}

func TestStreamEvents_Authorization(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	p := e.project()

	code, _ := e.do(http.MethodGet, "/rooms/project/"+p.ID+"/events", "eve", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(http.MethodGet, "/rooms/user/bob/events", "alice", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(http.MethodGet, "/rooms/team/x/events", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	e := newEnv(t, domain.ModeProduction)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.server.Run(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
