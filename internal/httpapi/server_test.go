package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/ralphd/internal/automation"
	"github.com/ShayCichocki/ralphd/internal/broadcast"
	"github.com/ShayCichocki/ralphd/internal/control"
	"github.com/ShayCichocki/ralphd/internal/queue"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// fakePlane returns canned values and records what the handlers passed in.
// When err is set every method returns it.
type fakePlane struct {
	hub *broadcast.Hub
	err error

	thread      *models.Thread
	threads     []models.Thread
	run         *models.Run
	events      []models.Event
	comment     *models.ReviewComment
	comments    []models.ReviewComment
	automation  *models.Automation
	automations []models.Automation
	diff        string

	gotThreadID         string
	gotRunID            string
	gotAutomationID     string
	gotAction           string
	gotLimit            int
	gotEnabled          bool
	gotCommentIDs       []string
	gotCreateThread     control.CreateThreadRequest
	gotCreateRun        control.CreateRunRequest
	gotCreateComment    control.CreateCommentRequest
	gotCreateAutomation control.CreateAutomationRequest
}

func (f *fakePlane) CreateThread(_ context.Context, req control.CreateThreadRequest) (*models.Thread, error) {
	f.gotCreateThread = req
	return f.thread, f.err
}

func (f *fakePlane) ListThreads() ([]models.Thread, error) { return f.threads, f.err }

func (f *fakePlane) GetThread(id string) (*models.Thread, error) {
	f.gotThreadID = id
	return f.thread, f.err
}

func (f *fakePlane) ThreadEvents(threadID string, limit int) ([]models.Event, error) {
	f.gotThreadID = threadID
	f.gotLimit = limit
	return f.events, f.err
}

func (f *fakePlane) ThreadDiff(_ context.Context, threadID string) (string, error) {
	f.gotThreadID = threadID
	return f.diff, f.err
}

func (f *fakePlane) CreateRun(threadID string, req control.CreateRunRequest) (*models.Run, error) {
	f.gotThreadID = threadID
	f.gotCreateRun = req
	return f.run, f.err
}

func (f *fakePlane) GetRun(id string) (*models.Run, error) {
	f.gotRunID = id
	return f.run, f.err
}

func (f *fakePlane) ControlRun(runID, action string) (*models.Run, error) {
	f.gotRunID = runID
	f.gotAction = action
	return f.run, f.err
}

func (f *fakePlane) CreateComment(threadID string, req control.CreateCommentRequest) (*models.ReviewComment, error) {
	f.gotThreadID = threadID
	f.gotCreateComment = req
	return f.comment, f.err
}

func (f *fakePlane) ListComments(threadID string) ([]models.ReviewComment, error) {
	f.gotThreadID = threadID
	return f.comments, f.err
}

func (f *fakePlane) RerunFromComments(threadID string, commentIDs []string) (*models.Run, error) {
	f.gotThreadID = threadID
	f.gotCommentIDs = commentIDs
	return f.run, f.err
}

func (f *fakePlane) CreateAutomation(req control.CreateAutomationRequest) (*models.Automation, error) {
	f.gotCreateAutomation = req
	return f.automation, f.err
}

func (f *fakePlane) ListAutomations() ([]models.Automation, error) { return f.automations, f.err }

func (f *fakePlane) ToggleAutomation(id string, enabled bool) (*models.Automation, error) {
	f.gotAutomationID = id
	f.gotEnabled = enabled
	return f.automation, f.err
}

func (f *fakePlane) TriggerAutomation(id string) (*models.Run, error) {
	f.gotAutomationID = id
	return f.run, f.err
}

func (f *fakePlane) Hub() *broadcast.Hub { return f.hub }

func newTestServer(t *testing.T, plane *fakePlane) *httptest.Server {
	t.Helper()
	if plane.hub == nil {
		plane.hub = broadcast.New(8)
		t.Cleanup(plane.hub.Close)
	}
	srv := httptest.NewServer(New(plane, log.New(io.Discard)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeErrorBody(t *testing.T, raw []byte) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakePlane{})

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestCreateThread(t *testing.T) {
	fake := &fakePlane{thread: &models.Thread{ID: "t1", Name: "login flow", Agent: "claude"}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/threads", map[string]any{
		"name":     "login flow",
		"task":     "implement login",
		"repoPath": "/tmp/repo",
		"agent":    "claude",
		"validate": []string{"go test ./..."},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, control.CreateThreadRequest{
		Name:     "login flow",
		Task:     "implement login",
		RepoPath: "/tmp/repo",
		Agent:    "claude",
		Validate: []string{"go test ./..."},
	}, fake.gotCreateThread)

	var got models.Thread
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "t1", got.ID)
}

func TestCreateThreadRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakePlane{})

	resp, err := http.Post(srv.URL+"/threads", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeErrorBody(t, raw), "decode request body")
}

func TestListThreads(t *testing.T) {
	fake := &fakePlane{threads: []models.Thread{{ID: "t1"}, {ID: "t2"}}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []models.Thread
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
}

func TestListThreadsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t, &fakePlane{})

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGetThread(t *testing.T) {
	fake := &fakePlane{thread: &models.Thread{ID: "t1", Name: "login flow"}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads/t1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "t1", fake.gotThreadID)

	var got models.Thread
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "login flow", got.Name)
}

func TestThreadEvents(t *testing.T) {
	fake := &fakePlane{events: []models.Event{{ID: 2, Type: models.EventRunStarted}, {ID: 1, Type: models.EventRunQueued}}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads/t1/events?limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "t1", fake.gotThreadID)
	assert.Equal(t, 5, fake.gotLimit)

	var got []models.Event
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/threads/t1/events", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, fake.gotLimit)

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/threads/t1/events?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeErrorBody(t, raw), "limit must be an integer")
}

func TestCreateRun(t *testing.T) {
	fake := &fakePlane{run: &models.Run{ID: "r1", Status: models.RunStatusQueued}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/threads/t1/runs", map[string]any{
		"maxIterations": 5,
		"taskOverride":  "fix the tests",
		"sourceRunId":   "r0",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "t1", fake.gotThreadID)
	assert.Equal(t, control.CreateRunRequest{MaxIterations: 5, TaskOverride: "fix the tests", SourceRunID: "r0"}, fake.gotCreateRun)

	var got models.Run
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "r1", got.ID)
}

func TestThreadDiff(t *testing.T) {
	fake := &fakePlane{diff: "diff --git a/x b/x\n+added\n"}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads/t1/diff", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, fake.diff, string(raw))
}

func TestThreadDiffNotFound(t *testing.T) {
	fake := &fakePlane{err: fmt.Errorf("thread ghost: %w", control.ErrNotFound)}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodGet, srv.URL+"/threads/ghost/diff", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, decodeErrorBody(t, raw), "ghost")
}

func TestControlRun(t *testing.T) {
	fake := &fakePlane{run: &models.Run{ID: "r1", Status: models.RunStatusPaused}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/runs/r1/control", map[string]any{"action": "pause"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "r1", fake.gotRunID)
	assert.Equal(t, "pause", fake.gotAction)

	var got models.Run
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, models.RunStatusPaused, got.Status)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: bad field", control.ErrInvalidInput), http.StatusBadRequest},
		{"plane not found", fmt.Errorf("run x: %w", control.ErrNotFound), http.StatusNotFound},
		{"queue not found", queue.ErrNotFound, http.StatusNotFound},
		{"automation not found", automation.ErrNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: run x is queued", control.ErrConflict), http.StatusConflict},
		{"illegal transition", fmt.Errorf("%w: cannot pause a running run", queue.ErrIllegalTransition), http.StatusConflict},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakePlane{err: tc.err})

			resp, raw := doJSON(t, http.MethodGet, srv.URL+"/runs/r1", nil)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, decodeErrorBody(t, raw))
		})
	}
}

func TestComments(t *testing.T) {
	fake := &fakePlane{
		comment: &models.ReviewComment{ID: "c1", FilePath: "auth/login.go", LineNumber: 42},
	}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/threads/t1/comments", map[string]any{
		"runId":      "r1",
		"filePath":   "auth/login.go",
		"lineNumber": 42,
		"body":       "handle the error",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "t1", fake.gotThreadID)
	assert.Equal(t, control.CreateCommentRequest{
		RunID:      "r1",
		FilePath:   "auth/login.go",
		LineNumber: 42,
		Body:       "handle the error",
	}, fake.gotCreateComment)

	var got models.ReviewComment
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "c1", got.ID)

	resp, raw = doJSON(t, http.MethodGet, srv.URL+"/threads/t1/comments", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestRerunFromComments(t *testing.T) {
	fake := &fakePlane{run: &models.Run{ID: "r2", Status: models.RunStatusQueued}}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/threads/t1/rerun-from-comments", map[string]any{
		"commentIds": []string{"c1", "c2"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "t1", fake.gotThreadID)
	assert.Equal(t, []string{"c1", "c2"}, fake.gotCommentIDs)

	var got models.Run
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "r2", got.ID)
}

func TestAutomations(t *testing.T) {
	fake := &fakePlane{
		automation: &models.Automation{ID: "a1", Name: "nightly", Cron: "0 3 * * *"},
		run:        &models.Run{ID: "r1", Status: models.RunStatusQueued},
	}
	srv := newTestServer(t, fake)

	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/automations", map[string]any{
		"name":          "nightly",
		"cron":          "0 3 * * *",
		"threadId":      "t1",
		"maxIterations": 5,
		"enabled":       false,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "nightly", fake.gotCreateAutomation.Name)
	assert.Equal(t, "0 3 * * *", fake.gotCreateAutomation.Cron)
	require.NotNil(t, fake.gotCreateAutomation.Enabled)
	assert.False(t, *fake.gotCreateAutomation.Enabled)

	var got models.Automation
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "a1", got.ID)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/automations/a1/toggle", map[string]any{"enabled": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a1", fake.gotAutomationID)
	assert.True(t, fake.gotEnabled)

	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/automations/a1/toggle", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeErrorBody(t, raw), "enabled is required")

	resp, raw = doJSON(t, http.MethodPost, srv.URL+"/automations/a1/run-now", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var run models.Run
	require.NoError(t, json.Unmarshal(raw, &run))
	assert.Equal(t, "r1", run.ID)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/automations", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnmatchedRoutes(t *testing.T) {
	srv := newTestServer(t, &fakePlane{})

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/threads/t1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
