package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ShayCichocki/ralphd/internal/automation"
	"github.com/ShayCichocki/ralphd/internal/control"
	"github.com/ShayCichocki/ralphd/internal/queue"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

type errorBody struct {
	Error string `json:"error"`
}

type createThreadBody struct {
	Name     string   `json:"name"`
	Task     string   `json:"task"`
	RepoPath string   `json:"repoPath"`
	Agent    string   `json:"agent"`
	Validate []string `json:"validate"`
}

type createRunBody struct {
	MaxIterations int    `json:"maxIterations"`
	TaskOverride  string `json:"taskOverride"`
	SourceRunID   string `json:"sourceRunId"`
}

type createCommentBody struct {
	RunID      string `json:"runId"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
	Body       string `json:"body"`
}

type rerunBody struct {
	CommentIDs []string `json:"commentIds"`
}

type controlRunBody struct {
	Action string `json:"action"`
}

type createAutomationBody struct {
	Name          string `json:"name"`
	Cron          string `json:"cron"`
	ThreadID      string `json:"threadId"`
	MaxIterations int    `json:"maxIterations"`
	Enabled       *bool  `json:"enabled"`
}

type toggleBody struct {
	Enabled *bool `json:"enabled"`
}

// statusFor maps the error families crossing the control-plane boundary to
// HTTP status codes. Anything untagged is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, control.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, control.ErrNotFound),
		errors.Is(err, queue.ErrNotFound),
		errors.Is(err, automation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, control.ErrConflict),
		errors.Is(err, queue.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.respond(w, status, errorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %v", control.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListThreads(w http.ResponseWriter, _ *http.Request) {
	threads, err := s.plane.ListThreads()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if threads == nil {
		threads = []models.Thread{}
	}
	s.respond(w, http.StatusOK, threads)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var body createThreadBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	thread, err := s.plane.CreateThread(r.Context(), control.CreateThreadRequest{
		Name:     body.Name,
		Task:     body.Task,
		RepoPath: body.RepoPath,
		Agent:    body.Agent,
		Validate: body.Validate,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, thread)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.plane.GetThread(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, thread)
}

func (s *Server) handleThreadEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, fmt.Errorf("%w: limit must be an integer", control.ErrInvalidInput))
			return
		}
		limit = n
	}
	events, err := s.plane.ThreadEvents(r.PathValue("id"), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	s.respond(w, http.StatusOK, events)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body createRunBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	run, err := s.plane.CreateRun(r.PathValue("id"), control.CreateRunRequest{
		MaxIterations: body.MaxIterations,
		TaskOverride:  body.TaskOverride,
		SourceRunID:   body.SourceRunID,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, run)
}

// handleThreadDiff is the one non-JSON endpoint: the diff is served as
// plain text so it can be piped straight into a pager.
func (s *Server) handleThreadDiff(w http.ResponseWriter, r *http.Request) {
	diff, err := s.plane.ThreadDiff(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, diff); err != nil {
		s.log.Debug("write diff", "error", err)
	}
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.plane.ListComments(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if comments == nil {
		comments = []models.ReviewComment{}
	}
	s.respond(w, http.StatusOK, comments)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body createCommentBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	comment, err := s.plane.CreateComment(r.PathValue("id"), control.CreateCommentRequest{
		RunID:      body.RunID,
		FilePath:   body.FilePath,
		LineNumber: body.LineNumber,
		Body:       body.Body,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, comment)
}

func (s *Server) handleRerunFromComments(w http.ResponseWriter, r *http.Request) {
	var body rerunBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	run, err := s.plane.RerunFromComments(r.PathValue("id"), body.CommentIDs)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.plane.GetRun(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, run)
}

func (s *Server) handleControlRun(w http.ResponseWriter, r *http.Request) {
	var body controlRunBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	run, err := s.plane.ControlRun(r.PathValue("id"), body.Action)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, run)
}

func (s *Server) handleListAutomations(w http.ResponseWriter, _ *http.Request) {
	automations, err := s.plane.ListAutomations()
	if err != nil {
		s.respondError(w, err)
		return
	}
	if automations == nil {
		automations = []models.Automation{}
	}
	s.respond(w, http.StatusOK, automations)
}

func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var body createAutomationBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	a, err := s.plane.CreateAutomation(control.CreateAutomationRequest{
		Name:          body.Name,
		Cron:          body.Cron,
		ThreadID:      body.ThreadID,
		MaxIterations: body.MaxIterations,
		Enabled:       body.Enabled,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, a)
}

func (s *Server) handleToggleAutomation(w http.ResponseWriter, r *http.Request) {
	var body toggleBody
	if err := decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}
	if body.Enabled == nil {
		s.respondError(w, fmt.Errorf("%w: enabled is required", control.ErrInvalidInput))
		return
	}
	a, err := s.plane.ToggleAutomation(r.PathValue("id"), *body.Enabled)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, a)
}

func (s *Server) handleTriggerAutomation(w http.ResponseWriter, r *http.Request) {
	run, err := s.plane.TriggerAutomation(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, run)
}
