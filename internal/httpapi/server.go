// Package httpapi exposes the control plane over HTTP and WebSocket. All
// REST endpoints speak JSON; /ws upgrades to a live event subscription.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ShayCichocki/ralphd/internal/broadcast"
	"github.com/ShayCichocki/ralphd/internal/control"
	"github.com/ShayCichocki/ralphd/pkg/models"
)

// Plane is the control-plane surface the HTTP layer exposes.
type Plane interface {
	CreateThread(ctx context.Context, req control.CreateThreadRequest) (*models.Thread, error)
	ListThreads() ([]models.Thread, error)
	GetThread(id string) (*models.Thread, error)
	ThreadEvents(threadID string, limit int) ([]models.Event, error)
	ThreadDiff(ctx context.Context, threadID string) (string, error)
	CreateRun(threadID string, req control.CreateRunRequest) (*models.Run, error)
	GetRun(id string) (*models.Run, error)
	ControlRun(runID, action string) (*models.Run, error)
	CreateComment(threadID string, req control.CreateCommentRequest) (*models.ReviewComment, error)
	ListComments(threadID string) ([]models.ReviewComment, error)
	RerunFromComments(threadID string, commentIDs []string) (*models.Run, error)
	CreateAutomation(req control.CreateAutomationRequest) (*models.Automation, error)
	ListAutomations() ([]models.Automation, error)
	ToggleAutomation(id string, enabled bool) (*models.Automation, error)
	TriggerAutomation(id string) (*models.Run, error)
	Hub() *broadcast.Hub
}

var _ Plane = (*control.Plane)(nil)

// Server serves the REST and WebSocket surface for one control plane.
type Server struct {
	plane Plane
	log   *log.Logger

	listener net.Listener
	httpSrv  *http.Server
}

// New creates a server; call Start to bind it.
func New(plane Plane, logger *log.Logger) *Server {
	return &Server{plane: plane, log: logger}
}

// Handler builds the route table. Exposed so tests can drive the mux
// without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /threads", s.handleListThreads)
	mux.HandleFunc("POST /threads", s.handleCreateThread)
	mux.HandleFunc("GET /threads/{id}", s.handleGetThread)
	mux.HandleFunc("GET /threads/{id}/events", s.handleThreadEvents)
	mux.HandleFunc("POST /threads/{id}/runs", s.handleCreateRun)
	mux.HandleFunc("GET /threads/{id}/diff", s.handleThreadDiff)
	mux.HandleFunc("GET /threads/{id}/comments", s.handleListComments)
	mux.HandleFunc("POST /threads/{id}/comments", s.handleCreateComment)
	mux.HandleFunc("POST /threads/{id}/rerun-from-comments", s.handleRerunFromComments)

	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /runs/{id}/control", s.handleControlRun)

	mux.HandleFunc("GET /automations", s.handleListAutomations)
	mux.HandleFunc("POST /automations", s.handleCreateAutomation)
	mux.HandleFunc("POST /automations/{id}/toggle", s.handleToggleAutomation)
	mux.HandleFunc("POST /automations/{id}/run-now", s.handleTriggerAutomation)

	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

// Start binds addr and serves in the background. It returns once the
// listener is open, so callers can rely on the port being reachable.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server stopped", "error", err)
		}
	}()

	s.log.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
