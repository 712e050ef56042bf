// Package httpapi exposes the core coordination substrate over HTTP
// (spec.md §6): chat submit/poll, knowledge-base document and search
// endpoints, agent/task listings, and a health check, each responding with
// a shared {ok, data|error} envelope.
package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"execteam/internal/agentregistry"
	"execteam/internal/coordinator"
	"execteam/internal/retrieval"
	"execteam/internal/tasks"
)

// Server is the HTTP API server, grounded on the teacher's echo-based
// transport (internal/httpapi originally wrapped a stdlib ServeMux around
// the playground service; this rework adopts echo/v4 per the rest of the
// example pack's HTTP services).
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	coordinator *coordinator.Coordinator
	index       *retrieval.Index
	registry    *agentregistry.Registry
	taskMgr     *tasks.Manager
}

// NewServer wires a Server to the core components.
func NewServer(coord *coordinator.Coordinator, index *retrieval.Index, registry *agentregistry.Registry, taskMgr *tasks.Manager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = envelopeErrorHandler

	s := &Server{echo: e, coordinator: coord, index: index, registry: registry, taskMgr: taskMgr}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler, letting Server be used directly in tests
// via httptest.NewServer/httptest.NewRequest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat/submit", s.handleChatSubmit)
	v1.GET("/chat/poll/:message_id", s.handleChatPoll)
	v1.POST("/chat/cancel/:message_id", s.handleChatCancel)

	v1.POST("/kb/document", s.handleKBCreateDocument)
	v1.PATCH("/kb/document/:document_id", s.handleKBUpdateDocument)
	v1.DELETE("/kb/document/:document_id", s.handleKBDeleteDocument)
	v1.GET("/kb/search", s.handleKBSearch)

	v1.GET("/agents", s.handleListAgents)

	v1.GET("/tasks", s.handleListTasks)
	v1.GET("/tasks/:task_id", s.handleGetTask)
}

// envelopeErrorHandler wraps echo's default error responses in the shared
// {ok:false, error} envelope instead of echo's {"message": "..."} shape.
func envelopeErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, isHTTPErr := err.(*echo.HTTPError); isHTTPErr {
		code = he.Code
		if m, isString := he.Message.(string); isString {
			msg = m
		}
	}
	_ = c.JSON(code, fail(msg))
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the server on a pre-created listener, for callers
// that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, ok(healthResponse{Status: "healthy"}))
}
