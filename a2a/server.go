package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hupe1980/medflow/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AgentCardPath is the well-known discovery path for agent cards.
const AgentCardPath = "/.well-known/agent-card.json"

// RequestContext carries everything an executor needs to process one
// message/send request.
type RequestContext struct {
	TaskID    string
	ContextID string
	Message   Message
	Text      string // Flattened message text
	Metadata  map[string]any
}

// Executor is the behavior an agent server wraps. Execute processes an
// incoming message and returns the agent's reply; Cancel is invoked before a
// task is moved to the canceled state.
type Executor interface {
	Execute(ctx context.Context, rc *RequestContext) (*Message, error)
	Cancel(ctx context.Context, taskID string) error
}

// ServerOptions configure NewServer.
type ServerOptions struct {
	// Logger for request-level diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
	// Registry receives the server's Prometheus collectors. A private
	// registry is created when nil, keeping multiple in-process servers from
	// colliding on metric names.
	Registry *prometheus.Registry
}

// Server exposes an Executor over the JSON-RPC transport: a single POST
// endpoint for RPC methods, the well-known agent card, a health probe and
// Prometheus metrics.
type Server struct {
	card     AgentCard
	executor Executor
	store    *TaskStore
	logger   logging.Logger
	echo     *echo.Echo

	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewServer creates a server for the given card and executor.
func NewServer(card AgentCard, executor Executor, optFns ...func(o *ServerOptions)) *Server {
	opts := ServerOptions{
		Logger: logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		card:     card,
		executor: executor,
		store:    NewTaskStore(),
		logger:   opts.Logger,
		registry: opts.Registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medflow_agent_requests_total",
			Help: "JSON-RPC requests handled, labeled by method and outcome.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medflow_agent_request_duration_seconds",
			Help:    "JSON-RPC request handling duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	s.registry.MustRegister(s.requests, s.duration)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.POST("/", s.handleRPC)
	e.GET(AgentCardPath, s.handleCard)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.echo = e

	return s
}

// Card returns the agent card the server advertises.
func (s *Server) Card() AgentCard { return s.card }

// Handler exposes the server as an http.Handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on the given address until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	s.logger.Info("agent server starting", "agent", s.card.Name, "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleCard(c echo.Context) error {
	return c.JSON(http.StatusOK, s.card)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "agent": s.card.Name})
}

func (s *Server) handleRPC(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, NewRPCError(nil, CodeParseError, "cannot read request body"))
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusOK, NewRPCError(nil, CodeParseError, "invalid JSON payload"))
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return c.JSON(http.StatusOK, NewRPCError(req.ID, CodeInvalidRequest, "not a JSON-RPC 2.0 request"))
	}

	started := time.Now()
	resp := s.dispatch(c.Request().Context(), req)
	s.duration.WithLabelValues(req.Method).Observe(time.Since(started).Seconds())

	outcome := "ok"
	if resp.Error != nil {
		outcome = strconv.Itoa(resp.Error.Code)
	}
	s.requests.WithLabelValues(req.Method, outcome).Inc()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) dispatch(ctx context.Context, req RPCRequest) RPCResponse {
	switch req.Method {
	case MethodMessageSend:
		return s.handleMessageSend(ctx, req)
	case MethodTasksGet:
		return s.handleTasksGet(req)
	case MethodTasksCancel:
		return s.handleTasksCancel(ctx, req)
	default:
		return NewRPCError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

// handleMessageSend runs the executor for an incoming message. Executor
// failures surface as a failed Task result, not as a JSON-RPC error, so
// clients always receive the task record.
func (s *Server) handleMessageSend(ctx context.Context, req RPCRequest) RPCResponse {
	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewRPCError(req.ID, CodeInvalidParams, fmt.Sprintf("invalid message/send params: %v", err))
	}
	if len(params.Message.Parts) == 0 {
		return NewRPCError(req.ID, errorCode(ErrEmptyMessage), ErrEmptyMessage.Error())
	}

	task := NewTask(params.Message)
	s.store.Create(task)

	logger := s.logger.With("agent", s.card.Name, "task_id", task.ID)
	logger.Debug("task submitted", "context_id", task.ContextID)

	if _, err := s.store.Update(task.ID, TaskStatus{State: TaskStateWorking}); err != nil {
		return NewRPCError(req.ID, errorCode(err), err.Error())
	}

	rc := &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Message:   params.Message,
		Text:      params.Message.Text(),
		Metadata:  params.Metadata,
	}

	reply, err := s.executor.Execute(ctx, rc)
	if err != nil {
		logger.Error("task failed", "error", err)
		failure := NewAgentTextMessage(err.Error())
		failure.TaskID = task.ID
		failure.ContextID = task.ContextID
		failed, uerr := s.store.Update(task.ID, TaskStatus{State: TaskStateFailed, Message: &failure})
		if uerr != nil {
			return NewRPCError(req.ID, errorCode(uerr), uerr.Error())
		}
		return mustResult(req.ID, failed)
	}

	reply.TaskID = task.ID
	reply.ContextID = task.ContextID

	artifact := NewArtifact("result", reply.Parts...)
	completed, err := s.store.Update(task.ID, TaskStatus{State: TaskStateCompleted, Message: reply}, artifact)
	if err != nil {
		return NewRPCError(req.ID, errorCode(err), err.Error())
	}

	logger.Debug("task completed")

	return mustResult(req.ID, completed)
}

func (s *Server) handleTasksGet(req RPCRequest) RPCResponse {
	var params TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewRPCError(req.ID, CodeInvalidParams, fmt.Sprintf("invalid tasks/get params: %v", err))
	}

	task, err := s.store.Get(params.ID)
	if err != nil {
		return NewRPCError(req.ID, errorCode(err), err.Error())
	}

	return mustResult(req.ID, task)
}

func (s *Server) handleTasksCancel(ctx context.Context, req RPCRequest) RPCResponse {
	var params TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewRPCError(req.ID, CodeInvalidParams, fmt.Sprintf("invalid tasks/cancel params: %v", err))
	}

	if err := s.executor.Cancel(ctx, params.ID); err != nil {
		return NewRPCError(req.ID, CodeInternalError, err.Error())
	}

	task, err := s.store.Cancel(params.ID)
	if err != nil {
		return NewRPCError(req.ID, errorCode(err), err.Error())
	}

	s.logger.Info("task canceled", "agent", s.card.Name, "task_id", task.ID)

	return mustResult(req.ID, task)
}

// mustResult wraps a value in a success response. Results are structs under
// our control, so serialization failure is a programming error.
func mustResult(id any, result any) RPCResponse {
	resp, err := NewRPCResult(id, result)
	if err != nil {
		return NewRPCError(id, CodeInternalError, err.Error())
	}
	return resp
}
