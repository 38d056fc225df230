// Package http exposes the control API used by the web editor and the CLI.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	bbscript "github.com/Superfang0726/Better-BlueStacks-Script"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/config"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/validator"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize bounds request bodies; graphs with many nodes stay well below it.
const maxBodySize = 8 << 20

// InlineScript names runs started from a graph posted to /run.
const InlineScript = "inline"

// Supervisor is the run control the API drives.
type Supervisor interface {
	Start(ctx context.Context, script string) (domain.RunInfo, error)
	StartNodes(ctx context.Context, script string, nodes []domain.Node) (domain.RunInfo, error)
	Stop() error
	Status() domain.RunInfo
	Dispatch(ctx context.Context, command string) domain.DispatchResult
}

// ImageLister is implemented by stores that keep a template image library.
type ImageLister interface {
	Images() ([]string, error)
}

// Server serves the control API.
type Server struct {
	sup      Supervisor
	store    ports.ScriptStore
	images   ImageLister
	device   ports.Device
	settings *config.Manager
	logs     *logging.Buffer
	metrics  http.Handler
	streams  *StreamManager
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the script endpoints.
func WithStore(store ports.ScriptStore) Option {
	return func(s *Server) { s.store = store }
}

// WithImages sets the template library listed at /api/images.
// Defaults to the store when it implements ImageLister.
func WithImages(images ImageLister) Option {
	return func(s *Server) { s.images = images }
}

// WithDevice enables /test_connection and /capture.
func WithDevice(device ports.Device) Option {
	return func(s *Server) { s.device = device }
}

// WithSettings enables /api/settings.
func WithSettings(m *config.Manager) Option {
	return func(s *Server) { s.settings = m }
}

// WithLogBuffer enables /logs and /logs/export.
func WithLogBuffer(buf *logging.Buffer) Option {
	return func(s *Server) { s.logs = buf }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithStreams enables the /events SSE endpoint.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.streams = sm }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler builds the router.
func NewHandler(sup Supervisor, opts ...Option) http.Handler {
	s := &Server{sup: sup}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.images == nil {
		s.images, _ = s.store.(ImageLister)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Post("/run", s.run)
	r.Post("/stop", s.stop)
	r.Post("/signal/{command}", s.signal)
	r.Post("/test_connection", s.testConnection)
	r.Post("/capture", s.capture)
	r.Get("/logs", s.listLogs)
	r.Get("/logs/export", s.exportLogs)
	r.Get("/events", s.subscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/scripts", s.listScripts)
		r.Post("/scripts", s.saveScript)
		r.Get("/scripts/{name}", s.getScript)
		r.Delete("/scripts/{name}", s.deleteScript)
		r.Get("/scripts/{name}/graph", s.getGraph)
		r.Get("/scripts/{name}/validate", s.validateScript)
		r.Get("/kinds", s.listKinds)
		r.Get("/images", s.listImages)
		r.Get("/settings", s.getSettings)
		r.Post("/settings", s.updateSettings)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

// SignalResponse is the body of POST /signal/{command}.
type SignalResponse struct {
	Command string                `json:"command"`
	Result  domain.DispatchResult `json:"result"`
	Message string                `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", code, "err", err)
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunInProgress), errors.Is(err, domain.ErrNoRunActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrScriptNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidScriptName),
		errors.Is(err, domain.ErrNoStartNode),
		errors.Is(err, domain.ErrEmptyScript),
		errors.Is(err, compiler.ErrUnsupportedShape):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(bbscript.Version),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sup.Status())
}

// runRequest names a stored script; any other body is an inline graph.
type runRequest struct {
	Script string `json:"script"`
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req runRequest
	_ = json.Unmarshal(body, &req)

	var info domain.RunInfo
	if req.Script != "" {
		info, err = s.sup.Start(r.Context(), req.Script)
	} else {
		nodes, perr := compiler.Parse(body)
		if perr != nil {
			s.writeError(w, http.StatusBadRequest, perr)
			return
		}
		if len(nodes) == 0 {
			s.writeError(w, http.StatusBadRequest, domain.ErrEmptyScript)
			return
		}
		info, err = s.sup.StartNodes(r.Context(), InlineScript, nodes)
	}
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, info)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	if err := s.sup.Stop(); err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sup.Status())
}

func (s *Server) signal(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	result := s.sup.Dispatch(r.Context(), command)
	code := http.StatusOK
	switch result {
	case domain.DispatchUnknown:
		code = http.StatusNotFound
	case domain.DispatchBusy, domain.DispatchNotWaiting:
		code = http.StatusConflict
	}
	name := strings.TrimPrefix(strings.TrimSpace(command), "/")
	s.writeJSON(w, code, SignalResponse{Command: name, Result: result, Message: result.Message(name)})
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	if s.device == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("no device configured"))
		return
	}
	if err := s.device.KeyEvent(r.Context(), ports.KeyCodeHome); err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("device not reachable: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	if s.device == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("no device configured"))
		return
	}
	shot, err := s.device.Screenshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("capture failed: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(shot); err != nil {
		s.logger.Warn("Capture write failed", "err", err)
	}
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	lines := []string{}
	if s.logs != nil {
		lines = s.logs.Lines()
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"logs": lines})
}

func (s *Server) exportLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bbscript.log"`)
	if s.logs == nil {
		return
	}
	for _, line := range s.logs.Lines() {
		fmt.Fprintln(w, line)
	}
}

// subscribeEvents streams lifecycle events as server-sent events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.streams == nil {
		s.writeError(w, http.StatusNotFound, errors.New("event stream disabled"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("no script store configured"))
		return false
	}
	return true
}

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	names, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

// saveRequest is what the editor posts. Content is the graph, either as
// an object or as a JSON-encoded string.
type saveRequest struct {
	Name    string          `json:"name"`
	Content json.RawMessage `json:"content"`
}

func (s *Server) saveScript(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	content := []byte(req.Content)
	var wrapped string
	if json.Unmarshal(req.Content, &wrapped) == nil {
		content = []byte(wrapped)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("missing content"))
		return
	}
	if !json.Valid(content) {
		s.writeError(w, http.StatusBadRequest, errors.New("content is not valid JSON"))
		return
	}

	if err := s.store.Save(r.Context(), req.Name, content); err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.logger.Info("Script saved", "script", req.Name)
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "saved", "name": req.Name})
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	data, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) deleteScript(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.logger.Info("Script deleted", "script", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	data, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	nodes, err := compiler.Parse(data)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) validateScript(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	data, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	nodes, err := compiler.Parse(data)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	report := validator.ValidateGraph(nodes)
	if report.Issues == nil {
		report.Issues = []validator.Issue{}
	}
	s.writeJSON(w, http.StatusOK, report)
}

// listKinds tells the editor which properties each node kind reads.
func (s *Server) listKinds(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, runtime.PropertySchemas())
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		s.writeJSON(w, http.StatusOK, []string{})
		return
	}
	images, err := s.images.Images()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, images)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		s.writeError(w, http.StatusNotFound, errors.New("settings disabled"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.settings.Get().Redacted())
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		s.writeError(w, http.StatusNotFound, errors.New("settings disabled"))
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := s.settings.Update(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.logger.Info("Settings updated")
	s.writeJSON(w, http.StatusOK, updated.Redacted())
}
