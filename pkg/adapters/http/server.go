package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/locale"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/submission"
)

// Engine defines the wizard operations the HTTP host exposes.
type Engine interface {
	View(ctx context.Context, device, route string) (*intake.View, error)
	Validate(ctx context.Context, device, route string, values domain.Fields) (schema.Result, error)
	Forward(ctx context.Context, device, route string, in intake.Input) (*intake.Outcome, error)
	Back(ctx context.Context, device, route string) (*intake.Outcome, error)
	Submit(ctx context.Context, device, route, captcha string) (*intake.Outcome, error)
	Reset(ctx context.Context, device string, section domain.Section) error
	ResetAll(ctx context.Context, device string) error
	Guess(ctx context.Context, device, ip, tz string) locale.Guess
	Steps() []domain.Step
}

// Server maps HTTP requests to wizard operations.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	trustProxy bool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the given metrics registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams shares an SSE stream manager, so the caller can close it on shutdown.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// WithTrustedProxy makes the client address follow the True-Client-IP, X-Real-IP
// and X-Forwarded-For headers. Without it only the connection address is used.
func WithTrustedProxy() Option {
	return func(s *Server) {
		s.trustProxy = true
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "")
	})

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(DeviceMiddleware)
		r.Get("/view/*", s.View)
		r.Post("/validate/*", s.Validate)
		r.Post("/next/*", s.Next)
		r.Post("/back/*", s.Back)
		r.Post("/submit/*", s.Submit)
		r.Delete("/answers", s.ResetAll)
		r.Delete("/answers/{section}", s.Reset)
		r.Get("/locale/guess", s.GuessLocale)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+DeviceHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// route returns the wizard route carried by a wildcard path.
func route(r *http.Request) string {
	return "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}

// View handles GET /view/*.
func (s *Server) View(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.View(r.Context(), Device(r.Context()), route(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Validate handles POST /validate/*. It never commits.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	res, err := s.Engine.Validate(r.Context(), Device(r.Context()), route(r), in.Values)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Next handles POST /next/*: JSON values, or multipart values with audio files.
func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		s.logger.Warn("Next: invalid request body", "err", err)
		return
	}
	device := Device(r.Context())
	out, err := s.Engine.Forward(r.Context(), device, route(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out.Blocked() {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	s.publish(device, out)
	writeJSON(w, http.StatusOK, out)
}

// Back handles POST /back/*.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	device := Device(r.Context())
	out, err := s.Engine.Back(r.Context(), device, route(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(device, out)
	writeJSON(w, http.StatusOK, out)
}

// Submit handles POST /submit/*.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	captcha, _ := domain.AsString(in.Values["captchaValue"])
	device := Device(r.Context())
	out, err := s.Engine.Submit(r.Context(), device, route(r), captcha)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(device, out)
	writeJSON(w, http.StatusOK, out)
}

// ResetAll handles DELETE /answers.
func (s *Server) ResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.ResetAll(r.Context(), Device(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /answers/{section}.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	section := domain.Section(chi.URLParam(r, "section"))
	known := false
	for _, sec := range domain.Sections {
		known = known || sec == section
	}
	if !known {
		writeError(w, http.StatusNotFound, "unknown section "+string(section), "")
		return
	}
	if err := s.Engine.Reset(r.Context(), Device(r.Context()), section); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GuessLocale handles GET /locale/guess?tz=<IANA zone>.
func (s *Server) GuessLocale(w http.ResponseWriter, r *http.Request) {
	g := s.Engine.Guess(r.Context(), Device(r.Context()), ClientIP(r), r.URL.Query().Get("tz"))
	writeJSON(w, http.StatusOK, g)
}

// GetGraph handles GET /graph. With ?format=mermaid it returns a flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	list := s.Engine.Steps()
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(graph.GenerateMermaid(list, nil)))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "intake-http",
		"version": strings.TrimSpace(intake.Version),
	})
}

// publish pushes the route change of an outcome to the device's event subscribers.
func (s *Server) publish(device string, out *intake.Outcome) {
	diff := out.Diff
	if diff.IsEmpty() && out.To.Route != "" {
		target := out.To.Route
		diff = &domain.RecordDiff{Route: &target}
	}
	if diff.IsEmpty() {
		return
	}
	if b, err := json.Marshal(diff); err == nil {
		s.Streams.Broadcast(device, string(b))
	}
}

// fail maps an engine error to a status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cfgErr *domain.ConfigError
		subErr *submission.SubmitError
	)
	switch {
	case errors.Is(err, domain.ErrStepNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrInvalidDirection), errors.Is(err, intake.ErrNotSubmitStep):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, submission.ErrInFlight):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.As(err, &subErr):
		s.logger.Warn("submission failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "submission failed", subErr.MessageKey)
	case errors.Is(err, intake.ErrNoSubmitter):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "")
	case errors.As(err, &cfgErr):
		s.logger.Error("configuration error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error(), "")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	MessageKey string `json:"message_key,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, key string) {
	writeJSON(w, status, errorResponse{Error: msg, MessageKey: key})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
