// Package server is the preview server: it keeps form sessions in memory and
// answers browser events with re-rendered field fragments.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/formdef"
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
	"github.com/goliatone/go-hitasforms/pkg/render"
)

// Saver submits payloads to the backend. *hitasapi.Client satisfies it.
type Saver interface {
	Save(ctx context.Context, resource, id string, payload map[string]any) (map[string]any, error)
}

// Options wires the server dependencies.
type Options struct {
	Forms    *formdef.Registry
	Renderer render.Renderer
	Searcher model.Searcher
	// Saver is optional; without it submissions only validate.
	Saver      Saver
	Logger     logging.Logger
	SessionTTL time.Duration
	Now        func() time.Time
}

// Server routes form sessions over HTTP.
type Server struct {
	forms      *formdef.Registry
	renderer   render.Renderer
	dispatcher *dispatcher.Dispatcher
	saver      Saver
	logger     logging.Logger
	sessions   *store
	router     chi.Router
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	if opts.Forms == nil {
		return nil, errors.New("server: form registry is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("server: renderer is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.Or(opts.Logger)

	s := &Server{
		forms:    opts.Forms,
		renderer: opts.Renderer,
		dispatcher: dispatcher.New(
			dispatcher.WithSearcher(opts.Searcher),
			dispatcher.WithLogger(logger),
		),
		saver:    opts.Saver,
		logger:   logger,
		sessions: newStore(opts.SessionTTL, opts.Now, logger),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Close ends every session and releases its subscriptions.
func (s *Server) Close() { s.sessions.closeAll() }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/forms", s.listForms)
	r.Post("/forms/{name}/sessions", s.createSession)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.showSession)
		r.Delete("/", s.endSession)
		r.Get("/payload", s.payload)
		r.Post("/submit", s.submit)
		r.Post("/fields/{path}/{event}", s.fieldEvent)
		r.Get("/related/{path}", s.related)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start).String(),
		)
	})
}
