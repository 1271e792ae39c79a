package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-hitasforms/pkg/form"
	"github.com/goliatone/go-hitasforms/pkg/hitasapi"
	"github.com/goliatone/go-hitasforms/pkg/picker"
	"github.com/goliatone/go-hitasforms/pkg/render"
)

const maxJSONBodyBytes = 1 << 20

type createRequest struct {
	ID    string         `json:"id,omitempty"`
	Draft map[string]any `json:"draft,omitempty"`
}

type createResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type candidateResponse struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

type relatedResponse struct {
	State   string              `json:"state"`
	Query   string              `json:"query"`
	Total   int                 `json:"total"`
	Results []candidateResponse `json:"results"`
}

type payloadResponse struct {
	Payload map[string]any      `json:"payload"`
	Invalid []form.InvalidField `json:"invalid,omitempty"`
	Edits   int                 `json:"edits"`
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"forms": s.forms.Names()})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	schema, err := s.forms.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req createRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session request: %w", err))
			return
		}
	}

	f, err := form.New(schema, req.Draft, form.WithDispatcher(s.dispatcher), form.WithLogger(s.logger))
	if err != nil {
		s.logger.Error("bind form", "form", name, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sess := s.sessions.open(f, req.ID)
	s.logger.Info("session opened", "session", sess.id, "form", name)
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.id, URL: "/sessions/" + sess.id})
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.renderForm(w, r, sess, http.StatusOK)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.close(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, http.StatusOK, payloadResponse{
		Payload: sess.form.Payload(),
		Invalid: sess.form.Invalid(),
		Edits:   sess.edits,
	})
}

func (s *Server) fieldEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kind, err := form.ParseEventKind(chi.URLParam(r, "event"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	path := chi.URLParam(r, "path")
	value := r.FormValue("value")

	if kind == form.EventInput {
		if p, ok := s.openPicker(sess, path); ok {
			searchErr := s.search(r, p)
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if field, found := sess.form.Field(path); found {
				if change, written := field.Input(value); written {
					if err := sess.form.Apply(change); err != nil {
						writeError(w, statusFor(err), err)
						return
					}
				}
			}
			if searchErr != nil {
				s.logger.Warn("related search failed", "path", path, "error", searchErr)
			}
			s.renderField(w, r, sess, path)
			return
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, err := sess.form.Dispatch(r.Context(), form.Event{Path: path, Kind: kind, Value: value}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.renderField(w, r, sess, path)
}

func (s *Server) related(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p, ok := s.openPicker(sess, chi.URLParam(r, "path"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q is not a related-model field", form.ErrUnknownField, chi.URLParam(r, "path")))
		return
	}
	if err := s.search(r, p); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := relatedResponse{State: p.State().String(), Query: p.Query(), Total: p.Total()}
	for idx, candidate := range p.Results() {
		resp.Results = append(resp.Results, candidateResponse{Index: idx, Label: candidate.Label, Value: candidate.Value})
	}
	writeJSON(w, http.StatusOK, resp)
}

// openPicker looks up the picker of a related-model field and opens it.
func (s *Server) openPicker(sess *session, path string) (*picker.Picker, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	field, ok := sess.form.Field(path)
	if !ok || field.Picker() == nil {
		return nil, false
	}
	p := field.Picker()
	if p.State() == picker.StateClosed {
		p.Open()
	}
	return p, true
}

// search runs outside the session lock so a newer request supersedes it.
func (s *Server) search(r *http.Request, p *picker.Picker) error {
	query := r.URL.Query().Get("q")
	if r.Method == http.MethodPost {
		query = r.FormValue("value")
	}
	return p.SetQuery(r.Context(), query)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.form.Valid() {
		s.renderForm(w, r, sess, http.StatusUnprocessableEntity)
		return
	}
	if s.saver == nil {
		writeJSON(w, http.StatusOK, payloadResponse{Payload: sess.form.Payload(), Edits: sess.edits})
		return
	}

	saved, err := s.saver.Save(r.Context(), sess.form.Resource(), sess.recordID, sess.form.Payload())
	if serverErr, rejected := hitasapi.ServerError(err); rejected {
		sess.form.ApplyServerError(serverErr)
		s.renderForm(w, r, sess, http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	sess.form.ApplyServerError(nil)
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.sessions.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
	}
	return sess, ok
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, sess *session, status int) {
	out, err := s.renderer.Render(r.Context(), sess.form, render.RenderOptions{
		Action: "/sessions/" + sess.id + "/submit",
		Method: http.MethodPost,
		Hidden: []render.HiddenField{render.SessionField(sess.id)},
	})
	s.write(w, out, err, status)
}

func (s *Server) renderField(w http.ResponseWriter, r *http.Request, sess *session, path string) {
	out, err := s.renderer.Render(r.Context(), sess.form, render.RenderOptions{Field: path})
	s.write(w, out, err, http.StatusOK)
}

func (s *Server) write(w http.ResponseWriter, out []byte, err error, status int) {
	if err != nil {
		s.logger.Error("render failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, form.ErrUnknownEvent),
		errors.Is(err, form.ErrEventValue),
		errors.Is(err, picker.ErrIndexRange),
		errors.Is(err, picker.ErrNoResults),
		errors.Is(err, picker.ErrClosed):
		return http.StatusBadRequest
	case goerrors.IsCategory(err, goerrors.CategoryExternal):
		return http.StatusBadGateway
	case goerrors.IsCategory(err, goerrors.CategoryNotFound):
		return http.StatusNotFound
	case goerrors.IsCategory(err, goerrors.CategoryValidation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
