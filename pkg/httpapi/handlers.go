package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/introspection"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	"github.com/ortholine/inlay/pkg/blocks"
	"github.com/ortholine/inlay/pkg/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/entries", s.handleList)
	mux.HandleFunc("POST /api/entries", s.handleCreate)
	mux.HandleFunc("GET /api/entries/{id...}", s.handleGet)
	mux.HandleFunc("PUT /api/entries/{id...}", s.handleReplace)
	mux.HandleFunc("DELETE /api/entries/{id...}", s.handleDelete)
	mux.HandleFunc("GET /api/html/{id...}", s.handleHTML)
	mux.HandleFunc("GET /api/editor/{id...}", s.handleEditor)
	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// entryRequest is the writable part of an entry.
type entryRequest struct {
	ID       string           `json:"id" validate:"omitempty,max=512"`
	Kind     string           `json:"kind" validate:"omitempty,oneof=blog case-study ebook course page"`
	Title    string           `json:"title" validate:"max=300"`
	Slug     string           `json:"slug" validate:"omitempty,max=300"`
	Author   string           `json:"author" validate:"max=200"`
	Tags     []string         `json:"tags" validate:"max=50,dive,required,max=64"`
	Status   string           `json:"status" validate:"omitempty,oneof=draft published"`
	Body     *blocks.Document `json:"body"`
	HTML     string           `json:"html"`
	Metadata core.Metadata    `json:"metadata"`
}

func (req entryRequest) entry() core.Entry {
	e := core.Entry{
		ID:       req.ID,
		Kind:     core.Kind(req.Kind),
		Title:    req.Title,
		Slug:     req.Slug,
		Author:   req.Author,
		Tags:     req.Tags,
		Status:   core.Status(req.Status),
		HTML:     req.HTML,
		Metadata: req.Metadata,
	}
	if req.Body != nil {
		e.Body = *req.Body
	}
	return e
}

type importRequest struct {
	HTML string `json:"html" validate:"required"`
	Rich bool   `json:"rich"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errBadRequest marks client errors detected by the handlers.
var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, core.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrInvalidID), errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, errBadRequest), errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v and validates it when it is a struct.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	switch v.(type) {
	case *entryRequest, *importRequest:
		return s.validate.Struct(v)
	}
	return nil
}

// withReason carries the X-Change-Reason header into the repository as
// the commit message.
func withReason(r *http.Request) context.Context {
	if reason := strings.TrimSpace(r.Header.Get("X-Change-Reason")); reason != "" {
		return context.WithValue(r.Context(), core.ChangeReasonKey, reason)
	}
	return r.Context()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.Filter{
		Kind:    core.Kind(q.Get("kind")),
		Tag:     q.Get("tag"),
		Status:  core.Status(q.Get("status")),
		Pattern: q.Get("pattern"),
	}
	for name, dst := range map[string]*int{"offset": &f.Offset, "limit": &f.Limit} {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				s.writeError(w, r, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name))
				return
			}
			*dst = n
		}
	}
	if f.Status != "" && f.Status != core.StatusDraft && f.Status != core.StatusPublished {
		s.writeError(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, f.Status))
		return
	}

	if b, _ := strconv.ParseBool(q.Get("summary")); b {
		sums, err := s.svc.ListSummaries(r.Context(), f)
		if err != nil {
			s.writeError(w, r, badPattern(err))
			return
		}
		writeJSON(w, http.StatusOK, sums)
		return
	}

	entries, err := s.svc.ListEntries(r.Context(), f)
	if err != nil {
		s.writeError(w, r, badPattern(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// badPattern turns glob syntax errors into 400s.
func badPattern(err error) error {
	if errors.Is(err, doublestar.ErrBadPattern) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return err
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, req entryRequest, status int) {
	e := req.entry()
	saved, err := s.svc.SaveEntry(withReason(r), e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.observeRender(saved.Body)
	writeJSON(w, status, saved)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ID != "" {
		if _, err := s.svc.GetEntry(r.Context(), req.ID); err == nil {
			writeJSON(w, http.StatusConflict, errorResponse{Error: fmt.Sprintf("entry %s already exists", req.ID)})
			return
		}
	}
	s.save(w, r, req, http.StatusCreated)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if req.ID != "" && req.ID != id {
		s.writeError(w, r, fmt.Errorf("%w: body id %q does not match path", errBadRequest, req.ID))
		return
	}
	req.ID = id
	s.save(w, r, req, http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEntry(withReason(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(e.HTML))
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.EditorDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var doc blocks.Document
	if err := s.decode(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.observeRender(doc)
	writeJSON(w, http.StatusOK, map[string]string{"html": s.svc.Renderer().Render(doc)})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc := blocks.FromHTML(req.HTML)
	if req.Rich {
		parsed, err := blocks.ParseHTML(req.HTML)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		doc = parsed
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var doc blocks.Document
	if err := s.decode(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	warnings := blocks.Validate(doc)
	if warnings == nil {
		warnings = []blocks.Warning{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(warnings) == 0, "warnings": warnings})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := map[string]any{"service": s.svc.State()}
	if c, ok := s.svc.Repository().(introspection.Introspectable); ok {
		state["repository"] = c.State()
	}
	writeJSON(w, http.StatusOK, state)
}
