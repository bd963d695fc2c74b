// Package server is the web host: it serves the landing page and the forms,
// keeps one controller per visitor and form, and exposes the JSON endpoints
// described by the generated OpenAPI document.
package server

import (
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/getkin/kin-openapi/openapi3"
	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks/internal/logging"
	"github.com/bullrushinvestments/carbonclicks/internal/mockapi"
	"github.com/bullrushinvestments/carbonclicks/internal/session"
	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/openapi"
	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	"github.com/bullrushinvestments/carbonclicks/pkg/renderers/html"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

const maxBody = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRenderers replaces the default html+json renderers.
func WithRenderers(registry *render.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.renderers = registry
		}
	}
}

// WithTheme sets the theme configuration passed to renderers.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithSessions replaces the default session store.
func WithSessions(store *session.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithMockAPI mounts the demo backend on the same mux.
func WithMockAPI(api *mockapi.Server) Option {
	return func(s *Server) {
		s.mock = api
	}
}

// WithOpenAPI serves doc instead of one built from the registry.
func WithOpenAPI(doc *openapi3.T) Option {
	return func(s *Server) {
		s.doc = doc
	}
}

// Server holds the host dependencies.
type Server struct {
	forms     *forms.Registry
	build     session.Builder
	renderers *render.Registry
	sessions  *session.Store
	theme     *theme.RendererConfig
	mock      *mockapi.Server
	doc       *openapi3.T
	spec      []byte
	logger    *zap.Logger
	policy    *bluemonday.Policy
}

// New validates the dependencies and prepares the OpenAPI payload.
func New(registry *forms.Registry, build session.Builder, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("server: forms registry is required")
	}
	if build == nil {
		return nil, errors.New("server: controller builder is required")
	}
	s := &Server{
		forms:  registry,
		build:  build,
		logger: zap.NewNop(),
		policy: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.renderers == nil {
		htmlRenderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.renderers = render.NewRegistry()
		s.renderers.MustRegister(htmlRenderer)
		s.renderers.MustRegister(render.JSONRenderer{})
	}
	if s.sessions == nil {
		s.sessions = session.NewStore()
	}
	if s.doc == nil {
		doc, err := openapi.Build(registry.List())
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.doc = doc
	}
	spec, err := openapi.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	s.spec = spec
	return s, nil
}

// Handler returns the routed, access-logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.landing)
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /openapi.json", s.openAPI)
	mux.HandleFunc("GET /forms", s.listForms)
	mux.HandleFunc("GET /forms/{id}", s.showForm)
	mux.HandleFunc("POST /forms/{id}", s.submitForm)
	mux.HandleFunc("PATCH /forms/{id}/fields", s.patchFields)
	mux.HandleFunc("POST /forms/{id}/reset", s.resetForm)
	mux.HandleFunc("GET /forms/{id}/state", s.formState)
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(html.AssetsFS())))
	if s.mock != nil {
		s.mock.Register(mux)
	}
	return logging.Middleware(s.logger, mux)
}

// SweepSessions drops expired sessions every interval until ctx is done.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

type landingRenderer interface {
	RenderLanding(ctx context.Context, landing html.Landing, cfg *theme.RendererConfig) ([]byte, error)
}

func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	renderer, err := s.renderers.Get("html")
	lr, ok := renderer.(landingRenderer)
	if err != nil || !ok {
		s.listForms(w, r)
		return
	}

	links := make([]html.FormLink, 0)
	for _, def := range s.forms.List() {
		links = append(links, html.FormLink{Title: def.Title, Href: formPath(def.ID), Description: def.Description})
	}
	out, err := lr.RenderLanding(r.Context(), html.DefaultLanding(links...), s.theme)
	if err != nil {
		s.fail(w, "render landing", err)
		return
	}
	s.write(w, http.StatusOK, renderer.ContentType(), out)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, "application/json", s.spec)
}

type formSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href"`
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	defs := s.forms.List()
	out := make([]formSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, formSummary{ID: def.ID, Title: def.Title, Description: def.Description, Href: formPath(def.ID)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) showForm(w http.ResponseWriter, r *http.Request) {
	def, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.respond(w, r, http.StatusOK, def, c)
}

func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	def, c, ok := s.controller(w, r)
	if !ok {
		return
	}

	values, err := s.readValues(w, r, def)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if raw, present := values[render.HiddenSeq]; present {
		seq, err := strconv.ParseUint(field.FormatValue(raw), 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid "+render.HiddenSeq)
			return
		}
		if current := c.State(); current.Seq != seq {
			s.logger.Debug("stale submission rejected",
				zap.String("form", def.ID), zap.Uint64("seq", seq), zap.Uint64("current", current.Seq))
			s.respond(w, r, http.StatusConflict, def, c)
			return
		}
	}

	for name, value := range values {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if err := c.SetField(name, value); err != nil {
			status := http.StatusBadRequest
			if field.IsUnknownField(err) {
				status = http.StatusUnprocessableEntity
			}
			s.writeError(w, status, err.Error())
			return
		}
	}

	before := c.State()
	if before.Busy() {
		s.respond(w, r, http.StatusConflict, def, c)
		return
	}
	// The submission outlives a closed tab; the session keeps its outcome.
	state := c.Submit(context.WithoutCancel(r.Context()))

	status := http.StatusOK
	switch {
	case state.Busy():
		status = http.StatusConflict
	case state.IsIdle() && !state.Validation.Valid():
		status = http.StatusUnprocessableEntity
	}
	s.respond(w, r, status, def, c)
}

func (s *Server) patchFields(w http.ResponseWriter, r *http.Request) {
	def, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body")
		return
	}
	var ops []field.PatchOperation
	if err := sonic.Unmarshal(raw, &ops); err != nil {
		s.writeError(w, http.StatusBadRequest, "body must be a JSON patch array")
		return
	}
	for i := range ops {
		ops[i].Value = s.sanitize(ops[i].Value)
	}
	if err := c.Fields().ApplyPatch(ops); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respond(w, r, http.StatusOK, def, c)
}

func (s *Server) resetForm(w http.ResponseWriter, r *http.Request) {
	def, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	c.Reset()
	if renderer, err := s.renderers.Negotiate(r.Header.Get("Accept")); err == nil && renderer.Name() == "html" {
		http.Redirect(w, r, formPath(def.ID), http.StatusSeeOther)
		return
	}
	s.respond(w, r, http.StatusOK, def, c)
}

type stateResponse struct {
	Form    string            `json:"form"`
	Phase   string            `json:"phase"`
	Seq     uint64            `json:"seq"`
	Message string            `json:"message,omitempty"`
	Payload field.Values      `json:"payload,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors"`
}

func (s *Server) formState(w http.ResponseWriter, r *http.Request) {
	def, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	state := c.State()
	s.writeJSON(w, http.StatusOK, stateResponse{
		Form:    def.ID,
		Phase:   state.Phase.String(),
		Seq:     state.Seq,
		Message: state.Message,
		Payload: state.Payload,
		Data:    state.Data,
		Errors:  c.Fields().Errors().Map(),
	})
}

func (s *Server) controller(w http.ResponseWriter, r *http.Request) (forms.Definition, *submission.Controller, bool) {
	id := r.PathValue("id")
	def, ok := s.forms.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("form %q not found", id))
		return forms.Definition{}, nil, false
	}
	sess := s.sessions.Ensure(w, r)
	c, err := sess.Controller(id, s.build)
	if err != nil {
		s.fail(w, "build controller", err)
		return forms.Definition{}, nil, false
	}
	return def, c, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, def forms.Definition, c *submission.Controller) {
	view, err := render.NewView(def, c)
	if err != nil {
		s.fail(w, "build view", err)
		return
	}
	renderer, err := s.renderers.Negotiate(r.Header.Get("Accept"))
	if err != nil {
		s.fail(w, "negotiate renderer", err)
		return
	}
	out, err := renderer.Render(r.Context(), view, render.RenderOptions{
		Action: formPath(def.ID),
		HiddenFields: render.MergeHiddenFields(nil,
			render.Hidden(render.HiddenFormID, def.ID),
			render.SeqField(view.State.Seq)),
		Theme: s.theme,
	})
	if err != nil {
		s.fail(w, "render form", err)
		return
	}
	s.write(w, status, renderer.ContentType(), out)
}

// readValues collects submitted values from a JSON object or a form body.
// Form bodies only contribute declared fields and hidden inputs; a list
// field posted as repeated keys keeps every value.
func (s *Server) readValues(w http.ResponseWriter, r *http.Request, def forms.Definition) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if isJSON(r.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.New("read body")
		}
		out := map[string]any{}
		if len(strings.TrimSpace(string(raw))) == 0 {
			return out, nil
		}
		if err := sonic.Unmarshal(raw, &out); err != nil {
			return nil, errors.New("body must be a JSON object")
		}
		for name, value := range out {
			out[name] = s.sanitize(value)
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form body")
	}
	out := make(map[string]any)
	if seq, ok := r.PostForm[render.HiddenSeq]; ok && len(seq) > 0 {
		out[render.HiddenSeq] = seq[0]
	}
	for _, name := range def.FieldNames() {
		posted, ok := r.PostForm[name]
		if !ok {
			continue
		}
		if len(posted) == 1 {
			out[name] = s.sanitize(posted[0])
			continue
		}
		out[name] = s.sanitize(posted)
	}
	return out, nil
}

// sanitize strips markup from submitted text. The policy output is entity
// encoded, so it is unescaped again; templates escape on output.
func (s *Server) sanitize(value any) any {
	switch typed := value.(type) {
	case string:
		return stdhtml.UnescapeString(s.policy.Sanitize(typed))
	case []string:
		out := make([]string, len(typed))
		for i, item := range typed {
			out[i] = stdhtml.UnescapeString(s.policy.Sanitize(item))
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = s.sanitize(item)
		}
		return out
	default:
		return value
	}
}

func isJSON(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func formPath(id string) string {
	return "/forms/" + id
}

func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	out, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		s.logger.Error("encode json response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.write(w, status, "application/json", out)
}

func (s *Server) write(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}
