// Package carbonclicks wires form definitions to their external calls and
// renderers. Hosts (the web server and the terminal filler) build controllers
// through Settings so both run the same submission lifecycle.
package carbonclicks

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks/pkg/boundary"
	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	"github.com/bullrushinvestments/carbonclicks/pkg/renderers/html"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// Built-in GraphQL operations a definition may name.
const (
	OperationCreateTest = "createTest"
	QueryTests          = "tests"
)

// Settings describe where boundaries send their calls and how controllers
// behave.
type Settings struct {
	// APIBaseURL prefixes the path of rest boundaries.
	APIBaseURL string
	// GraphQLURL is the endpoint of graphql boundaries.
	GraphQLURL string
	// SubmitTimeout bounds each boundary call. Zero means no timeout.
	SubmitTimeout time.Duration
	// SimulatedDelay replaces the delay of simulated boundaries when positive.
	SimulatedDelay time.Duration

	Logger     *zap.Logger
	HTTPClient *http.Client
	// OnCreate runs after a form settles successfully.
	OnCreate func(formID string, state submission.State)
	// OnRefetch receives the result of each query re-run after a graphql
	// mutation.
	OnRefetch func(formID, query string, data any)
}

func (s Settings) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s Settings) transportOptions() []boundary.Option {
	opts := []boundary.Option{boundary.WithLogger(s.logger())}
	if s.HTTPClient != nil {
		opts = append(opts, boundary.WithHTTPClient(s.HTTPClient))
	}
	return opts
}

// LoadForms returns the built-in definitions overlaid with those found in dir.
// An empty dir yields only the built-ins.
func LoadForms(dir string) (*forms.Registry, error) {
	registry, err := forms.Builtin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return registry, nil
	}
	extra, err := forms.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("carbonclicks: forms dir %s: %w", dir, err)
	}
	registry.Merge(extra)
	return registry, nil
}

// NewBoundary maps a definition's boundary spec onto an implementation.
func NewBoundary(def forms.Definition, s Settings) (submission.Boundary, error) {
	spec := def.Boundary
	switch spec.Kind {
	case forms.BoundaryREST:
		if strings.TrimSpace(s.APIBaseURL) == "" {
			return nil, fmt.Errorf("carbonclicks: form %q needs an API base URL", def.ID)
		}
		return boundary.NewJSON(strings.TrimRight(s.APIBaseURL, "/")+spec.Path, s.transportOptions()...), nil

	case forms.BoundaryGraphQL:
		document := spec.Document
		if document == "" {
			known, ok := graphQLOperations[spec.Operation]
			if !ok {
				return nil, fmt.Errorf("carbonclicks: form %q names unknown graphql operation %q", def.ID, spec.Operation)
			}
			document = known
		}
		refetch := make([]boundary.Refetch, 0, len(spec.Refetch))
		for _, name := range spec.Refetch {
			query, ok := graphQLQueries[name]
			if !ok {
				return nil, fmt.Errorf("carbonclicks: form %q refetches unknown query %q", def.ID, name)
			}
			refetch = append(refetch, boundary.Refetch{Name: name, Query: query})
		}
		cfg := boundary.GraphQLConfig{
			Endpoint:  s.GraphQLURL,
			Mutation:  document,
			ResultKey: spec.ResultKey,
			Refetch:   refetch,
		}
		if s.OnRefetch != nil {
			formID := def.ID
			cfg.OnRefetch = func(name string, data any) { s.OnRefetch(formID, name, data) }
		}
		b, err := boundary.NewGraphQL(cfg, s.transportOptions()...)
		if err != nil {
			return nil, fmt.Errorf("carbonclicks: form %q: %w", def.ID, err)
		}
		return b, nil

	case forms.BoundarySimulated:
		delay, err := spec.DelayDuration()
		if err != nil {
			return nil, fmt.Errorf("carbonclicks: form %q: %w", def.ID, err)
		}
		if s.SimulatedDelay > 0 {
			delay = s.SimulatedDelay
		}
		return boundary.Simulated{Delay: delay, Result: echoWithID}, nil
	}
	return nil, fmt.Errorf("carbonclicks: form %q has unsupported boundary kind %q", def.ID, spec.Kind)
}

var graphQLOperations = map[string]string{
	OperationCreateTest: boundary.CreateTestMutation,
}

var graphQLQueries = map[string]string{
	QueryTests: boundary.TestsQuery,
}

// echoWithID acknowledges a simulated submit the way the real endpoints do.
func echoWithID(values field.Values) submission.Outcome {
	data := map[string]any{"id": fmt.Sprintf("sim-%d", time.Now().UnixNano())}
	for name, value := range values {
		data[name] = value
	}
	return submission.Ok(data)
}

// NewController builds a controller for def with a fresh field set.
func NewController(def forms.Definition, s Settings, opts ...submission.Option) (*submission.Controller, error) {
	set, err := def.FieldSet()
	if err != nil {
		return nil, err
	}
	b, err := NewBoundary(def, s)
	if err != nil {
		return nil, err
	}

	base := []submission.Option{
		submission.WithName(def.ID),
		submission.WithLogger(s.logger()),
		submission.WithTimeout(s.SubmitTimeout),
	}
	if def.FailureMessage != "" {
		base = append(base, submission.WithFailureMessage(def.FailureMessage))
	}
	if s.OnCreate != nil {
		formID := def.ID
		base = append(base, submission.OnSuccess(func(state submission.State) { s.OnCreate(formID, state) }))
	}
	return submission.New(set, b, append(base, opts...)...)
}

// ControllerBuilder returns a constructor for any form in registry, suitable
// for per-session controller caches.
func ControllerBuilder(registry *forms.Registry, s Settings, opts ...submission.Option) func(formID string) (*submission.Controller, error) {
	return func(formID string) (*submission.Controller, error) {
		def, ok := registry.Get(formID)
		if !ok {
			return nil, fmt.Errorf("carbonclicks: unknown form %q", formID)
		}
		return NewController(def, s, opts...)
	}
}

// NewRenderers registers the HTML renderer (the fallback) and the JSON
// renderer.
func NewRenderers(opts ...html.Option) (*render.Registry, error) {
	htmlRenderer, err := html.New(opts...)
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	if err := registry.Register(htmlRenderer); err != nil {
		return nil, err
	}
	if err := registry.Register(render.JSONRenderer{}); err != nil {
		return nil, err
	}
	return registry, nil
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can copy or
// extend them.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the stylesheets served under /assets/.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(carbonclicks.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
