package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustBuiltin returns a built-in form definition by id.
func MustBuiltin(t *testing.T, id string) forms.Definition {
	t.Helper()

	registry, err := forms.Builtin()
	if err != nil {
		t.Fatalf("load builtin forms: %v", err)
	}
	def, ok := registry.Get(id)
	if !ok {
		t.Fatalf("builtin form %q not found", id)
	}
	return def
}

// LoadDefinition reads a definition fixture (JSON or YAML) from disk.
func LoadDefinition(path string) (forms.Definition, error) {
	if path == "" {
		return forms.Definition{}, errors.New("testsupport: definition path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return forms.Definition{}, fmt.Errorf("testsupport: read definition: %w", err)
	}
	return forms.ParseDefinition(data, path)
}

// MustLoadDefinition is LoadDefinition for tests.
func MustLoadDefinition(t *testing.T, path string) forms.Definition {
	t.Helper()

	def, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

// RecordingBoundary returns a scripted outcome and remembers every payload it
// received.
type RecordingBoundary struct {
	mu      sync.Mutex
	Outcome submission.Outcome
	calls   []field.Values
}

// Submit implements submission.Boundary.
func (b *RecordingBoundary) Submit(_ context.Context, values field.Values) submission.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, values.Clone())
	return b.Outcome
}

// Calls returns the payloads received so far.
func (b *RecordingBoundary) Calls() []field.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]field.Values(nil), b.calls...)
}

// NewController builds a controller for def backed by boundary.
func NewController(t *testing.T, def forms.Definition, boundary submission.Boundary, opts ...submission.Option) *submission.Controller {
	t.Helper()

	set, err := def.FieldSet()
	if err != nil {
		t.Fatalf("field set for %q: %v", def.ID, err)
	}
	opts = append([]submission.Option{submission.WithName(def.ID)}, opts...)
	c, err := submission.New(set, boundary, opts...)
	if err != nil {
		t.Fatalf("new controller for %q: %v", def.ID, err)
	}
	return c
}

// MustContain fails the test when any of fragments is missing from output.
func MustContain(t *testing.T, output string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(output, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, output)
		}
	}
}

// MustNotContain fails the test when any of fragments is present.
func MustNotContain(t *testing.T, output string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(output, fragment) {
			t.Fatalf("expected output not to contain %q\n%s", fragment, output)
		}
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
