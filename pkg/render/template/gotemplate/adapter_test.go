package gotemplate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/flosch/pongo2/v6"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.tmpl":      {Data: []byte(`Hello {{ name }}!`)},
		"use-global.tmpl": {Data: []byte(`{{ product.name }} env={{ settings.env }}`)},
		"numbers.tmpl":    {Data: []byte(`rows="{{ form.rows }}" ratio={{ form.ratio }} items={{ form.items|join:"," }}`)},
		"escape.tmpl":     {Data: []byte(`<p>{{ text }}</p>`)},
	}
	engine, err := New(append([]Option{WithFS(files)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without base dir or fs")
	}
}

func TestEngine_RenderTemplateWritesToOutputs(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if got != "Hello Ada!" || buf.String() != got {
		t.Fatalf("unexpected output %q / %q", got, buf.String())
	}
}

func TestEngine_BaseDirTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.tmpl"), []byte(`Hi {{ name }} from disk`), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}
	engine := newEngine(t, WithBaseDir(dir))

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if got != "Hi Ada from disk" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_RenderDispatchesInlineContent(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.Render("{{ greeting|upper }}", map[string]any{"greeting": "hi"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "HI" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_GlobalData(t *testing.T) {
	type product struct {
		Name string `json:"name"`
	}
	engine := newEngine(t, WithGlobalData(map[string]any{"product": product{Name: "CarbonClicks"}}))
	if err := engine.GlobalContext(map[string]any{"settings": map[string]any{"env": "staging"}}); err != nil {
		t.Fatalf("GlobalContext: %v", err)
	}

	got, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if got != "CarbonClicks env=staging" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_StructDataKeepsIntegers(t *testing.T) {
	engine := newEngine(t)
	type form struct {
		Rows  int      `json:"rows"`
		Ratio float64  `json:"ratio"`
		Items []string `json:"items"`
	}

	got, err := engine.RenderTemplate("numbers", map[string]any{"form": form{Rows: 4, Ratio: 0.5, Items: []string{"a", "b"}}})
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if got != `rows="4" ratio=0.500000 items=a,b` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_Autoescapes(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderTemplate("escape", map[string]any{"text": "<script>alert(1)</script>"})
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Fatalf("expected escaped output, got %q", got)
	}
}

func TestEngine_WithFilters(t *testing.T) {
	reverse := func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		runes := []rune(in.String())
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return pongo2.AsValue(string(runes)), nil
	}
	engine := newEngine(t, WithFilters(map[string]pongo2.FilterFunction{"reverse_test": reverse}))
	// a second engine with the same filter name builds fine
	newEngine(t, WithFilters(map[string]pongo2.FilterFunction{"reverse_test": reverse}))

	got, err := engine.RenderString("{{ name|reverse_test }}", map[string]any{"name": "abc"})
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if got != "cba" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	shout := func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	}
	if err := engine.RegisterFilter("shout_test", shout); err != nil {
		t.Fatalf("RegisterFilter: %v", err)
	}
	if err := engine.RegisterFilter("shout_test", shout); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	got, err := engine.RenderString("{{ name|shout_test }}", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if got != "ADA!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_MissingTemplate(t *testing.T) {
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("absent", nil); err == nil {
		t.Fatalf("expected load error")
	}
}
