package html_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	"github.com/bullrushinvestments/carbonclicks/pkg/renderers/html"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
	"github.com/bullrushinvestments/carbonclicks/pkg/testsupport"
)

func renderForm(t *testing.T, r *html.Renderer, def forms.Definition, c *submission.Controller, opts render.RenderOptions) string {
	t.Helper()
	view, err := render.NewView(def, c)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	out, err := r.Render(testsupport.Context(), view, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out)
}

func newRenderer(t *testing.T, opts ...html.Option) *html.Renderer {
	t.Helper()
	r, err := html.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRenderer_BusinessSpecificationForm(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.BusinessSpecification)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	r := newRenderer(t)

	out := renderForm(t, r, def, c, render.RenderOptions{
		Action:       "/forms/business-specification",
		HiddenFields: render.MergeHiddenFields(nil, render.Hidden(render.HiddenFormID, def.ID), render.SeqField(0)),
	})

	testsupport.MustContain(t, out,
		"<!DOCTYPE html>",
		`<link rel="stylesheet" href="/assets/carbonclicks.css">`,
		`<form method="post" action="/forms/business-specification" aria-label="Business specification form"`,
		`<input type="hidden" name="_form" value="business-specification">`,
		`<input type="hidden" name="_seq" value="0">`,
		`<label for="businessName">`,
		`<input type="number" id="numberOfUsers" name="numberOfUsers"`,
		`<textarea id="featuresRequired" name="featuresRequired"`,
		`<p id="businessName-error" class="cc-error cc-hidden" role="alert" aria-live="polite">`,
		`<button type="submit" class="cc-submit">Create</button>`,
		`action="/forms/business-specification/reset"`,
	)
	testsupport.MustNotContain(t, out, `role="status"`, `aria-invalid="true"`, "disabled")
}

func TestRenderer_InlineErrorsAfterInvalidSubmit(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.BusinessSpecification)
	boundary := &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)}
	c := testsupport.NewController(t, def, boundary)
	c.Submit(context.Background())

	out := renderForm(t, newRenderer(t), def, c, render.RenderOptions{Action: "/forms/business-specification"})
	testsupport.MustContain(t, out,
		`aria-invalid="true" aria-describedby="businessName-error"`,
		`<p id="businessName-error" class="cc-error" role="alert" aria-live="polite">This is required</p>`,
	)
	testsupport.MustNotContain(t, out, "cc-banner--error")
	if len(boundary.Calls()) != 0 {
		t.Fatalf("boundary should not be called for invalid input")
	}
}

func TestRenderer_FailureBannerKeepsValues(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.BusinessSpecification)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Err("server down")}, submission.WithFailureMessage(def.FailureMessage))
	for name, value := range map[string]any{
		"businessName":     "Acme <Goods>",
		"industryType":     "Retail",
		"numberOfUsers":    "12",
		"featuresRequired": "Reports, Offsets",
	} {
		if err := c.SetField(name, value); err != nil {
			t.Fatalf("SetField(%s): %v", name, err)
		}
	}
	c.Submit(context.Background())

	out := renderForm(t, newRenderer(t), def, c, render.RenderOptions{Action: "/forms/business-specification"})
	testsupport.MustContain(t, out,
		`role="alert" aria-live="assertive">An error occurred while creating the business specification.</div>`,
		`value="Acme &lt;Goods&gt;"`,
		`value="12"`,
		">Reports\nOffsets</textarea>",
		`data-phase="failed"`,
	)
	testsupport.MustNotContain(t, out, "<Goods>")
}

func TestRenderer_TestCaseSubmitUsableWithoutScript(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	r := newRenderer(t)

	out := renderForm(t, r, def, c, render.RenderOptions{})
	testsupport.MustContain(t, out,
		`<button type="submit" class="cc-submit" data-enable-when-filled="title description">Create Test</button>`,
		`<script src="/assets/carbonclicks.js" defer></script>`,
	)
	testsupport.MustNotContain(t, out, "cc-reset", " disabled>")

	out = renderForm(t, newRenderer(t, html.WithScriptURL("")), def, c, render.RenderOptions{})
	testsupport.MustNotContain(t, out, "<script")
}

func TestRenderer_PendingStatusWhileSubmitting(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.Requirements)
	release := make(chan struct{})
	entered := make(chan struct{})
	c := testsupport.NewController(t, def, submission.BoundaryFunc(func(ctx context.Context, _ field.Values) submission.Outcome {
		close(entered)
		<-release
		return submission.Ok(nil)
	}))
	_ = c.SetField("featureName", "Offsets")
	_ = c.SetField("description", "Buy offsets")
	_ = c.SetField("priority", "high")

	done := c.SubmitAsync(context.Background())
	<-entered
	out := renderForm(t, newRenderer(t), def, c, render.RenderOptions{})
	close(release)
	<-done

	testsupport.MustContain(t, out,
		`aria-busy="true"`,
		`<p class="cc-status" role="status">Submitting...</p>`,
		`<button type="submit" class="cc-submit" disabled>Submitting...</button>`,
		`<option value="high" selected>High</option>`,
	)
}

func TestRenderer_SelectPlaceholderAndSuccess(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.Requirements)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	r := newRenderer(t)

	out := renderForm(t, r, def, c, render.RenderOptions{})
	testsupport.MustContain(t, out, `<option value="">Select priority</option>`, `rows="4"`)

	_ = c.SetField("featureName", "Offsets")
	_ = c.SetField("description", "Buy offsets")
	_ = c.SetField("priority", "low")
	c.Submit(context.Background())
	out = renderForm(t, r, def, c, render.RenderOptions{})
	testsupport.MustContain(t, out, `<div class="cc-banner cc-banner--success" role="status">`)
	testsupport.MustNotContain(t, out, "selected>")
}

func TestRenderer_Landing(t *testing.T) {
	r := newRenderer(t)
	landing := html.DefaultLanding(
		html.FormLink{Title: "Write Tests", Href: "/forms/test-case"},
		html.FormLink{Title: "Create Business Specification", Href: "/forms/business-specification"},
	)
	landing.Icon = `<svg viewBox="0 0 24 24" onload="alert(1)"><path d="M1 1"/><script>x()</script></svg>`

	out, err := r.RenderLanding(testsupport.Context(), landing, nil)
	if err != nil {
		t.Fatalf("RenderLanding: %v", err)
	}
	got := string(out)
	testsupport.MustContain(t, got,
		"<title>CarbonClicks</title>",
		`<meta name="application-name" content="CarbonClicks">`,
		`<h1 class="cc-landing__title">CarbonClicks</h1>`,
		html.ProductDescription,
		`<a href="/forms/test-case">Write Tests</a>`,
		`<path d="M1 1"`,
	)
	testsupport.MustNotContain(t, got, "onload", "<script>")
	if strings.Index(got, "Create Business Specification") > strings.Index(got, "Write Tests") {
		t.Fatalf("expected links sorted by title")
	}
}

func TestRenderer_LandingSanitisesCopy(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderLanding(testsupport.Context(), html.Landing{
		Description: `Measure <strong>emissions</strong><img src=x onerror="alert(1)">`,
	}, nil)
	if err != nil {
		t.Fatalf("RenderLanding: %v", err)
	}
	testsupport.MustContain(t, string(out), "<strong>emissions</strong>", `content="Measure emissions"`)
	testsupport.MustNotContain(t, string(out), "onerror", "<img")
}

func TestRenderer_Themed(t *testing.T) {
	themes, err := html.NewThemes(html.DefaultManifest())
	if err != nil {
		t.Fatalf("NewThemes: %v", err)
	}
	cfg, err := html.ResolveTheme(themes, "", html.VariantDark)
	if err != nil {
		t.Fatalf("ResolveTheme: %v", err)
	}

	def := testsupport.MustBuiltin(t, forms.Requirements)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	out := renderForm(t, newRenderer(t), def, c, render.RenderOptions{Theme: cfg})

	testsupport.MustContain(t, out,
		`data-theme="carbonclicks" data-variant="dark"`,
		`<link rel="stylesheet" href="/assets/carbonclicks.css">`,
		`<link rel="stylesheet" href="/assets/carbonclicks-dark.css">`,
		"--brand: #4ade80;",
		"--danger: #dc2626;",
	)
}

func TestThemes_Select(t *testing.T) {
	themes, err := html.NewThemes(html.DefaultManifest())
	if err != nil {
		t.Fatalf("NewThemes: %v", err)
	}
	if err := themes.Register(html.DefaultManifest()); err == nil {
		t.Fatalf("expected duplicate theme error")
	}
	if _, err := themes.Select("missing", ""); err == nil {
		t.Fatalf("expected unknown theme error")
	}
	if _, err := themes.Select(html.DefaultTheme, "sepia"); err == nil {
		t.Fatalf("expected unknown variant error")
	}

	selection, err := themes.Select("", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	cfg := html.ConfigFromSelection(selection)
	if diff := cmp.Diff("#15803d", cfg.CSSVars["--brand"]); diff != "" {
		t.Fatalf("css var mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.AssetURL(html.AssetVariant); got != "" {
		t.Fatalf("base theme should not resolve variant asset, got %q", got)
	}
	if diff := cmp.Diff([]string{html.DefaultTheme}, themes.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_CustomTemplates(t *testing.T) {
	files := fstest.MapFS{
		"templates/layout.tmpl":  {Data: []byte(`[{{ title }}]{{ body|safe }}`)},
		"templates/form.tmpl":    {Data: []byte(`{% for f in form.fields %}{{ f.name }};{% endfor %}`)},
		"templates/landing.tmpl": {Data: []byte(`{{ title }}`)},
	}
	r := newRenderer(t, html.WithTemplatesFS(files))

	def := testsupport.MustBuiltin(t, forms.TestCase)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	out := renderForm(t, r, def, c, render.RenderOptions{})
	if out != "[Write Tests]title;description;" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNew_TemplatesDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"layout.tmpl":  `{{ body|safe }}`,
		"form.tmpl":    `{{ form.id }}`,
		"landing.tmpl": `{{ title|default:product.name }}|{{ product.name|upper }}`,
	}
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, "templates", name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	r := newRenderer(t, html.WithTemplatesDir(dir))

	out, err := r.RenderLanding(testsupport.Context(), html.Landing{}, nil)
	if err != nil {
		t.Fatalf("RenderLanding: %v", err)
	}
	if got := string(out); got != "CarbonClicks|CARBONCLICKS" {
		t.Fatalf("unexpected output %q", got)
	}

	if _, err := html.New(html.WithTemplatesDir(filepath.Join(dir, "missing"))); err == nil {
		t.Fatalf("expected error for missing template dir")
	}
}

func TestAssetsFS(t *testing.T) {
	for _, name := range []string{html.StylesheetName, html.ScriptName, "carbonclicks-dark.css"} {
		if _, err := html.AssetsFS().Open(name); err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
	}
}
