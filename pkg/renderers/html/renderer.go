package html

import (
	"context"
	"fmt"
	stdhtml "html"
	"io/fs"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"

	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	rendertemplate "github.com/bullrushinvestments/carbonclicks/pkg/render/template"
	gotemplate "github.com/bullrushinvestments/carbonclicks/pkg/render/template/gotemplate"
)

// Product copy for the landing page.
const (
	ProductName        = "CarbonClicks"
	ProductDescription = "A micro-SaaS platform that helps e-commerce businesses and content creators measure their carbon footprint and offers sustainable solutions to reduce it, integrating with popular shopping carts like Shopify."
)

const (
	layoutTemplate  = "templates/layout.tmpl"
	formTemplate    = "templates/form.tmpl"
	landingTemplate = "templates/landing.tmpl"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateDir      string
	templateRenderer rendertemplate.TemplateRenderer
	stylesheet       string
	script           string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templateDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithStylesheetURL sets the stylesheet linked when the theme has none.
func WithStylesheetURL(url string) Option {
	return func(cfg *config) {
		cfg.stylesheet = strings.TrimSpace(url)
	}
}

// WithScriptURL sets the enhancement script linked from every page. An empty
// url renders pages without script.
func WithScriptURL(url string) Option {
	return func(cfg *config) {
		cfg.script = strings.TrimSpace(url)
	}
}

// Renderer draws full HTML pages for forms and the landing page.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	stylesheet string
	script     string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		stylesheet: "/assets/" + StylesheetName,
		script:     "/assets/" + ScriptName,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithBaseDir(cfg.templateDir),
			gotemplate.WithExtension(".tmpl"),
			gotemplate.WithFilters(map[string]pongo2.FilterFunction{"trim": filterTrim}),
			gotemplate.WithGlobalData(map[string]any{
				"product": map[string]any{"name": ProductName, "description": ProductDescription},
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{templates: renderer, stylesheet: cfg.stylesheet, script: cfg.script}, nil
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws one form page.
func (r *Renderer) Render(_ context.Context, view render.View, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}

	data := map[string]any{
		"form":   view,
		"action": options.Action,
		"hidden": render.SortedHiddenFields(options.HiddenFields),
	}
	if options.Action != "" {
		data["reset_action"] = strings.TrimRight(options.Action, "/") + "/reset"
	}

	body, err := r.templates.RenderTemplate(formTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render form %q: %w", view.ID, err)
	}
	return r.layout(view.Title, view.Description, body, options.Theme)
}

// FormLink is one entry in the landing page navigation.
type FormLink struct {
	Title       string `json:"title"`
	Href        string `json:"href"`
	Description string `json:"description,omitempty"`
}

// Landing is the data for the product landing page. Description may carry
// inline markup; it is sanitised before rendering.
type Landing struct {
	Title       string
	Description string
	// Icon is optional inline SVG.
	Icon  string
	Forms []FormLink
}

// DefaultLanding returns the product landing copy.
func DefaultLanding(forms ...FormLink) Landing {
	return Landing{Title: ProductName, Description: ProductDescription, Forms: forms}
}

// RenderLanding draws the landing page.
func (r *Renderer) RenderLanding(_ context.Context, landing Landing, cfg *theme.RendererConfig) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	links := append([]FormLink(nil), landing.Forms...)
	sort.SliceStable(links, func(i, j int) bool { return links[i].Title < links[j].Title })

	body, err := r.templates.RenderTemplate(landingTemplate, map[string]any{
		"title":       landing.Title,
		"description": sanitizeCopy(landing.Description),
		"icon":        sanitizeIcon(landing.Icon),
		"forms":       links,
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render landing: %w", err)
	}
	return r.layout(landing.Title, stripTags(landing.Description), body, cfg)
}

func (r *Renderer) layout(title, description, body string, cfg *theme.RendererConfig) ([]byte, error) {
	out, err := r.templates.RenderTemplate(layoutTemplate, map[string]any{
		"title":       title,
		"description": description,
		"body":        body,
		"stylesheet":  r.stylesheetURL(cfg),
		"script":      r.script,
		"theme":       buildThemeContext(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render layout: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) stylesheetURL(cfg *theme.RendererConfig) string {
	if cfg != nil && cfg.AssetURL != nil {
		if url := cfg.AssetURL(AssetStyle); url != "" {
			return url
		}
	}
	return r.stylesheet
}

type themeContext struct {
	Name         string `json:"name,omitempty"`
	Variant      string `json:"variant,omitempty"`
	CSSVarsStyle string `json:"css_vars_style,omitempty"`
	VariantStyle string `json:"variant_stylesheet,omitempty"`
}

func buildThemeContext(cfg *theme.RendererConfig) themeContext {
	if cfg == nil {
		return themeContext{}
	}
	ctx := themeContext{
		Name:         cfg.Theme,
		Variant:      cfg.Variant,
		CSSVarsStyle: cssVarsStyle(cfg.CSSVars),
	}
	if cfg.AssetURL != nil {
		ctx.VariantStyle = cfg.AssetURL(AssetVariant)
	}
	return ctx
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		name := key
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		fmt.Fprintf(&b, "%s: %s; ", name, vars[key])
	}
	return strings.TrimSpace(b.String())
}

func stripTags(raw string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(strictPolicy().Sanitize(raw)))
}
