package html

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// Theme names and asset keys shipped with the renderer.
const (
	DefaultTheme   = "carbonclicks"
	VariantDark    = "dark"
	AssetStyle     = "html.stylesheet"
	AssetVariant   = "html.variant"
	defaultAssetAt = "/assets"
)

// DefaultManifest describes the built-in theme served from /assets.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultTheme,
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":          "#15803d",
			"brand-contrast": "#ffffff",
			"danger":         "#dc2626",
			"surface":        "#ffffff",
			"text":           "#111827",
		},
		Assets: theme.Assets{
			Prefix: defaultAssetAt,
			Files: map[string]string{
				AssetStyle: "carbonclicks.css",
			},
		},
		Variants: map[string]theme.Variant{
			VariantDark: {
				Tokens: map[string]string{
					"brand":   "#4ade80",
					"surface": "#111827",
					"text":    "#f9fafb",
				},
				Assets: theme.Assets{
					Files: map[string]string{
						AssetVariant: "carbonclicks-dark.css",
					},
				},
			},
		},
	}
}

// Themes selects registered manifests by name and variant. Manifests are also
// registered with a go-theme registry so invalid manifests are rejected up
// front.
type Themes struct {
	mu        sync.RWMutex
	registry  manifestRegistry
	manifests map[string]*theme.Manifest
	fallback  string
}

var _ theme.ThemeSelector = (*Themes)(nil)

type manifestRegistry interface {
	Register(*theme.Manifest) error
}

// NewThemes builds a selector seeded with manifests. The first manifest is
// the default when Select is called without a name.
func NewThemes(manifests ...*theme.Manifest) (*Themes, error) {
	t := &Themes{
		registry:  theme.NewRegistry(),
		manifests: make(map[string]*theme.Manifest),
	}
	for _, manifest := range manifests {
		if err := t.Register(manifest); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Register adds a manifest.
func (t *Themes) Register(manifest *theme.Manifest) error {
	if manifest == nil || strings.TrimSpace(manifest.Name) == "" {
		return fmt.Errorf("html: theme manifest name is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.manifests[manifest.Name]; exists {
		return fmt.Errorf("html: theme %q already registered", manifest.Name)
	}
	if err := t.registry.Register(manifest); err != nil {
		return fmt.Errorf("html: register theme %q: %w", manifest.Name, err)
	}
	t.manifests[manifest.Name] = manifest
	if t.fallback == "" {
		t.fallback = manifest.Name
	}
	return nil
}

// Names lists registered theme names.
func (t *Themes) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.manifests))
	for name := range t.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves name and variant. An empty name picks the default theme;
// an unknown variant is an error.
func (t *Themes) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if name == "" {
		name = t.fallback
	}
	manifest, ok := t.manifests[name]
	if !ok {
		return nil, fmt.Errorf("html: theme %q not found", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("html: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// ConfigFromSelection flattens a selection into the renderer config: variant
// tokens, templates and assets override the base manifest, and every token
// becomes a "--token" CSS variable.
func ConfigFromSelection(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest
	tokens := mergeStrings(manifest.Tokens, nil)
	partials := mergeStrings(manifest.Templates, nil)
	files := mergeStrings(manifest.Assets.Files, nil)
	prefix := manifest.Assets.Prefix

	if variant, ok := manifest.Variants[selection.Variant]; ok {
		tokens = mergeStrings(tokens, variant.Tokens)
		partials = mergeStrings(partials, variant.Templates)
		files = mergeStrings(files, variant.Assets.Files)
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars["--"+key] = value
	}

	return &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: partials,
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok {
				return ""
			}
			if strings.HasPrefix(file, "/") || strings.Contains(file, "://") {
				return file
			}
			return path.Join(prefix, file)
		},
	}
}

// ResolveTheme selects name/variant and returns the flattened config.
func ResolveTheme(selector theme.ThemeSelector, name, variant string) (*theme.RendererConfig, error) {
	if selector == nil {
		return nil, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, err
	}
	return ConfigFromSelection(selection), nil
}

func mergeStrings(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range override {
		out[key] = value
	}
	return out
}
