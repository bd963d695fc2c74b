package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions carry per-request data that is not part of the form state.
type RenderOptions struct {
	// Action is the URL the form posts to.
	Action string
	// HiddenFields are emitted as hidden inputs in name order.
	HiddenFields map[string]string
	// Theme supplies design tokens and asset URLs. nil renders unthemed.
	Theme *theme.RendererConfig
}
