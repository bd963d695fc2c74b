package render

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// JSONRenderer serialises the View for script clients.
type JSONRenderer struct{}

func (JSONRenderer) Name() string        { return "json" }
func (JSONRenderer) ContentType() string { return "application/json" }

// Render encodes view plus the hidden fields a client must echo back.
func (JSONRenderer) Render(_ context.Context, view View, options RenderOptions) ([]byte, error) {
	payload := struct {
		View
		Action string        `json:"action,omitempty"`
		Hidden []HiddenField `json:"hidden,omitempty"`
	}{
		View:   view,
		Action: options.Action,
		Hidden: SortedHiddenFields(options.HiddenFields),
	}
	out, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("render: encode json view: %w", err)
	}
	return out, nil
}
