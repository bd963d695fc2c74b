package render

import (
	"fmt"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// View is everything a renderer needs to draw one form at one moment.
type View struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	AriaLabel   string      `json:"ariaLabel,omitempty"`
	Fields      []FieldView `json:"fields"`

	State submission.State `json:"state"`
	Phase string           `json:"phase"`
	Busy  bool             `json:"busy"`
	// PendingText is the role="status" text shown while busy.
	PendingText    string `json:"pendingText,omitempty"`
	SubmitLabel    string `json:"submitLabel"`
	SubmitDisabled bool   `json:"submitDisabled"`
	// EnableWhenFilled names the fields that must hold a value before a
	// client enables the submit control.
	EnableWhenFilled []string `json:"enableWhenFilled,omitempty"`
	// Banner is the form-level failure message.
	Banner string `json:"banner,omitempty"`
	// Success is the acknowledgement shown after a successful submit.
	Success string `json:"success,omitempty"`
}

// FieldView is one declared field with its current value and error.
type FieldView struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Kind        string         `json:"kind"`
	Placeholder string         `json:"placeholder,omitempty"`
	Help        string         `json:"help,omitempty"`
	Required    bool           `json:"required"`
	Rows        int            `json:"rows,omitempty"`
	Options     []field.Option `json:"options,omitempty"`
	Value       any            `json:"value"`
	Display     string         `json:"display"`
	Error       string         `json:"error,omitempty"`
}

// NewView snapshots c for def. Every field def renders must be declared on
// the controller's set; a mismatch is reported as a field.UnknownFieldError.
func NewView(def forms.Definition, c *submission.Controller) (View, error) {
	set := c.Fields()
	if err := set.Require(def.FieldNames()...); err != nil {
		return View{}, fmt.Errorf("render: form %q: %w", def.ID, err)
	}

	state := c.State()
	values, errs := set.Snapshot()

	view := View{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		AriaLabel:   def.AriaLabel,
		State:       state,
		Phase:       state.Phase.String(),
		Busy:        state.Busy(),
		SubmitLabel: def.SubmitText(state.Busy()),
		Fields:      make([]FieldView, 0, len(def.Fields)),
	}
	if view.Busy {
		view.PendingText = def.SubmitText(true)
	}

	switch state.Phase {
	case submission.PhaseFailed:
		view.Banner = state.Message
	case submission.PhaseSucceeded:
		view.Success = def.SuccessMessage
		if view.Success == "" {
			view.Success = "Submission successful"
		}
	}

	for _, spec := range def.Fields {
		declared, _ := set.Field(spec.Name)
		view.Fields = append(view.Fields, FieldView{
			Name:        declared.Name,
			Label:       declared.DisplayLabel(),
			Kind:        string(declared.Kind),
			Placeholder: declared.Placeholder,
			Help:        declared.Help,
			Required:    declared.Required,
			Rows:        spec.Rows,
			Options:     declared.Options,
			Value:       values[declared.Name],
			Display:     field.FormatValue(values[declared.Name]),
			Error:       errs.Message(declared.Name),
		})
	}

	view.EnableWhenFilled = append([]string(nil), def.EnableWhenFilled...)
	view.SubmitDisabled = view.Busy || !filled(values, def.EnableWhenFilled)
	return view, nil
}

func filled(values field.Values, names []string) bool {
	for _, name := range names {
		if field.FormatValue(values[name]) == "" {
			return false
		}
	}
	return true
}
