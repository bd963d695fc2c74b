package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

// Boundary kinds understood by the hosts.
const (
	BoundaryREST      = "rest"
	BoundaryGraphQL   = "graphql"
	BoundarySimulated = "simulated"
)

// Definition declares one form: its copy, its fields, and the external call
// its controller should make.
type Definition struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty" yaml:"ariaLabel,omitempty"`

	SubmitLabel    string `json:"submitLabel,omitempty" yaml:"submitLabel,omitempty"`
	PendingLabel   string `json:"pendingLabel,omitempty" yaml:"pendingLabel,omitempty"`
	SuccessMessage string `json:"successMessage,omitempty" yaml:"successMessage,omitempty"`
	// FailureMessage replaces whatever the boundary reported when set.
	FailureMessage string `json:"failureMessage,omitempty" yaml:"failureMessage,omitempty"`
	// EnableWhenFilled lists fields that must be non-empty before the submit
	// button is enabled. Validation still enforces them on submit.
	EnableWhenFilled []string `json:"enableWhenFilled,omitempty" yaml:"enableWhenFilled,omitempty"`

	Boundary BoundarySpec `json:"boundary" yaml:"boundary"`
	Fields   []FieldSpec  `json:"fields" yaml:"fields"`

	Source string `json:"-" yaml:"-"`
}

// BoundarySpec selects and parameterises the external call.
type BoundarySpec struct {
	Kind string `json:"kind" yaml:"kind"`
	// Path is appended to the configured API base URL for rest boundaries.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Operation names a built-in GraphQL document (createTest); Document
	// supplies one inline instead.
	Operation string   `json:"operation,omitempty" yaml:"operation,omitempty"`
	Document  string   `json:"document,omitempty" yaml:"document,omitempty"`
	ResultKey string   `json:"resultKey,omitempty" yaml:"resultKey,omitempty"`
	Refetch   []string `json:"refetch,omitempty" yaml:"refetch,omitempty"`
	// Delay is a Go duration string used by simulated boundaries.
	Delay string `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// DelayDuration parses Delay; an empty value yields zero.
func (b BoundarySpec) DelayDuration() (time.Duration, error) {
	if strings.TrimSpace(b.Delay) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(b.Delay))
}

// FieldSpec is the serialisable shape of field.Field.
type FieldSpec struct {
	Name            string         `json:"name" yaml:"name"`
	Label           string         `json:"label,omitempty" yaml:"label,omitempty"`
	Kind            string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Placeholder     string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help            string         `json:"help,omitempty" yaml:"help,omitempty"`
	Required        bool           `json:"required,omitempty" yaml:"required,omitempty"`
	RequiredMessage string         `json:"requiredMessage,omitempty" yaml:"requiredMessage,omitempty"`
	Initial         any            `json:"initial,omitempty" yaml:"initial,omitempty"`
	Rows            int            `json:"rows,omitempty" yaml:"rows,omitempty"`
	Options         []field.Option `json:"options,omitempty" yaml:"options,omitempty"`
	Rules           []field.Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Field converts the spec to a field declaration.
func (s FieldSpec) Field() field.Field {
	kind := field.Kind(strings.ToLower(strings.TrimSpace(s.Kind)))
	if kind == "" {
		kind = field.KindText
	}
	return field.Field{
		Name:            s.Name,
		Label:           s.Label,
		Help:            s.Help,
		Placeholder:     s.Placeholder,
		Kind:            kind,
		Initial:         s.Initial,
		Required:        s.Required,
		RequiredMessage: s.RequiredMessage,
		Options:         s.Options,
		Rules:           s.Rules,
	}
}

// FieldSet builds a fresh field.Set. Each controller gets its own.
func (d Definition) FieldSet() (*field.Set, error) {
	fields := make([]field.Field, len(d.Fields))
	for i, spec := range d.Fields {
		fields[i] = spec.Field()
	}
	set, err := field.New(fields...)
	if err != nil {
		return nil, fmt.Errorf("forms: %s: %w", d.ID, err)
	}
	return set, nil
}

// FieldNames lists declared names in order.
func (d Definition) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, spec := range d.Fields {
		names[i] = spec.Name
	}
	return names
}

// SubmitText returns the button label for the current busy flag.
func (d Definition) SubmitText(busy bool) string {
	if busy {
		if d.PendingLabel != "" {
			return d.PendingLabel
		}
		return "Submitting..."
	}
	if d.SubmitLabel != "" {
		return d.SubmitLabel
	}
	return "Submit"
}

// Validate checks the definition is self-consistent: the field set builds,
// enable-when-filled names exist, and the boundary is usable.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("forms: definition %s has no id", d.Source)
	}
	set, err := d.FieldSet()
	if err != nil {
		return err
	}
	if err := set.Require(d.EnableWhenFilled...); err != nil {
		return fmt.Errorf("forms: %s enableWhenFilled: %w", d.ID, err)
	}
	switch d.Boundary.Kind {
	case BoundaryREST:
		if !strings.HasPrefix(d.Boundary.Path, "/") {
			return fmt.Errorf("forms: %s rest boundary path %q must start with /", d.ID, d.Boundary.Path)
		}
	case BoundaryGraphQL:
		if d.Boundary.Operation == "" && d.Boundary.Document == "" {
			return fmt.Errorf("forms: %s graphql boundary needs an operation or document", d.ID)
		}
	case BoundarySimulated:
		if _, err := d.Boundary.DelayDuration(); err != nil {
			return fmt.Errorf("forms: %s simulated delay: %w", d.ID, err)
		}
	default:
		return fmt.Errorf("forms: %s has unsupported boundary kind %q", d.ID, d.Boundary.Kind)
	}
	return nil
}
