package field

// Kind is the simplified enum for form-friendly field kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindNumber   Kind = "number"
	KindSelect   Kind = "select"
	KindList     Kind = "list"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTextArea, KindNumber, KindSelect, KindList:
		return true
	default:
		return false
	}
}

const (
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
)

// DefaultRequiredMessage is reported for required fields left empty unless the
// field declares its own RequiredMessage.
const DefaultRequiredMessage = "This field is required"

// Rule represents a single validation constraint applied to a field. Numeric
// bounds and length limits encode their threshold in Params["value"] while
// pattern rules keep the expression in Params["pattern"]. Message replaces the
// generated error text when set.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is a selectable value for KindSelect fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Validator is a custom predicate run after the declarative rules. A non-nil
// error fails validation and its text becomes the field message.
type Validator func(value any) error

// Field declares one input of a form.
type Field struct {
	Name            string    `json:"name"`
	Label           string    `json:"label,omitempty"`
	Help            string    `json:"help,omitempty"`
	Placeholder     string    `json:"placeholder,omitempty"`
	Kind            Kind      `json:"kind"`
	Initial         any       `json:"initial,omitempty"`
	Required        bool      `json:"required"`
	RequiredMessage string    `json:"requiredMessage,omitempty"`
	Options         []Option  `json:"options,omitempty"`
	Rules           []Rule    `json:"rules,omitempty"`
	Validator       Validator `json:"-"`
}

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// HasOption reports whether value matches one of the declared options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Values is a snapshot of field values keyed by field name. Number fields hold
// float64, list fields []string, everything else string. A number field whose
// input could not be parsed keeps the raw string until it is corrected.
type Values map[string]any

// Clone returns a deep copy of the snapshot.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = cloneValue(value)
	}
	return out
}

// String returns the value formatted the way text inputs display it.
func (v Values) String(name string) string {
	return FormatValue(v[name])
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		if typed == nil {
			return []string(nil)
		}
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return typed
	}
}
