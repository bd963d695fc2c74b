package field

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	invalidNumberMessage = "Please enter a valid number"
	invalidOptionMessage = "Please select a valid option"
	invalidFormatMessage = "Invalid format"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the ordered list of issues produced by a validation
// pass. An empty result means the set is valid.
type ValidationResult struct {
	Issues []Issue `json:"issues,omitempty"`
}

// Valid reports whether no issues were recorded.
func (r ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// Has reports whether the named field has an issue.
func (r ValidationResult) Has(name string) bool {
	return r.Message(name) != ""
}

// Message returns the first message recorded for name, or "".
func (r ValidationResult) Message(name string) string {
	for _, issue := range r.Issues {
		if issue.Field == name {
			return issue.Message
		}
	}
	return ""
}

// Map flattens the result into field name -> message.
func (r ValidationResult) Map() map[string]string {
	if len(r.Issues) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(r.Issues))
	for _, issue := range r.Issues {
		if _, exists := out[issue.Field]; exists {
			continue
		}
		out[issue.Field] = issue.Message
	}
	return out
}

// Fields lists the names carrying issues, in result order.
func (r ValidationResult) Fields() []string {
	names := make([]string, 0, len(r.Issues))
	seen := make(map[string]struct{}, len(r.Issues))
	for _, issue := range r.Issues {
		if _, ok := seen[issue.Field]; ok {
			continue
		}
		seen[issue.Field] = struct{}{}
		names = append(names, issue.Field)
	}
	return names
}

type bound struct {
	value   float64
	message string
}

type lengthBound struct {
	value   int
	message string
}

type compiledPattern struct {
	re      *regexp.Regexp
	message string
}

// ruleSet is the parsed form of a field's declarative rules.
type ruleSet struct {
	min      *bound
	max      *bound
	minLen   *lengthBound
	maxLen   *lengthBound
	patterns []compiledPattern
}

func compileRules(f Field) (ruleSet, error) {
	var rules ruleSet
	for _, rule := range f.Rules {
		switch rule.Kind {
		case RuleMin, RuleMax:
			raw := strings.TrimSpace(rule.Params["value"])
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return ruleSet{}, fmt.Errorf("field: %s rule %q on %q: %w", rule.Kind, raw, f.Name, err)
			}
			b := &bound{value: value, message: rule.Message}
			if rule.Kind == RuleMin {
				rules.min = b
			} else {
				rules.max = b
			}
		case RuleMinLength, RuleMaxLength:
			raw := strings.TrimSpace(rule.Params["value"])
			value, err := strconv.Atoi(raw)
			if err != nil || value < 0 {
				return ruleSet{}, fmt.Errorf("field: %s rule %q on %q is not a non-negative integer", rule.Kind, raw, f.Name)
			}
			b := &lengthBound{value: value, message: rule.Message}
			if rule.Kind == RuleMinLength {
				rules.minLen = b
			} else {
				rules.maxLen = b
			}
		case RulePattern:
			expr := rule.Params["pattern"]
			if expr == "" {
				return ruleSet{}, fmt.Errorf("field: pattern rule on %q has no pattern", f.Name)
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return ruleSet{}, fmt.Errorf("field: pattern rule on %q: %w", f.Name, err)
			}
			rules.patterns = append(rules.patterns, compiledPattern{re: re, message: rule.Message})
		default:
			return ruleSet{}, fmt.Errorf("field: unsupported rule kind %q on %q", rule.Kind, f.Name)
		}
	}
	return rules, nil
}

// check returns the message for the first failing constraint, or "".
func check(f Field, rules ruleSet, value any, parsed bool) string {
	if f.Kind == KindNumber && !parsed {
		return invalidNumberMessage
	}
	if isEmpty(value) {
		if f.Required {
			if f.RequiredMessage != "" {
				return f.RequiredMessage
			}
			return DefaultRequiredMessage
		}
		return ""
	}

	switch f.Kind {
	case KindNumber:
		number, _ := value.(float64)
		if rules.min != nil && number < rules.min.value {
			return pick(rules.min.message, "Must be at least %s", formatBound(rules.min.value))
		}
		if rules.max != nil && number > rules.max.value {
			return pick(rules.max.message, "Must be at most %s", formatBound(rules.max.value))
		}
	case KindList:
		items, _ := value.([]string)
		if msg := checkLength(rules, len(items), "items"); msg != "" {
			return msg
		}
		for _, item := range items {
			if msg := checkPatterns(rules, item); msg != "" {
				return msg
			}
		}
	default:
		text, _ := value.(string)
		if f.Kind == KindSelect && len(f.Options) > 0 && !f.HasOption(text) {
			return invalidOptionMessage
		}
		if msg := checkLength(rules, utf8.RuneCountInString(text), "characters"); msg != "" {
			return msg
		}
		if msg := checkPatterns(rules, text); msg != "" {
			return msg
		}
	}

	if f.Validator != nil {
		if err := f.Validator(value); err != nil {
			if msg := strings.TrimSpace(err.Error()); msg != "" {
				return msg
			}
			return invalidFormatMessage
		}
	}
	return ""
}

func checkLength(rules ruleSet, length int, unit string) string {
	if rules.minLen != nil && length < rules.minLen.value {
		return pick(rules.minLen.message, "Must be at least %s", fmt.Sprintf("%d %s", rules.minLen.value, unit))
	}
	if rules.maxLen != nil && length > rules.maxLen.value {
		return pick(rules.maxLen.message, "Must be at most %s", fmt.Sprintf("%d %s", rules.maxLen.value, unit))
	}
	return ""
}

func checkPatterns(rules ruleSet, text string) string {
	for _, p := range rules.patterns {
		if !p.re.MatchString(text) {
			return pick(p.message, "%s", invalidFormatMessage)
		}
	}
	return ""
}

func pick(custom, format, arg string) string {
	if custom != "" {
		return custom
	}
	return fmt.Sprintf(format, arg)
}

func formatBound(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
