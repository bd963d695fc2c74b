package field

import (
	"sort"
	"strconv"
	"strings"
)

// ErrorMapping splits a server error payload into messages for declared fields
// and messages that belong to the form as a whole.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Result converts the field messages into a ValidationResult ordered by names,
// keeping the first message per field.
func (m ErrorMapping) Result(names []string) ValidationResult {
	var result ValidationResult
	for _, name := range names {
		messages := m.Fields[name]
		if len(messages) == 0 {
			continue
		}
		result.Issues = append(result.Issues, Issue{Field: name, Message: messages[0]})
	}
	return result
}

// MapErrorPayload resolves payload keys (JSON pointers such as "/data/title",
// dotted paths such as "body.featuresRequired[1]", or bare names) to the
// declared field names. Keys that resolve to nothing, and conventional
// form-level keys such as "non_field_errors", land in Form so no message is
// lost.
func MapErrorPayload(names []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	declared := make(map[string]struct{}, len(names))
	for _, name := range names {
		declared[name] = struct{}{}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		name, ok := resolveErrorKey(key, declared)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// ApplyErrorPayload maps payload onto the set's errors and returns the
// form-level messages.
func (s *Set) ApplyErrorPayload(payload map[string][]string) []string {
	names := s.Names()
	mapping := MapErrorPayload(names, payload)
	s.SetErrors(mapping.Result(names))
	return mapping.Form
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveErrorKey(raw string, declared map[string]struct{}) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	segments := dropWrapperSegments(splitErrorPath(raw))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		if _, ok := declared[segment]; ok {
			return segment, true
		}
		// The first named segment decides; nested paths under an unknown
		// parent are not guessed at.
		return "", false
	}
	return "", false
}

func splitErrorPath(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$./")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 0 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data", "attributes", "input", "variables":
			segments = segments[1:]
			continue
		}
		break
	}
	return segments
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
