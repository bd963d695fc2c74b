package field

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerce converts an incoming value to the representation used for kind. The
// boolean result is false when the input could not be converted; the raw value
// is returned in that case so validation can report it.
func coerce(kind Kind, value any) (any, bool) {
	switch kind {
	case KindNumber:
		return coerceNumber(value)
	case KindList:
		return coerceList(value), true
	default:
		return FormatValue(value), true
	}
}

func coerceNumber(value any) (any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, true
	case float64:
		return typed, !math.IsNaN(typed) && !math.IsInf(typed, 0)
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return nil, true
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return typed, false
		}
		return parsed, true
	default:
		return value, false
	}
}

func coerceList(value any) []string {
	switch typed := value.(type) {
	case nil:
		return []string{}
	case []string:
		return cleanList(typed)
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, FormatValue(item))
		}
		return cleanList(items)
	case string:
		return cleanList(strings.FieldsFunc(typed, func(r rune) bool {
			return r == '\n' || r == ','
		}))
	default:
		return cleanList([]string{FormatValue(value)})
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FormatValue renders a field value as display text. Lists are joined with
// newlines to round-trip through a textarea.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case []string:
		return strings.Join(typed, "\n")
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []string:
		return len(typed) == 0
	default:
		return false
	}
}
