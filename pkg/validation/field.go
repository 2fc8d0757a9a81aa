package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Field validation messages. They are hints for the person filling the form;
// the backend remains authoritative.
const (
	MessageInvalidEmail   = "Invalid email format"
	MessageInvalidFormat  = "Invalid format"
	MessageInvalidNumber  = "Must be a valid number"
	MessageAllRequired    = "All options must be selected"
	messageRequiredSuffix = " is required"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var patternCache sync.Map

// ValidateField runs the client-side checks for a single field and returns
// the messages in evaluation order. A nil result means the value is valid.
func ValidateField(field model.FormField, value any) []string {
	if field.IsRequired && model.IsEmpty(value) {
		return []string{RequiredMessage(field)}
	}
	if model.IsEmpty(value) {
		return nil
	}

	rules := field.ValidationRules
	var errs []string

	switch field.Type() {
	case model.FieldTypeEmail:
		if !emailPattern.MatchString(asString(value)) {
			errs = append(errs, MessageInvalidEmail)
		}

	case model.FieldTypeText, model.FieldTypeTextarea:
		s, ok := value.(string)
		if !ok {
			break
		}
		length := utf8.RuneCountInString(s)
		if rules.MinLength != nil && length < *rules.MinLength {
			errs = append(errs, fmt.Sprintf("Must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			errs = append(errs, fmt.Sprintf("Must be at most %d characters", *rules.MaxLength))
		}
		if rules.Pattern != nil && *rules.Pattern != "" && !matchesPattern(*rules.Pattern, s) {
			errs = append(errs, MessageInvalidFormat)
		}

	case model.FieldTypeNumber, model.FieldTypeCurrency:
		n, ok := ToNumber(value)
		if !ok {
			errs = append(errs, MessageInvalidNumber)
			break
		}
		if rules.Min != nil && n < *rules.Min {
			errs = append(errs, "Must be at least "+formatNumber(*rules.Min))
		}
		if rules.Max != nil && n > *rules.Max {
			errs = append(errs, "Must be at most "+formatNumber(*rules.Max))
		}

	case model.FieldTypeCheckbox:
		selected, isList := selectionCount(value)
		if rules.MinItems != nil && isList && selected < *rules.MinItems {
			errs = append(errs, fmt.Sprintf("Select at least %d options", *rules.MinItems))
		}
		if rules.AllRequired {
			if static := field.StaticOptions(); static != nil {
				if !isList || selected != len(static) {
					errs = append(errs, MessageAllRequired)
				}
			}
		}
	}

	return errs
}

// RequiredMessage is the message emitted for a missing required value.
func RequiredMessage(field model.FormField) string {
	label := model.Localize(field.Label, model.DefaultLocale)
	if label == "" {
		label = field.FieldName
	}
	return label + messageRequiredSuffix
}

// ToNumber coerces numbers, numeric strings and json.Number values.
func ToNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
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
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func matchesPattern(pattern, value string) bool {
	re := compilePattern(pattern)
	return re != nil && re.MatchString(value)
}

// compilePattern anchors pattern so it must match the whole value. Patterns
// that fail to compile are cached as nil.
func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		re = nil
	}
	patternCache.Store(pattern, re)
	return re
}

func selectionCount(value any) (int, bool) {
	switch typed := value.(type) {
	case []any:
		return len(typed), true
	case []string:
		return len(typed), true
	}
	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		return rv.Len(), true
	}
	return 0, false
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
