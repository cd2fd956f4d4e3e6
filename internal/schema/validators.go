package schema

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator defines the interface for field validators. Validators run against
// coerced values; nil values are skipped (requiredness is checked separately).
type Validator interface {
	Validate(value interface{}) error
}

// MinValidator validates minimum values for numeric types and string lengths
type MinValidator struct {
	Min       interface{}
	FieldType FieldType
}

// Validate implements the Validator interface
func (v *MinValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v.FieldType {
	case TypeInt, TypeBigInt:
		intVal, ok := toInt64(value)
		if !ok {
			return fmt.Errorf("expected integer value")
		}
		minVal, ok := toInt64(v.Min)
		if !ok {
			return fmt.Errorf("invalid min constraint")
		}
		if intVal < minVal {
			return fmt.Errorf("must be at least %d", minVal)
		}

	case TypeFloat, TypeDecimal:
		floatVal, ok := toFloat64(value)
		if !ok {
			return fmt.Errorf("expected numeric value")
		}
		minVal, ok := toFloat64(v.Min)
		if !ok {
			return fmt.Errorf("invalid min constraint")
		}
		if floatVal < minVal {
			return fmt.Errorf("must be at least %v", minVal)
		}

	case TypeString, TypeText, TypeEmail, TypeURL:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		minLen, ok := toInt64(v.Min)
		if !ok {
			return fmt.Errorf("invalid min constraint")
		}
		if int64(utf8.RuneCountInString(strVal)) < minLen {
			return fmt.Errorf("must be at least %d characters", minLen)
		}
	}

	return nil
}

// MaxValidator validates maximum values for numeric types and string lengths
type MaxValidator struct {
	Max       interface{}
	FieldType FieldType
}

// Validate implements the Validator interface
func (v *MaxValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v.FieldType {
	case TypeInt, TypeBigInt:
		intVal, ok := toInt64(value)
		if !ok {
			return fmt.Errorf("expected integer value")
		}
		maxVal, ok := toInt64(v.Max)
		if !ok {
			return fmt.Errorf("invalid max constraint")
		}
		if intVal > maxVal {
			return fmt.Errorf("must be at most %d", maxVal)
		}

	case TypeFloat, TypeDecimal:
		floatVal, ok := toFloat64(value)
		if !ok {
			return fmt.Errorf("expected numeric value")
		}
		maxVal, ok := toFloat64(v.Max)
		if !ok {
			return fmt.Errorf("invalid max constraint")
		}
		if floatVal > maxVal {
			return fmt.Errorf("must be at most %v", maxVal)
		}

	case TypeString, TypeText, TypeEmail, TypeURL:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		maxLen, ok := toInt64(v.Max)
		if !ok {
			return fmt.Errorf("invalid max constraint")
		}
		if int64(utf8.RuneCountInString(strVal)) > maxLen {
			return fmt.Errorf("must be at most %d characters", maxLen)
		}
	}

	return nil
}

// PatternValidator validates string values against a regex pattern
type PatternValidator struct {
	Pattern *regexp.Regexp
}

// Validate implements the Validator interface
func (v *PatternValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("pattern validation requires string value")
	}

	if !v.Pattern.MatchString(strVal) {
		return fmt.Errorf("does not match required pattern")
	}

	return nil
}

// EmailValidator validates email addresses
type EmailValidator struct{}

// Validate implements the Validator interface
func (v *EmailValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("email validation requires string value")
	}

	if strings.TrimSpace(strVal) == "" {
		return fmt.Errorf("email address cannot be empty")
	}

	if _, err := mail.ParseAddress(strVal); err != nil {
		return fmt.Errorf("must be a valid email address")
	}

	return nil
}

// URLValidator validates URLs
type URLValidator struct{}

// Validate implements the Validator interface
func (v *URLValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("URL validation requires string value")
	}

	if strings.TrimSpace(strVal) == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	parsedURL, err := url.Parse(strVal)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("URL must include a scheme (http, https, etc.)")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
