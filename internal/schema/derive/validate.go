package derive

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/restfold/restfold/internal/schema"
)

// Validate runs a raw decoded payload through the variant: the input filter
// removes (or rejects) read-only keys, then values are normalized to their
// declared types and the canonical validators run on the filtered input. No
// validator ever observes a value for a field it isn't allowed to receive.
//
// The returned map is keyed by internal field name and contains only the
// fields the client actually submitted (plus declared defaults on creation),
// so callers can distinguish "absent" from "null" on partial updates.
func (v *Variant) Validate(input map[string]interface{}) (map[string]interface{}, error) {
	errs := NewValidationErrors()

	filtered := v.filterInput(input, errs)

	out := make(map[string]interface{}, len(filtered))
	for _, d := range v.fields {
		raw, submitted := filtered[d.Name]
		if !submitted {
			if v.Kind == Creation && d.Default != nil {
				out[d.Name] = d.Default
				continue
			}
			if v.Kind == Creation && d.Required {
				errs.Add(d.ExternalName(), "is required")
			}
			continue
		}

		value, err := normalizeValue(d.Type, raw)
		if err != nil {
			errs.Add(d.ExternalName(), err.Error())
			continue
		}

		for _, validator := range d.Validators {
			if err := validator.Validate(value); err != nil {
				errs.Add(d.ExternalName(), err.Error())
			}
		}
		out[d.Name] = value
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return out, nil
}

// filterInput maps external names to internal ones and strips read-only
// fields from the raw payload. Unknown keys are ignored; read-only keys are
// dropped silently unless the variant was derived with RaiseOnReadOnly.
func (v *Variant) filterInput(input map[string]interface{}, errs *ValidationErrors) map[string]interface{} {
	filtered := make(map[string]interface{}, len(input))
	for key, value := range input {
		d, ok := v.catalog.Lookup(key)
		if !ok {
			continue
		}
		if d.ReadOnly() {
			if v.raiseOnReadOnly {
				errs.Add(key, "field is read-only")
			}
			continue
		}
		filtered[d.Name] = value
	}
	return filtered
}

// normalizeValue converts a JSON-decoded value to the declared field type.
// These are the same conversion rules the query filter engine applies to raw
// parameter strings, restated for decoded JSON values.
func normalizeValue(t schema.FieldType, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch t {
	case schema.TypeInt, schema.TypeBigInt:
		switch n := value.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected an integer, got %v", n)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("expected an integer, got %T", value)

	case schema.TypeFloat, schema.TypeDecimal:
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected a number, got %T", value)

	case schema.TypeBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", value)

	case schema.TypeString, schema.TypeText, schema.TypeEmail, schema.TypeURL:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", value)

	case schema.TypeTimestamp:
		if ts, ok := value.(time.Time); ok {
			return ts, nil
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected an ISO-8601 timestamp, got %T", value)
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid ISO-8601 timestamp", s)
		}
		return ts, nil

	case schema.TypeDate:
		if ts, ok := value.(time.Time); ok {
			return ts, nil
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a date, got %T", value)
		}
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid date", s)
		}
		return ts, nil

	case schema.TypeUUID:
		if id, ok := value.(uuid.UUID); ok {
			return id, nil
		}
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a UUID, got %T", value)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid UUID", s)
		}
		return id, nil

	case schema.TypeJSON:
		return value, nil

	default:
		return value, nil
	}
}
