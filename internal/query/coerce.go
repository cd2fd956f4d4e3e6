package query

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/restfold/restfold/internal/schema"
)

// coerceValue converts a raw query-parameter string to the terminal field's
// declared type, using the same rules the canonical schema applies to JSON
// input. Failures name the offending path and raw value.
func coerceValue(field *schema.FieldDescriptor, path, raw string) (interface{}, error) {
	switch field.Type {
	case schema.TypeInt, schema.TypeBigInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &CoercionError{Path: path, Raw: raw, Reason: "not an integer"}
		}
		return n, nil

	case schema.TypeFloat, schema.TypeDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &CoercionError{Path: path, Raw: raw, Reason: "not a number"}
		}
		return f, nil

	case schema.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &CoercionError{Path: path, Raw: raw, Reason: "not a boolean"}
		}
		return b, nil

	case schema.TypeTimestamp:
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02", raw); err == nil {
			return ts, nil
		}
		return nil, &CoercionError{Path: path, Raw: raw, Reason: "not an ISO-8601 timestamp"}

	case schema.TypeDate:
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, &CoercionError{Path: path, Raw: raw, Reason: "not a date"}
		}
		return ts, nil

	case schema.TypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &CoercionError{Path: path, Raw: raw, Reason: "not a valid UUID"}
		}
		return id, nil

	default:
		// Text types filter on the raw string. Empty strings are valid
		// filter values.
		return raw, nil
	}
}
