package derive

import (
	"github.com/restfold/restfold/internal/schema"
)

// DocSchema emits JSON Schema flavored metadata for the variant, including
// readOnly/writeOnly markers, for API documentation generation.
func (v *Variant) DocSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(v.fields))
	required := make([]string, 0)

	for _, d := range v.fields {
		prop := map[string]interface{}{
			"type": jsonType(d.Type),
		}
		if format := jsonFormat(d.Type); format != "" {
			prop["format"] = format
		}
		if d.ReadOnly() {
			prop["readOnly"] = true
		}
		if d.WriteOnly() {
			prop["writeOnly"] = true
		}
		if d.Default != nil {
			prop["default"] = d.Default
		}
		properties[d.ExternalName()] = prop

		if v.Kind == Creation && d.Required && d.Default == nil {
			required = append(required, d.ExternalName())
		}
	}

	doc := map[string]interface{}{
		"title":      v.Name,
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func jsonType(t schema.FieldType) string {
	switch t {
	case schema.TypeInt, schema.TypeBigInt:
		return "integer"
	case schema.TypeFloat, schema.TypeDecimal:
		return "number"
	case schema.TypeBool:
		return "boolean"
	case schema.TypeJSON:
		return "object"
	default:
		return "string"
	}
}

func jsonFormat(t schema.FieldType) string {
	switch t {
	case schema.TypeTimestamp:
		return "date-time"
	case schema.TypeDate:
		return "date"
	case schema.TypeUUID:
		return "uuid"
	case schema.TypeEmail:
		return "email"
	case schema.TypeURL:
		return "uri"
	default:
		return ""
	}
}
