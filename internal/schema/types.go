// Package schema defines canonical resource schemas for Restfold: field
// declarations with read/write visibility, relationships between resources,
// and the resolved Field Catalog that the derivation and query layers consume.
package schema

import (
	"fmt"
)

// FieldType represents the declared type of a resource field
type FieldType int

const (
	// Text types
	TypeString FieldType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate

	// Unique identifiers
	TypeUUID

	// Validated types
	TypeEmail
	TypeURL

	// JSON
	TypeJSON
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeUUID:
		return "uuid"
	case TypeEmail:
		return "email"
	case TypeURL:
		return "url"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "decimal":
		return TypeDecimal, nil
	case "bool":
		return TypeBool, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "uuid":
		return TypeUUID, nil
	case "email":
		return TypeEmail, nil
	case "url":
		return TypeURL, nil
	case "json":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// IsNumeric returns true if the type is a numeric type
func (t FieldType) IsNumeric() bool {
	return t == TypeInt || t == TypeBigInt || t == TypeFloat || t == TypeDecimal
}

// IsText returns true if the type is a text type
func (t FieldType) IsText() bool {
	return t == TypeString || t == TypeText || t == TypeEmail || t == TypeURL
}

// Capability marks the read/write visibility of a field. It is attached at
// declaration time; there is no runtime annotation introspection.
type Capability int

const (
	// ReadWrite fields are accepted as input and emitted in responses
	ReadWrite Capability = iota
	// ReadOnly fields are emitted in responses but never accepted as input
	ReadOnly
	// WriteOnly fields are accepted as input but never emitted in responses
	WriteOnly
)

// String returns the string representation of the capability
func (c Capability) String() string {
	switch c {
	case ReadWrite:
		return "read_write"
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	default:
		return "unknown"
	}
}

// Field declares a single field on a canonical resource schema
type Field struct {
	Name       string
	Type       FieldType
	Capability Capability

	// Alias is an alternate external name accepted in payloads and query
	// parameters. Empty means the field name is the only external name.
	Alias string

	// Required fields must be present on creation
	Required bool

	// Default value applied when the field is absent on creation
	Default interface{}

	// Field-level validators run against coerced input values
	Validators []Validator
}

// Cardinality represents how many target rows a relationship yields
type Cardinality int

const (
	// One cardinality relationships (belongs_to, has_one) can appear in
	// filter and sort paths
	One Cardinality = iota
	// Many cardinality relationships are declarable but rejected as filter
	// path segments
	Many
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Relationship declares a named edge from one resource to another
type Relationship struct {
	Name        string
	Target      string // target resource name
	Cardinality Cardinality

	// ForeignKey is the column on the owning side. Defaults to <name>_id for
	// one-cardinality edges and <source>_id on the target for many edges.
	ForeignKey string
}

// Resource is the canonical source-of-truth declaration for one REST resource.
// Create/update/response schema variants and query validation are all derived
// from it via its Catalog.
type Resource struct {
	Name      string
	TableName string

	Fields        []*Field
	Relationships map[string]*Relationship

	// ReadOnlyFields marks fields read-only by name, in addition to any
	// per-field Capability tag. Union-merged with parent catalogs, never
	// overridden.
	ReadOnlyFields []string
}

// NewResource creates a new resource declaration
func NewResource(name string) *Resource {
	return &Resource{
		Name:          name,
		TableName:     Pluralize(ToSnakeCase(name)),
		Fields:        make([]*Field, 0),
		Relationships: make(map[string]*Relationship),
	}
}

// AddField appends a field declaration and returns the resource for chaining
func (r *Resource) AddField(f *Field) *Resource {
	r.Fields = append(r.Fields, f)
	return r
}

// AddRelationship declares a relationship edge on the resource
func (r *Resource) AddRelationship(rel *Relationship) *Resource {
	if rel.ForeignKey == "" && rel.Cardinality == One {
		rel.ForeignKey = ToSnakeCase(rel.Name) + "_id"
	}
	r.Relationships[rel.Name] = rel
	return r
}

// Field returns the field declaration with the given name
func (r *Resource) Field(name string) (*Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// HasRelationship returns true if the resource declares the named edge
func (r *Resource) HasRelationship(name string) bool {
	_, exists := r.Relationships[name]
	return exists
}
