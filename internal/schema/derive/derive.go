// Package derive builds request and response schema variants from a canonical
// Field Catalog. Variants are constructed structurally: each one owns an
// explicit field list plus copies of the canonical validators wrapped by an
// input-filtering step, rather than inheriting from the canonical schema.
package derive

import (
	"fmt"
	"sync"

	"github.com/restfold/restfold/internal/schema"
)

// Kind identifies a derivation rule
type Kind int

const (
	// Creation variants omit read-only fields from the accepted input
	Creation Kind = iota
	// Update variants make every field optional, enabling partial updates
	Update
	// Response variants remove write-only fields from serialized output
	Response
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Creation:
		return "creation"
	case Update:
		return "update"
	case Response:
		return "response"
	default:
		return "unknown"
	}
}

// Variant is a derived schema: an explicit field list produced from a
// canonical catalog by one derivation rule. Variants are immutable and safe
// for concurrent use.
type Variant struct {
	Name string
	Kind Kind

	catalog *schema.Catalog
	// fields the variant accepts (creation/update) or emits (response),
	// in catalog order
	fields []*schema.FieldDescriptor

	raiseOnReadOnly bool
}

// Option configures a derivation
type Option func(*Variant)

// RaiseOnReadOnly makes the input filter reject payloads containing read-only
// fields instead of silently dropping them.
func RaiseOnReadOnly() Option {
	return func(v *Variant) { v.raiseOnReadOnly = true }
}

// CreationSchema derives the creation variant: read-only fields are removed
// from the accepted input surface, and the input hook strips (or rejects) any
// read-only key before the canonical validators run. A catalog with zero
// fields derives an empty variant.
func CreationSchema(cat *schema.Catalog, opts ...Option) *Variant {
	v := &Variant{
		Name:    "Create" + cat.Resource,
		Kind:    Creation,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(v)
	}
	cat.Each(func(d *schema.FieldDescriptor) {
		if d.ReadOnly() {
			return
		}
		v.fields = append(v.fields, d)
	})
	return v
}

// UpdateSchema derives the update variant: identical construction to the
// creation variant except every field becomes optional, so a partial payload
// validates successfully. So does an empty one.
func UpdateSchema(cat *schema.Catalog, opts ...Option) *Variant {
	v := &Variant{
		Name:    "Update" + cat.Resource,
		Kind:    Update,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(v)
	}
	cat.Each(func(d *schema.FieldDescriptor) {
		if d.ReadOnly() {
			return
		}
		optional := *d
		optional.Required = false
		optional.Default = nil
		v.fields = append(v.fields, &optional)
	})
	return v
}

// ResponseSchema derives the response variant: write-only fields are removed
// entirely, so serialization can never emit their values. Read-only fields
// stay visible and carry a readOnly marker in the documentation metadata.
func ResponseSchema(cat *schema.Catalog) *Variant {
	v := &Variant{
		Name:    cat.Resource + "Response",
		Kind:    Response,
		catalog: cat,
	}
	cat.Each(func(d *schema.FieldDescriptor) {
		if d.WriteOnly() {
			return
		}
		v.fields = append(v.fields, d)
	})
	return v
}

// Fields returns the variant's descriptors in catalog order
func (v *Variant) Fields() []*schema.FieldDescriptor {
	out := make([]*schema.FieldDescriptor, len(v.fields))
	copy(out, v.fields)
	return out
}

// Has returns true if the variant accepts or emits the named field
func (v *Variant) Has(name string) bool {
	for _, d := range v.fields {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Shape filters an entity row for serialization: write-only values are
// dropped even if the in-memory row carries them, and fields are keyed by
// their external name. Only meaningful on response variants; request variants
// return the row unchanged.
func (v *Variant) Shape(row map[string]interface{}) map[string]interface{} {
	if v.Kind != Response {
		return row
	}
	out := make(map[string]interface{}, len(v.fields))
	for _, d := range v.fields {
		if value, exists := row[d.Name]; exists {
			out[d.ExternalName()] = value
		}
	}
	return out
}

// variantCache caches derived variants per canonical schema for the process
// lifetime. Keyed by resource, kind and options; population races are benign
// because derivation is a pure function of the catalog.
var variantCache sync.Map

// For returns the cached variant for a catalog, deriving it on first request
func For(cat *schema.Catalog, kind Kind, opts ...Option) *Variant {
	probe := &Variant{catalog: cat}
	for _, opt := range opts {
		opt(probe)
	}
	key := fmt.Sprintf("%s/%s/raise=%t", cat.Resource, kind, probe.raiseOnReadOnly)
	if cached, ok := variantCache.Load(key); ok {
		return cached.(*Variant)
	}

	var v *Variant
	switch kind {
	case Creation:
		v = CreationSchema(cat, opts...)
	case Update:
		v = UpdateSchema(cat, opts...)
	default:
		v = ResponseSchema(cat)
	}
	actual, _ := variantCache.LoadOrStore(key, v)
	return actual.(*Variant)
}

// ResetCache clears the variant cache. Test helper.
func ResetCache() {
	variantCache.Range(func(key, _ interface{}) bool {
		variantCache.Delete(key)
		return true
	})
}
