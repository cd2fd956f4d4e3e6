package schema

import (
	"fmt"
	"sync"
)

// ConfigError is a definition-time configuration error. It surfaces when a
// resource is declared or registered, never at request time.
type ConfigError struct {
	Resource string
	Field    string
	Message  string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema config error on %s.%s: %s", e.Resource, e.Field, e.Message)
	}
	return fmt.Sprintf("schema config error on %s: %s", e.Resource, e.Message)
}

// FieldDescriptor is the resolved metadata for one field: declared type,
// default, requiredness, and read/write visibility. Descriptors are computed
// once per resource and shared; they are never mutated after catalog build.
type FieldDescriptor struct {
	Name       string
	Type       FieldType
	Alias      string
	Default    interface{}
	Required   bool
	Capability Capability
	Validators []Validator
}

// ReadOnly returns true if the field never accepts client input
func (d *FieldDescriptor) ReadOnly() bool { return d.Capability == ReadOnly }

// WriteOnly returns true if the field is never emitted in responses
func (d *FieldDescriptor) WriteOnly() bool { return d.Capability == WriteOnly }

// ExternalName returns the name clients use for this field
func (d *FieldDescriptor) ExternalName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Name
}

// Catalog is the resolved, ordered field metadata for one canonical resource,
// including the read-only name set gathered from the resource and every parent
// catalog. Catalogs are immutable after build.
type Catalog struct {
	Resource string

	names  []string
	byName map[string]*FieldDescriptor
	// alias -> field name, for external lookups
	byAlias map[string]string

	readOnly map[string]bool
}

// Names returns field names in declaration order (parents first)
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of fields in the catalog
func (c *Catalog) Len() int { return len(c.names) }

// Descriptor returns the descriptor for a field name
func (c *Catalog) Descriptor(name string) (*FieldDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Lookup resolves a field by name or alias. This is the single lookup path
// used by derivation hooks and the query filter engine, so alias behavior is
// identical everywhere.
func (c *Catalog) Lookup(nameOrAlias string) (*FieldDescriptor, bool) {
	if d, ok := c.byName[nameOrAlias]; ok {
		return d, true
	}
	if name, ok := c.byAlias[nameOrAlias]; ok {
		return c.byName[name], true
	}
	return nil, false
}

// Each calls fn for every descriptor in declaration order
func (c *Catalog) Each(fn func(*FieldDescriptor)) {
	for _, name := range c.names {
		fn(c.byName[name])
	}
}

// BuildCatalog resolves a resource declaration plus an explicit list of parent
// catalogs into a Field Catalog. Parents are merged oldest-first: their fields
// come first in order and their read-only sets union into the result. A child
// redeclaring a field replaces the descriptor but cannot un-mark it read-only.
//
// Conflicting visibility (a write-only field also named read-only) is a
// ConfigError, as is naming an unknown field in ReadOnlyFields.
func BuildCatalog(res *Resource, parents ...*Catalog) (*Catalog, error) {
	cat := &Catalog{
		Resource: res.Name,
		byName:   make(map[string]*FieldDescriptor),
		byAlias:  make(map[string]string),
		readOnly: make(map[string]bool),
	}

	for _, parent := range parents {
		for _, name := range parent.names {
			if _, exists := cat.byName[name]; !exists {
				cat.names = append(cat.names, name)
			}
			cat.byName[name] = parent.byName[name]
		}
		for name := range parent.readOnly {
			cat.readOnly[name] = true
		}
	}

	for _, f := range res.Fields {
		if _, exists := res.Relationships[f.Name]; exists {
			return nil, &ConfigError{
				Resource: res.Name,
				Field:    f.Name,
				Message:  "name is declared as both a field and a relationship",
			}
		}
		if _, exists := cat.byName[f.Name]; !exists {
			cat.names = append(cat.names, f.Name)
		}
		cat.byName[f.Name] = &FieldDescriptor{
			Name:       f.Name,
			Type:       f.Type,
			Alias:      f.Alias,
			Default:    f.Default,
			Required:   f.Required,
			Capability: f.Capability,
			Validators: append([]Validator(nil), f.Validators...),
		}
	}

	for _, name := range res.ReadOnlyFields {
		if _, exists := cat.byName[name]; !exists {
			return nil, &ConfigError{
				Resource: res.Name,
				Field:    name,
				Message:  "read_only_fields names an unknown field",
			}
		}
		cat.readOnly[name] = true
	}

	// Apply the accumulated read-only set. The set is sticky: a field marked
	// read-only by any ancestor stays read-only even if redeclared.
	for name := range cat.readOnly {
		d, exists := cat.byName[name]
		if !exists {
			continue
		}
		if d.Capability == WriteOnly {
			return nil, &ConfigError{
				Resource: res.Name,
				Field:    name,
				Message:  "field cannot be both read-only and write-only",
			}
		}
		if d.Capability != ReadOnly {
			clone := *d
			clone.Capability = ReadOnly
			cat.byName[name] = &clone
		}
	}

	for _, name := range cat.names {
		d := cat.byName[name]
		if d.Alias == "" {
			continue
		}
		if other, exists := cat.byAlias[d.Alias]; exists && other != name {
			return nil, &ConfigError{
				Resource: res.Name,
				Field:    name,
				Message:  fmt.Sprintf("alias %q is already used by field %q", d.Alias, other),
			}
		}
		cat.byAlias[d.Alias] = name
	}

	return cat, nil
}

// catalogCache caches catalogs per resource for the process lifetime. The
// build is a pure function of the declaration, so a first-population race
// between two requests yields interchangeable results.
var catalogCache sync.Map // resource name -> *Catalog

// CatalogFor returns the cached catalog for a resource, building it on first
// use. Resources with parent catalogs must call BuildCatalog directly and
// register the result with StoreCatalog.
func CatalogFor(res *Resource) (*Catalog, error) {
	if cached, ok := catalogCache.Load(res.Name); ok {
		return cached.(*Catalog), nil
	}
	cat, err := BuildCatalog(res)
	if err != nil {
		return nil, err
	}
	actual, _ := catalogCache.LoadOrStore(res.Name, cat)
	return actual.(*Catalog), nil
}

// StoreCatalog caches a prebuilt catalog (one assembled with parent catalogs)
func StoreCatalog(cat *Catalog) {
	catalogCache.Store(cat.Resource, cat)
}

// ResetCatalogCache clears the catalog cache. Test helper.
func ResetCatalogCache() {
	catalogCache.Range(func(key, _ interface{}) bool {
		catalogCache.Delete(key)
		return true
	})
}
