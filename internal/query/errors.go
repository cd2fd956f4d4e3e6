package query

import "fmt"

// PathErrorKind classifies why a dotted path failed to resolve
type PathErrorKind int

const (
	// UnknownRelation means a non-terminal segment names no declared edge
	UnknownRelation PathErrorKind = iota
	// UnsupportedCardinality means a path traverses a many-valued edge
	UnsupportedCardinality
	// UnknownField means the terminal segment names no field
	UnknownField
	// WriteOnlyField means the terminal field never appears in responses
	// and therefore cannot be filtered or sorted on
	WriteOnlyField
)

// String returns the string representation of the kind
func (k PathErrorKind) String() string {
	switch k {
	case UnknownRelation:
		return "unknown_relation"
	case UnsupportedCardinality:
		return "unsupported_cardinality"
	case UnknownField:
		return "unknown_field"
	case WriteOnlyField:
		return "write_only_field"
	default:
		return "unknown"
	}
}

// PathError reports a filter/sort path that failed to resolve. These are
// per-request client errors, never retried.
type PathError struct {
	Path    string
	Segment string
	Kind    PathErrorKind
}

// Error implements the error interface
func (e *PathError) Error() string {
	switch e.Kind {
	case UnknownRelation:
		return fmt.Sprintf("invalid path %q: %q is not a declared relationship", e.Path, e.Segment)
	case UnsupportedCardinality:
		return fmt.Sprintf("invalid path %q: cannot filter through collection relationship %q", e.Path, e.Segment)
	case UnknownField:
		return fmt.Sprintf("invalid path %q: unknown field %q", e.Path, e.Segment)
	case WriteOnlyField:
		return fmt.Sprintf("invalid path %q: field %q is write-only", e.Path, e.Segment)
	default:
		return fmt.Sprintf("invalid path %q", e.Path)
	}
}

// CoercionError reports a raw value that could not be converted to the
// terminal field's declared type.
type CoercionError struct {
	Path   string
	Raw    string
	Reason string
}

// Error implements the error interface
func (e *CoercionError) Error() string {
	return fmt.Sprintf("invalid value %q for %q: %s", e.Raw, e.Path, e.Reason)
}

// PaginationError reports an out-of-bounds or malformed pagination parameter
type PaginationError struct {
	Param   string
	Message string
}

// Error implements the error interface
func (e *PaginationError) Error() string {
	return fmt.Sprintf("invalid pagination parameter %s: %s", e.Param, e.Message)
}
