package query

import (
	"strings"

	"github.com/restfold/restfold/internal/schema"
)

// Edge is one resolved relationship hop in a dotted path
type Edge struct {
	Name        string
	Source      string
	Target      string
	ForeignKey  string
	TargetTable string
}

// chainKey builds the join-deduplication key for an edge prefix. Edges are
// compared by name chain, not object identity, so two clauses that share the
// prefix reuse one join.
func chainKey(edges []Edge) string {
	names := make([]string, len(edges))
	for i, e := range edges {
		names[i] = e.Name
	}
	return strings.Join(names, ".")
}

// Resolver resolves dotted field paths against the relationship graph and
// the target resources' Field Catalogs.
type Resolver struct {
	registry *schema.Registry
}

// NewResolver creates a resolver over a resource registry
func NewResolver(registry *schema.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// ResolvePath splits a dotted path and resolves each segment: every segment
// except the last must name a one-cardinality relationship on the current
// resource, and the last must name a field that is not write-only on the
// final target. Returns the ordered edge chain (possibly empty) and the
// terminal field descriptor.
func (r *Resolver) ResolvePath(root, dottedPath string) ([]Edge, *schema.FieldDescriptor, error) {
	segments := strings.Split(dottedPath, ".")
	current := root
	edges := make([]Edge, 0, len(segments)-1)

	for _, segment := range segments[:len(segments)-1] {
		rel, ok := r.registry.Relationship(current, segment)
		if !ok {
			return nil, nil, &PathError{Path: dottedPath, Segment: segment, Kind: UnknownRelation}
		}
		if rel.Cardinality == schema.Many {
			return nil, nil, &PathError{Path: dottedPath, Segment: segment, Kind: UnsupportedCardinality}
		}
		target, ok := r.registry.Get(rel.Target)
		if !ok {
			return nil, nil, &PathError{Path: dottedPath, Segment: segment, Kind: UnknownRelation}
		}
		edges = append(edges, Edge{
			Name:        rel.Name,
			Source:      current,
			Target:      rel.Target,
			ForeignKey:  rel.ForeignKey,
			TargetTable: target.TableName,
		})
		current = rel.Target
	}

	terminal := segments[len(segments)-1]
	cat, ok := r.registry.Catalog(current)
	if !ok {
		return nil, nil, &PathError{Path: dottedPath, Segment: terminal, Kind: UnknownField}
	}
	field, ok := cat.Lookup(terminal)
	if !ok {
		return nil, nil, &PathError{Path: dottedPath, Segment: terminal, Kind: UnknownField}
	}
	if field.WriteOnly() {
		return nil, nil, &PathError{Path: dottedPath, Segment: terminal, Kind: WriteOnlyField}
	}

	return edges, field, nil
}
