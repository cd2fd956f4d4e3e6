package query

import (
	"testing"

	"github.com/restfold/restfold/internal/schema"
)

func TestResolvePathLocalField(t *testing.T) {
	resolver := NewResolver(createTestRegistry(t))

	edges, field, err := resolver.ResolvePath("Post", "title")
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("local field should resolve with no edges, got %d", len(edges))
	}
	if field.Name != "title" || field.Type != schema.TypeString {
		t.Errorf("terminal = %+v, want title/string", field)
	}
}

func TestResolvePathOneHop(t *testing.T) {
	resolver := NewResolver(createTestRegistry(t))

	edges, field, err := resolver.ResolvePath("Post", "author.name")
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	e := edges[0]
	if e.Name != "author" || e.Source != "Post" || e.Target != "User" {
		t.Errorf("edge = %+v", e)
	}
	if e.ForeignKey != "author_id" || e.TargetTable != "users" {
		t.Errorf("edge fk/table = %s/%s, want author_id/users", e.ForeignKey, e.TargetTable)
	}
	if field.Name != "name" {
		t.Errorf("terminal = %s, want name", field.Name)
	}
}

func TestResolvePathTwoHops(t *testing.T) {
	resolver := NewResolver(createTestRegistry(t))

	edges, _, err := resolver.ResolvePath("Post", "author.company.name")
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	if key := chainKey(edges); key != "author.company" {
		t.Errorf("chainKey = %s, want author.company", key)
	}
	if key := chainKey(edges[:1]); key != "author" {
		t.Errorf("prefix chainKey = %s, want author", key)
	}
}

func TestResolvePathErrors(t *testing.T) {
	resolver := NewResolver(createTestRegistry(t))

	tests := []struct {
		name string
		path string
		kind PathErrorKind
	}{
		{"undeclared relation", "publisher.name", UnknownRelation},
		{"many cardinality", "comments.body", UnsupportedCardinality},
		{"unknown terminal", "author.nope", UnknownField},
		{"write-only terminal", "author.password", WriteOnlyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := resolver.ResolvePath("Post", tt.path)
			pathErr, ok := err.(*PathError)
			if !ok {
				t.Fatalf("error = %T (%v), want *PathError", err, err)
			}
			if pathErr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", pathErr.Kind, tt.kind)
			}
			if pathErr.Path != tt.path {
				t.Errorf("path = %s, want %s", pathErr.Path, tt.path)
			}
		})
	}
}
