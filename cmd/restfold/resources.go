package main

import (
	"regexp"

	"github.com/restfold/restfold/internal/schema"
)

// buildRegistry declares the demo resource set served by the reference
// server: a small blog with users, posts, and comments.
func buildRegistry() (*schema.Registry, error) {
	registry := schema.NewRegistry()

	user := schema.NewResource("User")
	user.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	user.AddField(&schema.Field{Name: "name", Type: schema.TypeString, Required: true})
	user.AddField(&schema.Field{Name: "email", Type: schema.TypeEmail, Required: true,
		Validators: []schema.Validator{&schema.EmailValidator{}}})
	user.AddField(&schema.Field{Name: "password", Type: schema.TypeString, Required: true, Capability: schema.WriteOnly})
	user.AddField(&schema.Field{Name: "bio", Type: schema.TypeText})
	user.AddField(&schema.Field{Name: "created_at", Type: schema.TypeTimestamp, Capability: schema.ReadOnly})

	post := schema.NewResource("Post")
	post.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	post.AddField(&schema.Field{Name: "title", Type: schema.TypeString, Required: true,
		Validators: []schema.Validator{&schema.PatternValidator{Pattern: regexp.MustCompile(`\S`)}}})
	post.AddField(&schema.Field{Name: "body", Type: schema.TypeText})
	post.AddField(&schema.Field{Name: "published", Type: schema.TypeBool, Default: false})
	post.AddField(&schema.Field{Name: "views", Type: schema.TypeInt, Default: int64(0),
		Validators: []schema.Validator{&schema.MinValidator{Min: int64(0), FieldType: schema.TypeInt}}})
	post.AddField(&schema.Field{Name: "author_id", Type: schema.TypeBigInt, Required: true})
	post.AddField(&schema.Field{Name: "created_at", Type: schema.TypeTimestamp, Capability: schema.ReadOnly})
	post.AddRelationship(&schema.Relationship{Name: "author", Target: "User", Cardinality: schema.One})
	post.AddRelationship(&schema.Relationship{Name: "comments", Target: "Comment", Cardinality: schema.Many})

	comment := schema.NewResource("Comment")
	comment.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	comment.AddField(&schema.Field{Name: "body", Type: schema.TypeText, Required: true})
	comment.AddField(&schema.Field{Name: "post_id", Type: schema.TypeBigInt, Required: true})
	comment.AddField(&schema.Field{Name: "author_id", Type: schema.TypeBigInt, Required: true})
	comment.AddRelationship(&schema.Relationship{Name: "post", Target: "Post", Cardinality: schema.One})
	comment.AddRelationship(&schema.Relationship{Name: "author", Target: "User", Cardinality: schema.One})

	for _, res := range []*schema.Resource{user, post, comment} {
		if err := registry.Register(res); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}

	return registry, nil
}
