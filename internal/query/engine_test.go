package query

import (
	"context"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/restfold/restfold/internal/schema"
)

// Helper to build a registry with Post -> User -> Company edges
func createTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	registry := schema.NewRegistry()

	company := schema.NewResource("Company")
	company.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt})
	company.AddField(&schema.Field{Name: "name", Type: schema.TypeString})

	user := schema.NewResource("User")
	user.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt})
	user.AddField(&schema.Field{Name: "name", Type: schema.TypeString})
	user.AddField(&schema.Field{Name: "email", Type: schema.TypeEmail})
	user.AddField(&schema.Field{Name: "password", Type: schema.TypeString, Capability: schema.WriteOnly})
	user.AddRelationship(&schema.Relationship{Name: "company", Target: "Company", Cardinality: schema.One})

	post := schema.NewResource("Post")
	post.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt})
	post.AddField(&schema.Field{Name: "title", Type: schema.TypeString})
	post.AddField(&schema.Field{Name: "views", Type: schema.TypeInt})
	post.AddField(&schema.Field{Name: "published", Type: schema.TypeBool})
	post.AddField(&schema.Field{Name: "created_at", Type: schema.TypeTimestamp})
	post.AddRelationship(&schema.Relationship{Name: "author", Target: "User", Cardinality: schema.One})
	post.AddRelationship(&schema.Relationship{Name: "comments", Target: "Comment", Cardinality: schema.Many})

	comment := schema.NewResource("Comment")
	comment.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt})
	comment.AddField(&schema.Field{Name: "body", Type: schema.TypeText})

	for _, res := range []*schema.Resource{company, user, post, comment} {
		if err := registry.Register(res); err != nil {
			t.Fatalf("Register(%s) failed: %v", res.Name, err)
		}
	}

	return registry
}

func buildSQL(t *testing.T, resource, rawQuery string) (string, []interface{}) {
	t.Helper()

	engine := NewEngine(createTestRegistry(t))
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("ParseQuery(%q) failed: %v", rawQuery, err)
	}

	q, err := engine.Build(resource, values)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	sqlStr, args, err := q.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	return sqlStr, args
}

func buildErr(t *testing.T, resource, rawQuery string) error {
	t.Helper()

	engine := NewEngine(createTestRegistry(t))
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("ParseQuery(%q) failed: %v", rawQuery, err)
	}

	_, err = engine.Build(resource, values)
	if err == nil {
		t.Fatalf("Build(%q) succeeded, want error", rawQuery)
	}
	return err
}

func TestBuildLocalEquality(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "filter[title]=hello")

	want := "SELECT posts.* FROM posts WHERE posts.title = $1 LIMIT $2"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if len(args) != 2 || args[0] != "hello" || args[1] != 100 {
		t.Errorf("args = %v, want [hello 100]", args)
	}
}

func TestBuildValuePrefixOperators(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		arg   interface{}
	}{
		{"gte", "filter[views]=>=10", "posts.views >= $1", int64(10)},
		{"lte", "filter[views]=<=10", "posts.views <= $1", int64(10)},
		{"gt", "filter[views]=>10", "posts.views > $1", int64(10)},
		{"lt", "filter[views]=<10", "posts.views < $1", int64(10)},
		{"ne", "filter[title]=!draft", "posts.title != $1", "draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, args := buildSQL(t, "Post", tt.query)
			want := "SELECT posts.* FROM posts WHERE " + tt.want + " LIMIT $2"
			if sqlStr != want {
				t.Errorf("SQL = %q, want %q", sqlStr, want)
			}
			if args[0] != tt.arg {
				t.Errorf("args[0] = %v (%T), want %v (%T)", args[0], args[0], tt.arg, tt.arg)
			}
		})
	}
}

func TestBuildNullTests(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "filter[created_at]=null")
	want := "SELECT posts.* FROM posts WHERE posts.created_at IS NULL LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %v, want only the limit", args)
	}

	sqlStr, _ = buildSQL(t, "Post", "filter[created_at]=!null")
	want = "SELECT posts.* FROM posts WHERE posts.created_at IS NOT NULL LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildOrWithinKey(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "filter[title]=a,b,!c")

	want := "SELECT posts.* FROM posts WHERE (posts.title = $1 OR posts.title = $2 OR posts.title != $3) LIMIT $4"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if args[0] != "a" || args[1] != "b" || args[2] != "c" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildAndAcrossKeys(t *testing.T) {
	sqlStr, _ := buildSQL(t, "Post", "filter[published]=true&filter[title]=go")

	// Keys iterate in sorted order
	want := "SELECT posts.* FROM posts WHERE posts.published = $1 AND posts.title = $2 LIMIT $3"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildContainsTermsAreAnded(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "contains[title]=quick+fox")

	want := "SELECT posts.* FROM posts WHERE posts.title ILIKE $1 AND posts.title ILIKE $2 LIMIT $3"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if args[0] != "%quick%" || args[1] != "%fox%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildFlatSyntax(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"bare equality", "title=go", "posts.title = $1"},
		{"gte suffix", "views__gte=5", "posts.views >= $1"},
		{"ne suffix", "title__ne=draft", "posts.title != $1"},
		{"contains suffix", "title__contains=go", "posts.title ILIKE $1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, _ := buildSQL(t, "Post", tt.query)
			want := "SELECT posts.* FROM posts WHERE " + tt.want + " LIMIT $2"
			if sqlStr != want {
				t.Errorf("SQL = %q, want %q", sqlStr, want)
			}
		})
	}
}

func TestBuildFlatIsNull(t *testing.T) {
	sqlStr, _ := buildSQL(t, "Post", "created_at__isnull=true")
	want := "SELECT posts.* FROM posts WHERE posts.created_at IS NULL LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}

	sqlStr, _ = buildSQL(t, "Post", "created_at__isnull=false")
	want = "SELECT posts.* FROM posts WHERE posts.created_at IS NOT NULL LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildRelationshipJoin(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "filter[author.name]=alice")

	want := "SELECT posts.* FROM posts" +
		" INNER JOIN users AS author ON posts.author_id = author.id" +
		" WHERE author.name = $1 LIMIT $2"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if args[0] != "alice" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildJoinDeduplication(t *testing.T) {
	// Filter and sort share the author edge: one join only
	sqlStr, _ := buildSQL(t, "Post", "filter[author.name]=alice&sort=-author.email")

	want := "SELECT posts.* FROM posts" +
		" INNER JOIN users AS author ON posts.author_id = author.id" +
		" WHERE author.name = $1" +
		" ORDER BY author.email DESC LIMIT $2"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildNestedJoinAliases(t *testing.T) {
	sqlStr, _ := buildSQL(t, "Post", "filter[author.company.name]=acme&filter[author.name]=alice")

	want := "SELECT posts.* FROM posts" +
		" INNER JOIN users AS author ON posts.author_id = author.id" +
		" INNER JOIN companies AS author_company ON author.company_id = author_company.id" +
		" WHERE author_company.name = $1 AND author.name = $2 LIMIT $3"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildSortOrder(t *testing.T) {
	sqlStr, _ := buildSQL(t, "Post", "sort=-views,title")

	want := "SELECT posts.* FROM posts ORDER BY posts.views DESC, posts.title ASC LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
}

func TestBuildPaginationStylesAreEquivalent(t *testing.T) {
	fromPages, pageArgs := buildSQL(t, "Post", "page=2&page_size=10")
	fromBounds, boundArgs := buildSQL(t, "Post", "limit=10&offset=10")

	if fromPages != fromBounds {
		t.Errorf("page style SQL %q differs from bound style %q", fromPages, fromBounds)
	}
	if len(pageArgs) != len(boundArgs) {
		t.Fatalf("arg counts differ: %v vs %v", pageArgs, boundArgs)
	}
	for i := range pageArgs {
		if pageArgs[i] != boundArgs[i] {
			t.Errorf("args[%d] = %v vs %v", i, pageArgs[i], boundArgs[i])
		}
	}
}

func TestBuildDefaultBound(t *testing.T) {
	sqlStr, args := buildSQL(t, "Post", "")

	want := "SELECT posts.* FROM posts LIMIT $1"
	if sqlStr != want {
		t.Errorf("SQL = %q, want %q", sqlStr, want)
	}
	if args[0] != 100 {
		t.Errorf("default limit = %v, want 100", args[0])
	}
}

func TestBuildPaginationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"mixed styles", "page=2&limit=10"},
		{"zero page", "page=0"},
		{"negative offset", "offset=-1"},
		{"limit over max", "limit=501"},
		{"page_size over max", "page_size=501"},
		{"non-integer limit", "limit=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(t, "Post", tt.query)
			if _, ok := err.(*PaginationError); !ok {
				t.Errorf("error = %T (%v), want *PaginationError", err, err)
			}
		})
	}
}

func TestBuildPathErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		kind  PathErrorKind
	}{
		{"unknown field", "filter[nope]=1", UnknownField},
		{"unknown relation", "filter[nope.title]=1", UnknownRelation},
		{"many cardinality", "filter[comments.body]=hi", UnsupportedCardinality},
		{"write-only terminal", "filter[author.password]=x", WriteOnlyField},
		{"sort unknown", "sort=nope", UnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(t, "Post", tt.query)
			pathErr, ok := err.(*PathError)
			if !ok {
				t.Fatalf("error = %T (%v), want *PathError", err, err)
			}
			if pathErr.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", pathErr.Kind, tt.kind)
			}
		})
	}
}

func TestBuildCoercionErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad int", "filter[views]=ten"},
		{"bad bool", "filter[published]=maybe"},
		{"bad timestamp", "filter[created_at]=yesterday"},
		{"contains on int", "contains[views]=5"},
		{"flat contains on int", "views__contains=5"},
		{"contains on timestamp", "contains[created_at]=2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(t, "Post", tt.query)
			coErr, ok := err.(*CoercionError)
			if !ok {
				t.Fatalf("error = %T (%v), want *CoercionError", err, err)
			}
			if coErr.Raw == "" {
				t.Error("CoercionError.Raw is empty")
			}
		})
	}
}

func TestQueryAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	engine := NewEngine(createTestRegistry(t))
	values, _ := url.ParseQuery("filter[published]=true&limit=2")

	q, err := engine.Build("Post", values)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "title"}).
		AddRow(int64(1), "first").
		AddRow(int64(2), "second")
	mock.ExpectQuery(`SELECT posts\.\* FROM posts WHERE posts\.published = \$1 LIMIT \$2`).
		WithArgs(true, 2).
		WillReturnRows(rows)

	results, err := q.All(context.Background(), db)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d rows, want 2", len(results))
	}
	if results[0]["title"] != "first" {
		t.Errorf("results[0][title] = %v, want first", results[0]["title"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQueryCountIgnoresWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	engine := NewEngine(createTestRegistry(t))
	values, _ := url.ParseQuery("filter[published]=true&page=3&page_size=10&sort=-views")

	q, err := engine.Build("Post", values)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts WHERE posts\.published = \$1`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := q.Count(context.Background(), db)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
