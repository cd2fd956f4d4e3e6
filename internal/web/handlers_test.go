package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restfold/restfold/internal/query"
	"github.com/restfold/restfold/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	registry := schema.NewRegistry()

	user := schema.NewResource("User")
	user.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	user.AddField(&schema.Field{Name: "name", Type: schema.TypeString, Required: true})
	user.AddField(&schema.Field{Name: "password", Type: schema.TypeString, Required: true, Capability: schema.WriteOnly})

	post := schema.NewResource("Post")
	post.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	post.AddField(&schema.Field{Name: "title", Type: schema.TypeString, Required: true})
	post.AddField(&schema.Field{Name: "views", Type: schema.TypeInt, Default: int64(0)})
	post.AddRelationship(&schema.Relationship{Name: "author", Target: "User", Cardinality: schema.One})

	// No required fields: an empty creation payload is valid
	tag := schema.NewResource("Tag")
	tag.AddField(&schema.Field{Name: "id", Type: schema.TypeBigInt, Capability: schema.ReadOnly})
	tag.AddField(&schema.Field{Name: "label", Type: schema.TypeString})

	require.NoError(t, registry.Register(user))
	require.NoError(t, registry.Register(post))
	require.NoError(t, registry.Register(tag))
	require.NoError(t, registry.ValidateAll())

	return registry
}

func testServer(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := testRegistry(t)
	engine := query.NewEngine(registry)

	router, err := NewRouter(registry, engine, db, zap.NewNop())
	require.NoError(t, err)

	return router, mock
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexReturnsShapedRows(t *testing.T) {
	handler, mock := testServer(t)

	rows := sqlmock.NewRows([]string{"id", "name", "password"}).
		AddRow(int64(1), "alice", "hash1").
		AddRow(int64(2), "bob", "hash2")
	mock.ExpectQuery(`SELECT users\.\* FROM users LIMIT \$1`).
		WithArgs(100).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rec := doRequest(t, handler, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []map[string]interface{} `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "alice", body.Data[0]["name"])
	assert.NotContains(t, body.Data[0], "password", "write-only values must never serialize")
	assert.EqualValues(t, 2, body.Meta["total"])
	assert.EqualValues(t, 100, body.Meta["limit"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexInvalidFilterPath(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/users?filter[nope]=1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_query", body.Code)
	assert.Equal(t, "nope", body.Details["path"])
	assert.Equal(t, "unknown_field", body.Details["kind"])
}

func TestIndexInvalidValue(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/posts?filter[views]=ten", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_query", body.Code)
	assert.Equal(t, "ten", body.Details["value"])
}

func TestIndexMixedPaginationStyles(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/posts?page=2&limit=5", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_query", body.Code)
}

func TestIndexExecutionErrorIs500(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`SELECT users\.\* FROM users`).
		WillReturnError(assert.AnError)

	rec := doRequest(t, handler, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Code)
}

func TestShowNotFound(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`SELECT users\.\* FROM users WHERE users\.id = \$1 LIMIT \$2`).
		WithArgs(int64(7), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	rec := doRequest(t, handler, http.MethodGet, "/users/7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidatesAndInserts(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`INSERT INTO users \(name, password\) VALUES \(\$1, \$2\) RETURNING \*`).
		WithArgs("alice", "secret").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password"}).
			AddRow(int64(1), "alice", "secret"))

	rec := doRequest(t, handler, http.MethodPost, "/users",
		`{"name": "alice", "password": "secret", "id": 99}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Data["id"])
	assert.NotContains(t, body.Data, "password")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmptyPayloadUsesDefaultValues(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`INSERT INTO tags DEFAULT VALUES RETURNING \*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).
			AddRow(int64(1), nil))

	rec := doRequest(t, handler, http.MethodPost, "/tags", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Data["id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexContainsOnNonTextField(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/posts?contains[views]=5", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_query", body.Code)
	assert.Equal(t, "views", body.Details["path"])
	assert.Equal(t, "5", body.Details["value"])
}

func TestCreateMissingRequiredField(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/users", `{"name": "alice"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Code)
	assert.NotEmpty(t, body.Fields["password"])
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/users", `{"name": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppliesSubmittedFields(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`UPDATE posts SET title = \$1 WHERE id = \$2 RETURNING \*`).
		WithArgs("renamed", "5").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "views"}).
			AddRow(int64(5), "renamed", int64(3)))

	rec := doRequest(t, handler, http.MethodPatch, "/posts/5", `{"title": "renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "renamed", body.Data["title"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmptyPayloadIsNoOp(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectQuery(`SELECT posts\.\* FROM posts WHERE posts\.id = \$1 LIMIT \$2`).
		WithArgs(int64(5), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(int64(5), "unchanged"))

	rec := doRequest(t, handler, http.MethodPatch, "/posts/5", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unchanged", body.Data["title"])
}

func TestDelete(t *testing.T) {
	handler, mock := testServer(t)

	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs("5").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, handler, http.MethodDelete, "/posts/5", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs("9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec = doRequest(t, handler, http.MethodDelete, "/posts/9", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDescribeEndpoint(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/users/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "User", body["resource"])
	assert.Contains(t, body, "create")
	assert.Contains(t, body, "response")
}

func TestHealthz(t *testing.T) {
	handler, _ := testServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
