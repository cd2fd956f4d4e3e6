package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/restfold/restfold/internal/query"
	"github.com/restfold/restfold/internal/schema"
	"github.com/restfold/restfold/internal/schema/derive"
)

// DB is the database surface the handlers need. *sql.DB and *sql.Tx both
// satisfy it.
type DB interface {
	query.Querier
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ResourceHandler serves the CRUD endpoints of one registered resource.
// Reads go through the query engine; writes go through the derived schema
// variants.
type ResourceHandler struct {
	resource string
	table    string
	engine   *query.Engine
	db       DB
	logger   *zap.Logger

	create   *derive.Variant
	update   *derive.Variant
	response *derive.Variant
}

// NewResourceHandler derives the resource's schema variants and binds them
// to the engine and database.
func NewResourceHandler(registry *schema.Registry, engine *query.Engine, db DB, logger *zap.Logger, resource string) (*ResourceHandler, error) {
	res, ok := registry.Get(resource)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	cat, ok := registry.Catalog(resource)
	if !ok {
		return nil, fmt.Errorf("no catalog for resource %q", resource)
	}

	return &ResourceHandler{
		resource: resource,
		table:    res.TableName,
		engine:   engine,
		db:       db,
		logger:   logger,
		create:   derive.CreationSchema(cat),
		update:   derive.UpdateSchema(cat),
		response: derive.ResponseSchema(cat),
	}, nil
}

// Index lists records matching the request's filter, sort, and pagination
// parameters.
func (h *ResourceHandler) Index(w http.ResponseWriter, r *http.Request) {
	q, err := h.engine.Build(h.resource, r.URL.Query())
	if err != nil {
		RenderError(w, err)
		return
	}

	rows, err := q.All(r.Context(), h.db)
	if err != nil {
		h.logger.Error("list query failed", zap.String("resource", h.resource), zap.Error(err))
		RenderError(w, err)
		return
	}

	total, err := q.Count(r.Context(), h.db)
	if err != nil {
		h.logger.Error("count query failed", zap.String("resource", h.resource), zap.Error(err))
		RenderError(w, err)
		return
	}

	data := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		data = append(data, h.response.Shape(row))
	}

	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"meta": map[string]interface{}{
			"total":  total,
			"limit":  q.Limit(),
			"offset": q.Offset(),
		},
	})
}

// Show returns a single record by id
func (h *ResourceHandler) Show(w http.ResponseWriter, r *http.Request) {
	row, err := h.fetchByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RenderError(w, err)
		return
	}
	if row == nil {
		RenderNotFound(w, fmt.Sprintf("%s not found", h.resource))
		return
	}
	RenderJSON(w, http.StatusOK, map[string]interface{}{"data": h.response.Shape(row)})
}

// Create validates the request body against the creation variant and
// inserts the record.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeBody(w, r)
	if !ok {
		return
	}

	values, err := h.create.Validate(input)
	if err != nil {
		RenderError(w, err)
		return
	}

	columns := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values))
	placeholders := make([]string, 0, len(values))
	for _, field := range h.create.Fields() {
		value, present := values[field.Name]
		if !present {
			continue
		}
		columns = append(columns, field.Name)
		args = append(args, value)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	var sqlStr string
	if len(columns) == 0 {
		sqlStr = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", h.table)
	} else {
		sqlStr = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			h.table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		)
	}

	row, err := h.queryOne(r.Context(), sqlStr, args...)
	if err != nil {
		h.logger.Error("insert failed", zap.String("resource", h.resource), zap.Error(err))
		RenderError(w, err)
		return
	}

	RenderJSON(w, http.StatusCreated, map[string]interface{}{"data": h.response.Shape(row)})
}

// Update validates the request body against the update variant and applies
// the submitted fields. An empty payload is valid and changes nothing.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	input, ok := decodeBody(w, r)
	if !ok {
		return
	}

	values, err := h.update.Validate(input)
	if err != nil {
		RenderError(w, err)
		return
	}

	if len(values) == 0 {
		row, err := h.fetchByID(r.Context(), id)
		if err != nil {
			RenderError(w, err)
			return
		}
		if row == nil {
			RenderNotFound(w, fmt.Sprintf("%s not found", h.resource))
			return
		}
		RenderJSON(w, http.StatusOK, map[string]interface{}{"data": h.response.Shape(row)})
		return
	}

	assignments := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values)+1)
	for _, field := range h.update.Fields() {
		value, present := values[field.Name]
		if !present {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", field.Name, len(args)))
	}
	args = append(args, id)

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		h.table,
		strings.Join(assignments, ", "),
		len(args),
	)

	row, err := h.queryOne(r.Context(), sqlStr, args...)
	if err != nil {
		h.logger.Error("update failed", zap.String("resource", h.resource), zap.Error(err))
		RenderError(w, err)
		return
	}
	if row == nil {
		RenderNotFound(w, fmt.Sprintf("%s not found", h.resource))
		return
	}

	RenderJSON(w, http.StatusOK, map[string]interface{}{"data": h.response.Shape(row)})
}

// Delete removes a record by id
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.db.ExecContext(r.Context(), fmt.Sprintf("DELETE FROM %s WHERE id = $1", h.table), id)
	if err != nil {
		h.logger.Error("delete failed", zap.String("resource", h.resource), zap.Error(err))
		RenderError(w, err)
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		RenderError(w, err)
		return
	}
	if affected == 0 {
		RenderNotFound(w, fmt.Sprintf("%s not found", h.resource))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Describe returns the document schemas of the resource's variants
func (h *ResourceHandler) Describe(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"resource": h.resource,
		"create":   h.create.DocSchema(),
		"update":   h.update.DocSchema(),
		"response": h.response.DocSchema(),
	})
}

// fetchByID loads one record through the engine so id coercion follows the
// catalog's declared type. Returns nil when no record matches.
func (h *ResourceHandler) fetchByID(ctx context.Context, id string) (map[string]interface{}, error) {
	values := url.Values{
		"filter[id]": {id},
		"limit":      {"1"},
	}
	q, err := h.engine.Build(h.resource, values)
	if err != nil {
		return nil, err
	}

	rows, err := q.All(ctx, h.db)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// queryOne runs a statement expected to return at most one row
func (h *ResourceHandler) queryOne(ctx context.Context, sqlStr string, args ...interface{}) (map[string]interface{}, error) {
	rows, err := h.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := query.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// decodeBody parses a JSON object body, rendering a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	input := make(map[string]interface{})
	if r.Body == nil {
		return input, true
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return input, true
		}
		RenderBadRequest(w, "request body is not a valid JSON object")
		return nil, false
	}
	return input, true
}
