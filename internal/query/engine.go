package query

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/restfold/restfold/internal/schema"
)

const (
	// DefaultPageSize bounds result sets when the client sends no
	// pagination parameters at all
	DefaultPageSize = 100
	// DefaultMaxPageSize is the hard ceiling on limit and page_size
	DefaultMaxPageSize = 500
)

// Engine validates parsed query parameters against the resource registry
// and composes them into executable queries.
type Engine struct {
	registry *schema.Registry
	resolver *Resolver

	// DefaultPageSize is applied when a request carries no bounds
	DefaultPageSize int
	// MaxPageSize rejects limit/page_size values above it
	MaxPageSize int
}

// NewEngine creates an engine over a resource registry
func NewEngine(registry *schema.Registry) *Engine {
	return &Engine{
		registry:        registry,
		resolver:        NewResolver(registry),
		DefaultPageSize: DefaultPageSize,
		MaxPageSize:     DefaultMaxPageSize,
	}
}

// joinClause is one deduplicated relationship join
type joinClause struct {
	Table     string
	Alias     string
	Condition string
}

// Query is a fully validated, bounded query ready to render or execute
type Query struct {
	table   string
	joins   []joinClause
	groups  [][]*Condition
	orderBy []string
	limit   int
	offset  int
}

// Build resolves, coerces, and composes the raw query parameters of one
// request into a Query against the named resource. All errors are client
// errors: *PathError, *CoercionError, or *PaginationError.
func (e *Engine) Build(resource string, values url.Values) (*Query, error) {
	res, ok := e.registry.Get(resource)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}

	params, err := ParseParams(values)
	if err != nil {
		return nil, err
	}

	q := &Query{table: res.TableName}
	joins := newJoinSet(res.TableName)

	for _, clause := range params.Filters {
		edges, field, err := e.resolver.ResolvePath(resource, clause.Path)
		if err != nil {
			return nil, err
		}
		qualifier := joins.qualifierFor(edges)

		group := make([]*Condition, 0, len(clause.Values))
		for _, fv := range clause.Values {
			if fv.Operator == OpContains && !field.Type.IsText() {
				return nil, &CoercionError{
					Path:   clause.Path,
					Raw:    fv.Raw,
					Reason: fmt.Sprintf("contains is only supported on text fields, not %s", field.Type),
				}
			}
			cond := &Condition{
				Column:   qualifier + "." + field.Name,
				Operator: fv.Operator,
			}
			if fv.Operator.NeedsValue() {
				value, err := coerceValue(field, clause.Path, fv.Raw)
				if err != nil {
					return nil, err
				}
				cond.Value = value
			}
			group = append(group, cond)
		}
		q.groups = append(q.groups, group)
	}

	for _, clause := range params.Sorts {
		edges, field, err := e.resolver.ResolvePath(resource, clause.Path)
		if err != nil {
			return nil, err
		}
		qualifier := joins.qualifierFor(edges)
		direction := "ASC"
		if clause.Descending {
			direction = "DESC"
		}
		q.orderBy = append(q.orderBy, fmt.Sprintf("%s.%s %s", qualifier, field.Name, direction))
	}

	q.joins = joins.clauses
	limit, offset, err := e.resolveBounds(params.Pagination)
	if err != nil {
		return nil, err
	}
	q.limit = limit
	q.offset = offset

	return q, nil
}

// resolveBounds translates either pagination style into a limit/offset
// window, applying the default when the request carries no bounds.
func (e *Engine) resolveBounds(p Pagination) (limit, offset int, err error) {
	switch {
	case p.Page != nil || p.PageSize != nil:
		page := 1
		if p.Page != nil {
			page = *p.Page
		}
		size := e.DefaultPageSize
		if p.PageSize != nil {
			size = *p.PageSize
		}
		if size > e.MaxPageSize {
			return 0, 0, &PaginationError{
				Param:   "page_size",
				Message: fmt.Sprintf("must not exceed %d", e.MaxPageSize),
			}
		}
		return size, (page - 1) * size, nil

	default:
		limit := e.DefaultPageSize
		if p.Limit != nil {
			limit = *p.Limit
		}
		if limit > e.MaxPageSize {
			return 0, 0, &PaginationError{
				Param:   "limit",
				Message: fmt.Sprintf("must not exceed %d", e.MaxPageSize),
			}
		}
		offset := 0
		if p.Offset != nil {
			offset = *p.Offset
		}
		return limit, offset, nil
	}
}

// joinSet deduplicates relationship joins by edge-name chain. Two paths
// sharing a prefix reuse one join and one alias.
type joinSet struct {
	rootTable string
	aliases   map[string]string
	clauses   []joinClause
}

func newJoinSet(rootTable string) *joinSet {
	return &joinSet{
		rootTable: rootTable,
		aliases:   make(map[string]string),
	}
}

// qualifierFor registers any joins the edge chain needs and returns the
// qualifier for the terminal column: the root table for a local field, the
// last edge's alias otherwise.
func (js *joinSet) qualifierFor(edges []Edge) string {
	if len(edges) == 0 {
		return js.rootTable
	}

	parent := js.rootTable
	for i := range edges {
		prefix := edges[:i+1]
		key := chainKey(prefix)
		alias, ok := js.aliases[key]
		if !ok {
			alias = aliasFor(prefix)
			js.aliases[key] = alias
			js.clauses = append(js.clauses, joinClause{
				Table: edges[i].TargetTable,
				Alias: alias,
				Condition: fmt.Sprintf("%s.%s = %s.id",
					parent, edges[i].ForeignKey, alias),
			})
		}
		parent = alias
	}
	return parent
}

// aliasFor derives a stable alias from the edge-name chain
func aliasFor(edges []Edge) string {
	names := make([]string, len(edges))
	for i, e := range edges {
		names[i] = e.Name
	}
	return strings.Join(names, "_")
}

// ToSQL renders the query with parameterized values
func (q *Query) ToSQL() (string, []interface{}, error) {
	return q.toSQL(q.table+".*", true)
}

func (q *Query) toSQL(selectList string, bounded bool) (string, []interface{}, error) {
	var sql strings.Builder
	args := make([]interface{}, 0)
	paramCounter := 1

	sql.WriteString(fmt.Sprintf("SELECT %s FROM %s", selectList, q.table))

	for _, join := range q.joins {
		sql.WriteString(fmt.Sprintf(" INNER JOIN %s AS %s ON %s",
			join.Table,
			join.Alias,
			join.Condition,
		))
	}

	if len(q.groups) > 0 {
		sql.WriteString(" WHERE ")
		for i, group := range q.groups {
			if i > 0 {
				sql.WriteString(" AND ")
			}
			groupSQL, err := orGroupToSQL(group, &paramCounter, &args)
			if err != nil {
				return "", nil, fmt.Errorf("failed to build condition: %w", err)
			}
			sql.WriteString(groupSQL)
		}
	}

	if !bounded {
		return sql.String(), args, nil
	}

	if len(q.orderBy) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(q.orderBy, ", "))
	}

	sql.WriteString(fmt.Sprintf(" LIMIT $%d", paramCounter))
	args = append(args, q.limit)
	paramCounter++

	if q.offset > 0 {
		sql.WriteString(fmt.Sprintf(" OFFSET $%d", paramCounter))
		args = append(args, q.offset)
	}

	return sql.String(), args, nil
}

// Limit returns the effective page bound
func (q *Query) Limit() int { return q.limit }

// Offset returns the effective row offset
func (q *Query) Offset() int { return q.offset }

// All executes the query and returns the matching rows as column-keyed maps
func (q *Query) All(ctx context.Context, db Querier) ([]map[string]interface{}, error) {
	sqlStr, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	results, err := ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}

	return results, nil
}

// Count executes the query without its window and returns the total number
// of matching rows.
func (q *Query) Count(ctx context.Context, db Querier) (int, error) {
	sqlStr, args, err := q.toSQL("COUNT(*)", false)
	if err != nil {
		return 0, fmt.Errorf("failed to generate SQL: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}

	return count, nil
}
