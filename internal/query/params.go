package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterValue is one raw comparison inside a filter clause
type FilterValue struct {
	Operator Operator
	Raw      string
}

// FilterClause is a draft filter against one dotted path. Values within a
// clause are OR'd; separate clauses are AND'd.
type FilterClause struct {
	Path   string
	Values []FilterValue
}

// SortClause is a draft ordering on one dotted path
type SortClause struct {
	Path       string
	Descending bool
}

// Pagination carries the raw pagination parameters of one request. The two
// styles (limit/offset and page/page_size) are mutually exclusive.
type Pagination struct {
	Limit    *int
	Offset   *int
	Page     *int
	PageSize *int
}

// ParamSet is the normalized, schema-free parse of a request's query
// parameters. Nothing here has touched a Field Catalog yet.
type ParamSet struct {
	Filters    []*FilterClause
	Sorts      []*SortClause
	Pagination Pagination
}

// ParseParams tokenizes raw query parameters into draft clauses. Two surface
// syntaxes coexist:
//
//	bracket: filter[path]=>=10, contains[path]=term, sort=a,-b, limit, offset
//	flat:    path=value, path__gte=10, path__contains=term, order_by=a,-b,
//	         page, page_size
//
// Parsing is purely lexical; path validation and value coercion happen later
// against the Field Catalogs.
func ParseParams(values url.Values) (*ParamSet, error) {
	ps := &ParamSet{}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raws := values[key]
		switch {
		case key == "sort" || key == "order_by":
			for _, raw := range raws {
				ps.Sorts = append(ps.Sorts, parseSortList(raw)...)
			}

		case key == "limit":
			n, err := parsePositiveInt(key, raws[0])
			if err != nil {
				return nil, err
			}
			ps.Pagination.Limit = &n

		case key == "offset":
			n, err := parseNonNegativeInt(key, raws[0])
			if err != nil {
				return nil, err
			}
			ps.Pagination.Offset = &n

		case key == "page":
			n, err := parsePositiveInt(key, raws[0])
			if err != nil {
				return nil, err
			}
			ps.Pagination.Page = &n

		case key == "page_size":
			n, err := parsePositiveInt(key, raws[0])
			if err != nil {
				return nil, err
			}
			ps.Pagination.PageSize = &n

		case strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]"):
			path := key[len("filter[") : len(key)-1]
			for _, raw := range raws {
				ps.Filters = append(ps.Filters, parseBracketFilter(path, raw))
			}

		case strings.HasPrefix(key, "contains[") && strings.HasSuffix(key, "]"):
			path := key[len("contains[") : len(key)-1]
			for _, raw := range raws {
				ps.Filters = append(ps.Filters, parseContainsTerms(path, raw)...)
			}

		default:
			for _, raw := range raws {
				ps.Filters = append(ps.Filters, parseFlatFilter(key, raw)...)
			}
		}
	}

	if err := checkPaginationStyle(ps.Pagination); err != nil {
		return nil, err
	}

	return ps, nil
}

// parseSortList splits a comma-separated sort list; a leading '-' reverses
// the order of that path.
func parseSortList(raw string) []*SortClause {
	clauses := make([]*SortClause, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clause := &SortClause{Path: part}
		if strings.HasPrefix(part, "-") {
			clause.Path = part[1:]
			clause.Descending = true
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

// parseBracketFilter tokenizes one filter[path] occurrence. Comma-separated
// values are OR'd within the clause; each value may carry a comparison
// prefix (>=, <=, >, <, !) and "null"/"!null" map to the null tests.
func parseBracketFilter(path, raw string) *FilterClause {
	clause := &FilterClause{Path: path}
	for _, value := range strings.Split(raw, ",") {
		clause.Values = append(clause.Values, parsePrefixedValue(value))
	}
	return clause
}

func parsePrefixedValue(value string) FilterValue {
	switch {
	case strings.HasPrefix(value, ">="):
		return FilterValue{Operator: OpGreaterThanOrEqual, Raw: value[2:]}
	case strings.HasPrefix(value, "<="):
		return FilterValue{Operator: OpLessThanOrEqual, Raw: value[2:]}
	case strings.HasPrefix(value, ">"):
		return FilterValue{Operator: OpGreaterThan, Raw: value[1:]}
	case strings.HasPrefix(value, "<"):
		return FilterValue{Operator: OpLessThan, Raw: value[1:]}
	case value == "!null":
		return FilterValue{Operator: OpIsNotNull}
	case value == "null":
		return FilterValue{Operator: OpIsNull}
	case strings.HasPrefix(value, "!"):
		return FilterValue{Operator: OpNotEqual, Raw: value[1:]}
	default:
		return FilterValue{Operator: OpEqual, Raw: value}
	}
}

// parseContainsTerms splits a contains value on whitespace; every term
// becomes its own clause so multiple terms are AND'd.
func parseContainsTerms(path, raw string) []*FilterClause {
	clauses := make([]*FilterClause, 0)
	for _, term := range strings.Fields(raw) {
		clauses = append(clauses, &FilterClause{
			Path:   path,
			Values: []FilterValue{{Operator: OpContains, Raw: term}},
		})
	}
	return clauses
}

// flatSuffixOps maps flat-style __suffixes to operators
var flatSuffixOps = map[string]Operator{
	"gte": OpGreaterThanOrEqual,
	"lte": OpLessThanOrEqual,
	"gt":  OpGreaterThan,
	"lt":  OpLessThan,
	"ne":  OpNotEqual,
}

// parseFlatFilter tokenizes one flat-style key occurrence: a bare path is an
// equality filter, a trailing __suffix selects the operator.
func parseFlatFilter(key, raw string) []*FilterClause {
	path := key
	op := OpEqual

	if idx := strings.LastIndex(key, "__"); idx > 0 {
		suffix := key[idx+2:]
		switch {
		case suffix == "contains":
			return parseContainsTerms(key[:idx], raw)
		case suffix == "isnull":
			clause := &FilterClause{Path: key[:idx]}
			if isTruthy(raw) {
				clause.Values = []FilterValue{{Operator: OpIsNull}}
			} else {
				clause.Values = []FilterValue{{Operator: OpIsNotNull}}
			}
			return []*FilterClause{clause}
		default:
			if mapped, ok := flatSuffixOps[suffix]; ok {
				path = key[:idx]
				op = mapped
			}
		}
	}

	clause := &FilterClause{Path: path}
	for _, value := range strings.Split(raw, ",") {
		clause.Values = append(clause.Values, FilterValue{Operator: op, Raw: value})
	}
	return []*FilterClause{clause}
}

func isTruthy(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func parsePositiveInt(param, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &PaginationError{Param: param, Message: "not an integer"}
	}
	if n <= 0 {
		return 0, &PaginationError{Param: param, Message: "must be positive"}
	}
	return n, nil
}

func parseNonNegativeInt(param, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &PaginationError{Param: param, Message: "not an integer"}
	}
	if n < 0 {
		return 0, &PaginationError{Param: param, Message: "must not be negative"}
	}
	return n, nil
}

// checkPaginationStyle rejects requests mixing the limit/offset and
// page/page_size styles.
func checkPaginationStyle(p Pagination) error {
	limitStyle := p.Limit != nil || p.Offset != nil
	pageStyle := p.Page != nil || p.PageSize != nil
	if limitStyle && pageStyle {
		return &PaginationError{
			Param:   "page",
			Message: "cannot combine page/page_size with limit/offset",
		}
	}
	return nil
}
