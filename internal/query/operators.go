// Package query parses, validates, and translates filter/sort/pagination
// query parameters, including dotted paths across declared relationships,
// into a bounded SQL query against a relational store.
package query

import (
	"fmt"
	"strings"
)

// Operator represents a comparison operator in a filter clause
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpContains
	OpIsNull
	OpIsNotNull
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "eq"
	case OpNotEqual:
		return "ne"
	case OpGreaterThan:
		return "gt"
	case OpGreaterThanOrEqual:
		return "gte"
	case OpLessThan:
		return "lt"
	case OpLessThanOrEqual:
		return "lte"
	case OpContains:
		return "contains"
	case OpIsNull:
		return "isnull"
	case OpIsNotNull:
		return "isnotnull"
	default:
		return "unknown"
	}
}

// NeedsValue returns false for operators that take no right-hand value
func (o Operator) NeedsValue() bool {
	return o != OpIsNull && o != OpIsNotNull
}

// Condition is one predicate against a resolved column
type Condition struct {
	Column   string // fully qualified (alias.column)
	Operator Operator
	Value    interface{}
}

// conditionToSQL converts a condition to SQL with parameterized values
func conditionToSQL(cond *Condition, paramCounter *int, args *[]interface{}) (string, error) {
	switch cond.Operator {
	case OpEqual:
		if cond.Value == nil {
			return fmt.Sprintf("%s IS NULL", cond.Column), nil
		}
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s = $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpNotEqual:
		if cond.Value == nil {
			return fmt.Sprintf("%s IS NOT NULL", cond.Column), nil
		}
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s != $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpGreaterThan:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s > $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpGreaterThanOrEqual:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s >= $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpLessThan:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s < $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpLessThanOrEqual:
		*args = append(*args, cond.Value)
		sql := fmt.Sprintf("%s <= $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpContains:
		value, ok := cond.Value.(string)
		if !ok {
			return "", fmt.Errorf("contains operator requires a string value")
		}
		*args = append(*args, "%"+value+"%")
		sql := fmt.Sprintf("%s ILIKE $%d", cond.Column, *paramCounter)
		*paramCounter++
		return sql, nil

	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", cond.Column), nil

	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", cond.Column), nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", cond.Operator)
	}
}

// orGroupToSQL renders a group of conditions OR'd together, parenthesized
// when more than one condition is present.
func orGroupToSQL(conds []*Condition, paramCounter *int, args *[]interface{}) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, cond := range conds {
		sql, err := conditionToSQL(cond, paramCounter, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}
