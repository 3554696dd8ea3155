package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultRowLimit caps every compiled query.
const DefaultRowLimit = 100

// PredicateOp enumerates the predicate shapes the compiler can emit.
type PredicateOp string

const (
	OpBetween    PredicateOp = "BETWEEN"
	OpGte        PredicateOp = ">="
	OpLte        PredicateOp = "<="
	OpNotNull    PredicateOp = "IS NOT NULL"
	OpAnyNotNull PredicateOp = "ANY IS NOT NULL" // OR-group over Columns
)

// Relation is a table with its alias.
type Relation struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// Join is an inner join on equality of the listed columns between the
// source alias and the joined relation.
type Join struct {
	Relation Relation `json:"relation"`
	On       []string `json:"on"`
}

// Predicate is a single WHERE term. Column names are qualified
// ("ap.latitude"); values travel only through Args.
type Predicate struct {
	Op      PredicateOp   `json:"op"`
	Column  string        `json:"column,omitempty"`
	Columns []string      `json:"columns,omitempty"`
	Args    []interface{} `json:"args,omitempty"`
}

// OrderBy is the single sort key of a compiled query.
type OrderBy struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// CompiledQuery is the structured, parameterized query built from a
// QueryIntent. It is a value type; compiling the same intent twice yields
// equal values.
type CompiledQuery struct {
	Distinct      bool        `json:"distinct"`
	SelectColumns []string    `json:"select_columns"`
	Source        Relation    `json:"source"`
	Join          *Join       `json:"join,omitempty"`
	Predicates    []Predicate `json:"predicates"`
	OrderBy       OrderBy     `json:"order_by"`
	Limit         int         `json:"limit"`
}

// SQL renders PostgreSQL text with $n placeholders and the matching
// argument list.
func (q CompiledQuery) SQL() (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{}
	argIndex := 1

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(q.SelectColumns, ", "))
	fmt.Fprintf(&b, " FROM %s %s", q.Source.Name, q.Source.Alias)

	if q.Join != nil {
		conds := make([]string, 0, len(q.Join.On))
		for _, col := range q.Join.On {
			conds = append(conds, fmt.Sprintf("%s.%s = %s.%s", q.Source.Alias, col, q.Join.Relation.Alias, col))
		}
		fmt.Fprintf(&b, " JOIN %s %s ON %s", q.Join.Relation.Name, q.Join.Relation.Alias, strings.Join(conds, " AND "))
	}

	if len(q.Predicates) > 0 {
		whereClauses := make([]string, 0, len(q.Predicates))
		for _, p := range q.Predicates {
			switch p.Op {
			case OpBetween:
				whereClauses = append(whereClauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", p.Column, argIndex, argIndex+1))
				argIndex += 2
			case OpGte, OpLte:
				whereClauses = append(whereClauses, fmt.Sprintf("%s %s $%d", p.Column, p.Op, argIndex))
				argIndex++
			case OpNotNull:
				whereClauses = append(whereClauses, p.Column+" IS NOT NULL")
			case OpAnyNotNull:
				group := make([]string, 0, len(p.Columns))
				for _, col := range p.Columns {
					group = append(group, col+" IS NOT NULL")
				}
				whereClauses = append(whereClauses, "("+strings.Join(group, " OR ")+")")
			}
			args = append(args, p.Args...)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(whereClauses, " AND "))
	}

	if q.OrderBy.Column != "" {
		fmt.Fprintf(&b, " ORDER BY %s", q.OrderBy.Column)
		if q.OrderBy.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}

// String is the audit representation: the SQL text followed by its
// bound arguments.
func (q CompiledQuery) String() string {
	text, args := q.SQL()
	if len(args) == 0 {
		return text
	}
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = fmt.Sprintf("$%d=%v", i+1, a)
	}
	return text + " [" + strings.Join(rendered, ", ") + "]"
}

// MarshalJSON exposes the rendered query rather than the internal tree.
func (q CompiledQuery) MarshalJSON() ([]byte, error) {
	text, args := q.SQL()
	return json.Marshal(struct {
		SQL  string        `json:"sql"`
		Args []interface{} `json:"args"`
	}{SQL: text, Args: args})
}
