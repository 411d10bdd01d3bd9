// Package sqlexpr holds the typed SQL nodes the aggregation planner builds and
// the single renderer that turns them into PostgreSQL text.
package sqlexpr

import "strings"

// Node is any renderable SQL fragment.
type Node interface {
	sqlNode()
}

// Expr is a scalar or column expression.
type Expr interface {
	Node
	sqlExpr()
}

// Relation can appear in a FROM clause.
type Relation interface {
	Node
	sqlRelation()
}

// Query is a row-producing statement that can be unioned or wrapped in a
// CREATE TABLE AS.
type Query interface {
	Node
	sqlQuery()
}

// Statement is anything a statement executor can run.
type Statement interface {
	Node
	sqlStatement()
}

// Raw is a verbatim SQL fragment supplied by configuration, such as a quantity
// expression, a group key or the source relation.
type Raw string

// Ident is an identifier. Embedded double quotes are stripped and the result
// is quoted as a single identifier.
type Ident string

// Literal is a string literal.
type Literal string

// Interval renders as interval '<value>'.
type Interval string

// Star is the * select-list entry.
type Star struct{}

// Cast renders X::Type.
type Cast struct {
	X    Expr
	Type string
}

// Call is a function call such as sum(amount).
type Call struct {
	Func string
	Args []Expr
}

// CaseWhen renders CASE WHEN When THEN Then END. There is no ELSE branch, so
// rows failing the condition yield NULL.
type CaseWhen struct {
	When Expr
	Then Expr
}

// Binary is a binary operation, e.g. a < b or a + b.
type Binary struct {
	Left  Expr
	Op    string
	Right Expr
}

// Label renders X AS "Name".
type Label struct {
	X    Expr
	Name string
}

func (Raw) sqlNode()      {}
func (Ident) sqlNode()    {}
func (Literal) sqlNode()  {}
func (Interval) sqlNode() {}
func (Star) sqlNode()     {}
func (Cast) sqlNode()     {}
func (Call) sqlNode()     {}
func (CaseWhen) sqlNode() {}
func (Binary) sqlNode()   {}
func (Label) sqlNode()    {}

func (Raw) sqlExpr()      {}
func (Ident) sqlExpr()    {}
func (Literal) sqlExpr()  {}
func (Interval) sqlExpr() {}
func (Star) sqlExpr()     {}
func (Cast) sqlExpr()     {}
func (Call) sqlExpr()     {}
func (CaseWhen) sqlExpr() {}
func (Binary) sqlExpr()   {}
func (Label) sqlExpr()    {}

// Raw and Ident double as relations: a configured source or a generated table.
func (Raw) sqlRelation()   {}
func (Ident) sqlRelation() {}

// StripQuotes removes every double quote from name.
func StripQuotes(name string) string {
	return strings.ReplaceAll(name, `"`, "")
}

// ColumnList wraps each string as a Raw expression.
func ColumnList(cols []string) []Expr {
	out := make([]Expr, len(cols))
	for i, c := range cols {
		out[i] = Raw(c)
	}
	return out
}
