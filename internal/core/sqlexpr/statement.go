package sqlexpr

// JoinKind is the join keyword emitted between two relations.
type JoinKind string

const (
	CrossJoin JoinKind = "CROSS JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

// Subquery renders (Query) Alias.
type Subquery struct {
	Query Query
	Alias string
}

// Join combines two relations. Using is ignored for cross joins.
type Join struct {
	Left  Relation
	Kind  JoinKind
	Right Relation
	Using []Expr
}

// Select is a SELECT ... FROM ... WHERE ... GROUP BY ... query. From, Where
// and GroupBy are optional.
type Select struct {
	Columns []Expr
	From    Relation
	Where   Expr
	GroupBy []Expr
}

// UnionAll concatenates queries with UNION ALL, keeping duplicate rows.
type UnionAll struct {
	Queries []Query
}

// CreateTableAs renders CREATE TABLE Name AS (Query).
type CreateTableAs struct {
	Name  Ident
	Query Query
}

// DropTable renders DROP TABLE [IF EXISTS] Name.
type DropTable struct {
	Name     Ident
	IfExists bool
}

// CreateIndex renders CREATE INDEX ON Table (Columns...).
type CreateIndex struct {
	Table   Ident
	Columns []Expr
}

func (Subquery) sqlNode()      {}
func (Join) sqlNode()          {}
func (Select) sqlNode()        {}
func (UnionAll) sqlNode()      {}
func (CreateTableAs) sqlNode() {}
func (DropTable) sqlNode()     {}
func (CreateIndex) sqlNode()   {}

func (Subquery) sqlRelation() {}
func (Join) sqlRelation()     {}

func (Select) sqlQuery()   {}
func (UnionAll) sqlQuery() {}

func (Select) sqlStatement()        {}
func (UnionAll) sqlStatement()      {}
func (CreateTableAs) sqlStatement() {}
func (DropTable) sqlStatement()     {}
func (CreateIndex) sqlStatement()   {}

// Union folds queries into a single UNION ALL. A single query is returned
// unchanged and nested unions are flattened.
func Union(queries ...Query) Query {
	if len(queries) == 1 {
		return queries[0]
	}
	flat := make([]Query, 0, len(queries))
	for _, q := range queries {
		if u, ok := q.(UnionAll); ok {
			flat = append(flat, u.Queries...)
			continue
		}
		flat = append(flat, q)
	}
	return UnionAll{Queries: flat}
}

func (s Select) String() string        { return Render(s) }
func (u UnionAll) String() string      { return Render(u) }
func (c CreateTableAs) String() string { return Render(c) }
func (d DropTable) String() string     { return Render(d) }
func (c CreateIndex) String() string   { return Render(c) }
