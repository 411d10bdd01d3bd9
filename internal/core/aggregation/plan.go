package aggregation

import (
	"iter"
	"slices"
	"strings"

	"github.com/aevon-lab/collate/internal/core/sqlexpr"
)

// PlanParams is the declarative input of a Plan.
type PlanParams struct {
	Aggregates []*Aggregate
	// Source is the relation being aggregated, rendered verbatim in FROM.
	Source string
	// Groups maps each grouping expression to its windows, in output order.
	Groups []GroupWindows
	// Dates are the YYYY-MM-DD reference dates of the feature table.
	Dates []string

	Prefix     string // default: Source
	Suffix     string // default: "aggregation"
	DateColumn string // default: "date"
}

func (p PlanParams) normalized() PlanParams {
	n := p
	if n.Prefix == "" {
		n.Prefix = n.Source
	}
	if n.Suffix == "" {
		n.Suffix = DefaultSuffix
	}
	if n.DateColumn == "" {
		n.DateColumn = DefaultDateColumn
	}
	n.Aggregates = slices.Clone(p.Aggregates)
	n.Dates = slices.Clone(p.Dates)
	n.Groups = cloneGroups(p.Groups)
	return n
}

func cloneGroups(groups []GroupWindows) []GroupWindows {
	out := make([]GroupWindows, len(groups))
	for i, g := range groups {
		out[i] = GroupWindows{Group: g.Group, Windows: slices.Clone(g.Windows)}
	}
	return out
}

// Plan expands a set of aggregates over groups, windows and reference dates
// into the statements that build a wide feature table keyed by (group, date).
//
// A Plan is immutable; every method is a pure function of its configuration
// and is safe for concurrent use.
type Plan struct {
	p PlanParams
}

// NewPlan creates a Plan, filling in default prefix, suffix and date column.
func NewPlan(params PlanParams) *Plan {
	return &Plan{p: params.normalized()}
}

func (pl *Plan) Source() string     { return pl.p.Source }
func (pl *Plan) Prefix() string     { return pl.p.Prefix }
func (pl *Plan) Suffix() string     { return pl.p.Suffix }
func (pl *Plan) DateColumn() string { return pl.p.DateColumn }
func (pl *Plan) Dates() []string    { return slices.Clone(pl.p.Dates) }

// Groups returns the grouping expressions in declaration order.
func (pl *Plan) Groups() []string {
	groups := make([]string, len(pl.p.Groups))
	for i, g := range pl.p.Groups {
		groups[i] = g.Group
	}
	return groups
}

// GroupWindows returns a copy of the group → windows configuration.
func (pl *Plan) GroupWindows() []GroupWindows {
	return cloneGroups(pl.p.Groups)
}

// WindowPredicate returns the filter applied inside each aggregate for a
// window at a reference date, or nil for WindowAll. An event is in the window
// when date <= event_date + window, edge inclusive.
func (pl *Plan) WindowPredicate(window, date string) sqlexpr.Expr {
	if window == WindowAll {
		return nil
	}
	return sqlexpr.Binary{
		Left: sqlexpr.Literal(date),
		Op:   "<=",
		Right: sqlexpr.Binary{
			Left:  sqlexpr.Raw(pl.p.DateColumn),
			Op:    "+",
			Right: sqlexpr.Interval(window),
		},
	}
}

// ColumnPrefix is the name prefix of every column generated for a group and
// window: <prefix>_<group>_<window without spaces>_.
func (pl *Plan) ColumnPrefix(group, window string) string {
	return pl.p.Prefix + "_" + group + "_" + WindowLabel(window) + "_"
}

// TableName is the per-group aggregation table.
func (pl *Plan) TableName(group string) sqlexpr.Ident {
	return sqlexpr.Ident(sqlexpr.StripQuotes(pl.p.Prefix + "_" + group))
}

// Name is the final feature table.
func (pl *Plan) Name() sqlexpr.Ident {
	return sqlexpr.Ident(sqlexpr.StripQuotes(pl.p.Prefix + "_" + pl.p.Suffix))
}

func (pl *Plan) windowColumns(window, date, group string) iter.Seq[Column] {
	when := pl.WindowPredicate(window, date)
	prefix := pl.ColumnPrefix(group, window)
	return func(yield func(Column) bool) {
		for _, a := range pl.p.Aggregates {
			for col := range a.Columns(when, prefix) {
				if !yield(col) {
					return
				}
			}
		}
	}
}

// Columns returns the aggregate columns generated for one group at one
// reference date, in select-list order.
func (pl *Plan) Columns(group, date string) []Column {
	var cols []Column
	for _, g := range pl.p.Groups {
		if g.Group != group {
			continue
		}
		for _, w := range g.Windows {
			cols = slices.AppendSeq(cols, pl.windowColumns(w, date, group))
		}
	}
	return cols
}

func (pl *Plan) selectFor(group, date string) sqlexpr.Select {
	columns := []sqlexpr.Expr{
		sqlexpr.Raw(group),
		sqlexpr.Label{X: sqlexpr.Cast{X: sqlexpr.Literal(date), Type: "date"}, Name: dateLabel},
	}
	for _, col := range pl.Columns(group, date) {
		columns = append(columns, col.Labeled())
	}

	return sqlexpr.Select{
		Columns: columns,
		From:    sqlexpr.Raw(pl.p.Source),
		Where: sqlexpr.Binary{
			Left:  sqlexpr.Raw(pl.p.DateColumn),
			Op:    "<",
			Right: sqlexpr.Literal(date),
		},
		GroupBy: []sqlexpr.Expr{sqlexpr.Raw(group)},
	}
}

// Selects returns, per group, one SELECT per reference date in date order.
// Every SELECT of a group has the same columns so they can be unioned.
func (pl *Plan) Selects() map[string][]sqlexpr.Query {
	queries := make(map[string][]sqlexpr.Query, len(pl.p.Groups))
	for _, g := range pl.p.Groups {
		qs := make([]sqlexpr.Query, 0, len(pl.p.Dates))
		for _, date := range pl.p.Dates {
			qs = append(qs, pl.selectFor(g.Group, date))
		}
		queries[g.Group] = qs
	}
	return queries
}

// Creates returns, per group, a CREATE TABLE AS over the UNION ALL of the
// group's selects. An empty selects map means Selects(); passing a modified
// map lets callers customize queries before creation. Groups without any
// select are omitted.
func (pl *Plan) Creates(selects map[string][]sqlexpr.Query) map[string]sqlexpr.CreateTableAs {
	if len(selects) == 0 {
		selects = pl.Selects()
	}

	creates := make(map[string]sqlexpr.CreateTableAs, len(selects))
	for group, qs := range selects {
		if len(qs) == 0 {
			continue
		}
		creates[group] = sqlexpr.CreateTableAs{
			Name:  pl.TableName(group),
			Query: sqlexpr.Union(qs...),
		}
	}
	return creates
}

// Drops returns a DROP TABLE IF EXISTS per group table.
func (pl *Plan) Drops() map[string]sqlexpr.DropTable {
	drops := make(map[string]sqlexpr.DropTable, len(pl.p.Groups))
	for _, g := range pl.p.Groups {
		drops[g.Group] = sqlexpr.DropTable{Name: pl.TableName(g.Group), IfExists: true}
	}
	return drops
}

// Indexes returns a CREATE INDEX on (group, date) per group table.
func (pl *Plan) Indexes() map[string]sqlexpr.CreateIndex {
	indexes := make(map[string]sqlexpr.CreateIndex, len(pl.p.Groups))
	for _, g := range pl.p.Groups {
		indexes[g.Group] = sqlexpr.CreateIndex{
			Table:   pl.TableName(g.Group),
			Columns: sqlexpr.ColumnList([]string{g.Group, dateLabel}),
		}
	}
	return indexes
}

// JoinTable selects every distinct combination of group values in the source.
func (pl *Plan) JoinTable() sqlexpr.Select {
	groups := sqlexpr.ColumnList(pl.Groups())
	return sqlexpr.Select{
		Columns: groups,
		From:    sqlexpr.Raw(pl.p.Source),
		GroupBy: groups,
	}
}

// dateSpine is a one-column relation holding every reference date.
func (pl *Plan) dateSpine() sqlexpr.Subquery {
	array := sqlexpr.Cast{
		X:    sqlexpr.Literal("{" + strings.Join(pl.p.Dates, ",") + "}"),
		Type: "date[]",
	}
	return sqlexpr.Subquery{
		Query: sqlexpr.Select{Columns: []sqlexpr.Expr{
			sqlexpr.Label{X: sqlexpr.Call{Func: "unnest", Args: []sqlexpr.Expr{array}}, Name: dateLabel},
		}},
		Alias: "t2",
	}
}

// Create returns the statement building the final feature table: the group
// combinations cross joined with the date spine, left joined to every group
// table on (group, date). A nil joinTable means JoinTable() aliased t1.
func (pl *Plan) Create(joinTable sqlexpr.Relation) sqlexpr.CreateTableAs {
	if joinTable == nil {
		joinTable = sqlexpr.Subquery{Query: pl.JoinTable(), Alias: "t1"}
	}

	var from sqlexpr.Relation = sqlexpr.Join{
		Left:  joinTable,
		Kind:  sqlexpr.CrossJoin,
		Right: pl.dateSpine(),
	}
	for _, g := range pl.p.Groups {
		from = sqlexpr.Join{
			Left:  from,
			Kind:  sqlexpr.LeftJoin,
			Right: pl.TableName(g.Group),
			Using: sqlexpr.ColumnList([]string{g.Group, dateLabel}),
		}
	}

	return sqlexpr.CreateTableAs{
		Name: pl.Name(),
		Query: sqlexpr.Select{
			Columns: []sqlexpr.Expr{sqlexpr.Star{}},
			From:    from,
		},
	}
}

// Drop returns DROP TABLE IF EXISTS for the final feature table.
func (pl *Plan) Drop() sqlexpr.DropTable {
	return sqlexpr.DropTable{Name: pl.Name(), IfExists: true}
}
