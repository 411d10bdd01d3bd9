package aggregation

import "github.com/aevon-lab/collate/internal/core/sqlexpr"

const (
	// WindowAll is the reserved window meaning no time restriction beyond the
	// reference-date cutoff.
	WindowAll = "all"

	DefaultSuffix     = "aggregation"
	DefaultDateColumn = "date"

	// dateLabel is the name of the reference-date column in every generated table.
	dateLabel = "date"
)

// Column is one generated aggregate column: its expression and its final,
// quote-free name.
type Column struct {
	Expr sqlexpr.Expr
	Name string
}

// Labeled returns the column as a select-list entry, Expr AS "Name".
func (c Column) Labeled() sqlexpr.Label {
	return sqlexpr.Label{X: c.Expr, Name: c.Name}
}

// GroupWindows pairs a grouping expression with the windows aggregated for it.
type GroupWindows struct {
	Group   string   `json:"group"`
	Windows []string `json:"windows"`
}
