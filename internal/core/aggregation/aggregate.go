package aggregation

import (
	"errors"
	"iter"
	"slices"

	"github.com/aevon-lab/collate/internal/core/sqlexpr"
)

// ErrNameLengthMismatch is returned when an aggregate is given a different
// number of names than quantities.
var ErrNameLengthMismatch = errors.New("name length doesn't match quantity length")

// Aggregate describes one or more aggregate columns: the cross product of its
// functions with its (quantity, name) pairs.
type Aggregate struct {
	quantities []string
	functions  []string
	names      []string
}

// NewAggregate builds an Aggregate. When names is nil each quantity is used as
// its own name with double quotes removed; otherwise names must pair with
// quantities one to one.
func NewAggregate(quantities, functions, names []string) (*Aggregate, error) {
	a := &Aggregate{
		quantities: slices.Clone(quantities),
		functions:  slices.Clone(functions),
	}

	if names != nil {
		if len(names) != len(quantities) {
			return nil, ErrNameLengthMismatch
		}
		a.names = slices.Clone(names)
	} else {
		a.names = make([]string, len(quantities))
		for i, q := range quantities {
			a.names[i] = sqlexpr.StripQuotes(q)
		}
	}
	return a, nil
}

func (a *Aggregate) Quantities() []string { return slices.Clone(a.quantities) }
func (a *Aggregate) Functions() []string  { return slices.Clone(a.functions) }
func (a *Aggregate) Names() []string      { return slices.Clone(a.names) }

// Columns yields every aggregate column, function-major. With a nil when the
// column is f(q); otherwise f(CASE WHEN when THEN q END), so rows failing the
// predicate feed NULL into the aggregate. Names are prefix + name + "_" + f.
func (a *Aggregate) Columns(when sqlexpr.Expr, prefix string) iter.Seq[Column] {
	return func(yield func(Column) bool) {
		for _, fn := range a.functions {
			for i, q := range a.quantities {
				var arg sqlexpr.Expr = sqlexpr.Raw(q)
				if when != nil {
					arg = sqlexpr.CaseWhen{When: when, Then: arg}
				}
				col := Column{
					Expr: sqlexpr.Call{Func: fn, Args: []sqlexpr.Expr{arg}},
					Name: sqlexpr.StripQuotes(prefix + a.names[i] + "_" + fn),
				}
				if !yield(col) {
					return
				}
			}
		}
	}
}
