package sqlexpr

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Render returns the PostgreSQL text of n. It is the only place that emits
// SQL, so every identifier and literal goes through the same quoting rules.
func Render(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

// QuoteIdent strips embedded double quotes from name and quotes it as one
// identifier.
func QuoteIdent(name string) string {
	return pq.QuoteIdentifier(StripQuotes(name))
}

func write(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
	case Raw:
		b.WriteString(string(v))
	case Ident:
		b.WriteString(QuoteIdent(string(v)))
	case Literal:
		b.WriteString(pq.QuoteLiteral(string(v)))
	case Interval:
		b.WriteString("interval ")
		b.WriteString(pq.QuoteLiteral(string(v)))
	case Star:
		b.WriteString("*")
	case Cast:
		write(b, v.X)
		b.WriteString("::")
		b.WriteString(v.Type)
	case Call:
		b.WriteString(v.Func)
		b.WriteString("(")
		writeList(b, v.Args)
		b.WriteString(")")
	case CaseWhen:
		b.WriteString("CASE WHEN ")
		write(b, v.When)
		b.WriteString(" THEN ")
		write(b, v.Then)
		b.WriteString(" END")
	case Binary:
		write(b, v.Left)
		b.WriteString(" ")
		b.WriteString(v.Op)
		b.WriteString(" ")
		write(b, v.Right)
	case Label:
		write(b, v.X)
		b.WriteString(" AS ")
		b.WriteString(QuoteIdent(v.Name))
	case Subquery:
		b.WriteString("(")
		write(b, v.Query)
		b.WriteString(")")
		if v.Alias != "" {
			b.WriteString(" ")
			b.WriteString(v.Alias)
		}
	case Join:
		write(b, v.Left)
		b.WriteString(" ")
		b.WriteString(string(v.Kind))
		b.WriteString(" ")
		write(b, v.Right)
		if v.Kind != CrossJoin && len(v.Using) > 0 {
			b.WriteString(" USING (")
			writeList(b, v.Using)
			b.WriteString(")")
		}
	case Select:
		writeSelect(b, v)
	case *Select:
		writeSelect(b, *v)
	case UnionAll:
		for i, q := range v.Queries {
			if i > 0 {
				b.WriteString(" UNION ALL ")
			}
			write(b, q)
		}
	case CreateTableAs:
		b.WriteString("CREATE TABLE ")
		write(b, v.Name)
		b.WriteString(" AS (")
		write(b, v.Query)
		b.WriteString(")")
	case DropTable:
		b.WriteString("DROP TABLE ")
		if v.IfExists {
			b.WriteString("IF EXISTS ")
		}
		write(b, v.Name)
	case CreateIndex:
		b.WriteString("CREATE INDEX ON ")
		write(b, v.Table)
		b.WriteString(" (")
		writeList(b, v.Columns)
		b.WriteString(")")
	default:
		panic(fmt.Sprintf("sqlexpr: unsupported node %T", n))
	}
}

func writeSelect(b *strings.Builder, s Select) {
	b.WriteString("SELECT ")
	writeList(b, s.Columns)
	if s.From != nil {
		b.WriteString(" FROM ")
		write(b, s.From)
	}
	if s.Where != nil {
		b.WriteString(" WHERE ")
		write(b, s.Where)
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		writeList(b, s.GroupBy)
	}
}

func writeList(b *strings.Builder, exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, e)
	}
}
