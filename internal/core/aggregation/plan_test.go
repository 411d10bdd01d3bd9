package aggregation

import (
	"sync"
	"testing"

	"github.com/aevon-lab/collate/internal/core/sqlexpr"
	"github.com/stretchr/testify/require"
)

const (
	sel20160101 = `SELECT id, '2016-01-01'::date AS "date", ` +
		`sum(CASE WHEN '2016-01-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_sum", ` +
		`count(CASE WHEN '2016-01-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_count", ` +
		`sum(amount) AS "events_id_all_amount_sum", ` +
		`count(amount) AS "events_id_all_amount_count" ` +
		`FROM events WHERE date < '2016-01-01' GROUP BY id`
	sel20160201 = `SELECT id, '2016-02-01'::date AS "date", ` +
		`sum(CASE WHEN '2016-02-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_sum", ` +
		`count(CASE WHEN '2016-02-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_count", ` +
		`sum(amount) AS "events_id_all_amount_sum", ` +
		`count(amount) AS "events_id_all_amount_count" ` +
		`FROM events WHERE date < '2016-02-01' GROUP BY id`
)

func newTestPlan(t *testing.T) *Plan {
	t.Helper()
	agg, err := NewAggregate([]string{"amount"}, []string{"sum", "count"}, []string{"amount"})
	require.NoError(t, err)

	return NewPlan(PlanParams{
		Aggregates: []*Aggregate{agg},
		Source:     "events",
		Groups:     []GroupWindows{{Group: "id", Windows: []string{"1 month", WindowAll}}},
		Dates:      []string{"2016-01-01", "2016-02-01"},
	})
}

func newTwoGroupPlan(t *testing.T) *Plan {
	t.Helper()
	sums, err := NewAggregate([]string{"amount", "fee"}, []string{"sum"}, nil)
	require.NoError(t, err)
	counts, err := NewAggregate([]string{"1"}, []string{"count"}, []string{"events"})
	require.NoError(t, err)

	return NewPlan(PlanParams{
		Aggregates: []*Aggregate{sums, counts},
		Source:     "payments",
		Prefix:     "pay",
		Suffix:     "features",
		DateColumn: "paid_at",
		Groups: []GroupWindows{
			{Group: "account_id", Windows: []string{"1 year"}},
			{Group: "merchant_id", Windows: []string{WindowAll, "6 months"}},
		},
		Dates: []string{"2020-01-01"},
	})
}

func TestNewPlan_Defaults(t *testing.T) {
	pl := newTestPlan(t)
	require.Equal(t, "events", pl.Prefix())
	require.Equal(t, DefaultSuffix, pl.Suffix())
	require.Equal(t, DefaultDateColumn, pl.DateColumn())
	require.Equal(t, []string{"id"}, pl.Groups())
	require.Equal(t, sqlexpr.Ident("events_aggregation"), pl.Name())
	require.Equal(t, sqlexpr.Ident("events_id"), pl.TableName("id"))
}

func TestNewPlan_CopiesParams(t *testing.T) {
	dates := []string{"2016-01-01"}
	groups := []GroupWindows{{Group: "id", Windows: []string{"all"}}}
	pl := NewPlan(PlanParams{Source: "events", Groups: groups, Dates: dates})

	dates[0] = "1999-01-01"
	groups[0].Windows[0] = "1 day"

	require.Equal(t, []string{"2016-01-01"}, pl.Dates())
	require.Equal(t, []GroupWindows{{Group: "id", Windows: []string{"all"}}}, pl.GroupWindows())
}

func TestPlan_WindowPredicate(t *testing.T) {
	pl := newTwoGroupPlan(t)

	for _, date := range []string{"2016-01-01", "1970-01-01", ""} {
		require.Nil(t, pl.WindowPredicate(WindowAll, date))
	}
	require.Equal(t,
		"'2020-01-01' <= paid_at + interval '6 months'",
		sqlexpr.Render(pl.WindowPredicate("6 months", "2020-01-01")),
	)
}

func TestPlan_ColumnPrefix(t *testing.T) {
	pl := newTwoGroupPlan(t)
	require.Equal(t, "pay_merchant_id_6months_", pl.ColumnPrefix("merchant_id", "6 months"))
	require.Equal(t, "pay_account_id_all_", pl.ColumnPrefix("account_id", WindowAll))
}

func TestPlan_Selects(t *testing.T) {
	pl := newTestPlan(t)
	selects := pl.Selects()

	require.Len(t, selects, 1)
	require.Len(t, selects["id"], 2)
	require.Equal(t, sel20160101, sqlexpr.Render(selects["id"][0]))
	require.Equal(t, sel20160201, sqlexpr.Render(selects["id"][1]))

	var names []string
	for _, c := range pl.Columns("id", "2016-01-01") {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{
		"events_id_1month_amount_sum",
		"events_id_1month_amount_count",
		"events_id_all_amount_sum",
		"events_id_all_amount_count",
	}, names)
}

func TestPlan_SelectsCutoffAndWindowAreIndependent(t *testing.T) {
	pl := newTestPlan(t)
	sel := pl.Selects()["id"][1].(sqlexpr.Select)

	where := sel.Where.(sqlexpr.Binary)
	require.Equal(t, "<", where.Op)
	require.Equal(t, sqlexpr.Raw("date"), where.Left)
	require.Equal(t, sqlexpr.Literal("2016-02-01"), where.Right)

	// columns: group, date, then the 1 month window aggregates
	windowed := sel.Columns[2].(sqlexpr.Label).X.(sqlexpr.Call).Args[0].(sqlexpr.CaseWhen)
	when := windowed.When.(sqlexpr.Binary)
	require.Equal(t, "<=", when.Op)
	require.Equal(t, sqlexpr.Literal("2016-02-01"), when.Left)
	require.Equal(t, "date + interval '1 month'", sqlexpr.Render(when.Right))

	unfiltered := sel.Columns[4].(sqlexpr.Label).X.(sqlexpr.Call).Args[0]
	require.Equal(t, sqlexpr.Raw("amount"), unfiltered)
}

func TestPlan_SelectsMultipleGroups(t *testing.T) {
	pl := newTwoGroupPlan(t)
	selects := pl.Selects()
	require.Len(t, selects, 2)

	require.Equal(t,
		`SELECT account_id, '2020-01-01'::date AS "date", `+
			`sum(CASE WHEN '2020-01-01' <= paid_at + interval '1 year' THEN amount END) AS "pay_account_id_1year_amount_sum", `+
			`sum(CASE WHEN '2020-01-01' <= paid_at + interval '1 year' THEN fee END) AS "pay_account_id_1year_fee_sum", `+
			`count(CASE WHEN '2020-01-01' <= paid_at + interval '1 year' THEN 1 END) AS "pay_account_id_1year_events_count" `+
			`FROM payments WHERE paid_at < '2020-01-01' GROUP BY account_id`,
		sqlexpr.Render(selects["account_id"][0]),
	)

	var names []string
	for _, c := range pl.Columns("merchant_id", "2020-01-01") {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{
		"pay_merchant_id_all_amount_sum",
		"pay_merchant_id_all_fee_sum",
		"pay_merchant_id_all_events_count",
		"pay_merchant_id_6months_amount_sum",
		"pay_merchant_id_6months_fee_sum",
		"pay_merchant_id_6months_events_count",
	}, names)
}

func TestPlan_Creates(t *testing.T) {
	pl := newTestPlan(t)
	creates := pl.Creates(nil)

	require.Len(t, creates, 1)
	create := creates["id"]
	require.Equal(t, sqlexpr.Ident("events_id"), create.Name)
	require.Len(t, create.Query.(sqlexpr.UnionAll).Queries, 2)
	require.Equal(t,
		`CREATE TABLE "events_id" AS (`+sel20160101+` UNION ALL `+sel20160201+`)`,
		create.String(),
	)
}

func TestPlan_CreatesWithCustomSelects(t *testing.T) {
	pl := newTestPlan(t)

	selects := pl.Selects()
	custom := selects["id"][0].(sqlexpr.Select)
	custom.From = sqlexpr.Raw("events_sample")
	selects["id"] = []sqlexpr.Query{custom}

	create := pl.Creates(selects)["id"]
	require.Equal(t, `CREATE TABLE "events_id" AS (`+
		`SELECT id, '2016-01-01'::date AS "date", `+
		`sum(CASE WHEN '2016-01-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_sum", `+
		`count(CASE WHEN '2016-01-01' <= date + interval '1 month' THEN amount END) AS "events_id_1month_amount_count", `+
		`sum(amount) AS "events_id_all_amount_sum", `+
		`count(amount) AS "events_id_all_amount_count" `+
		`FROM events_sample WHERE date < '2016-01-01' GROUP BY id)`,
		create.String(),
	)

	// the plan itself is unaffected
	require.Equal(t, sel20160101, sqlexpr.Render(pl.Selects()["id"][0]))
}

func TestPlan_CreatesSkipsEmptyGroups(t *testing.T) {
	pl := NewPlan(PlanParams{Source: "events", Groups: []GroupWindows{{Group: "id", Windows: []string{"all"}}}})
	require.Empty(t, pl.Creates(nil))
}

func TestPlan_DropsAndIndexes(t *testing.T) {
	pl := newTwoGroupPlan(t)

	drops := pl.Drops()
	require.Len(t, drops, 2)
	require.Equal(t, `DROP TABLE IF EXISTS "pay_account_id"`, drops["account_id"].String())
	require.Equal(t, `DROP TABLE IF EXISTS "pay_merchant_id"`, drops["merchant_id"].String())

	indexes := pl.Indexes()
	require.Len(t, indexes, 2)
	require.Equal(t, `CREATE INDEX ON "pay_account_id" (account_id, date)`, indexes["account_id"].String())
	require.Equal(t, `CREATE INDEX ON "pay_merchant_id" (merchant_id, date)`, indexes["merchant_id"].String())
}

func TestPlan_QuotedGroupTableName(t *testing.T) {
	pl := NewPlan(PlanParams{Source: "events", Groups: []GroupWindows{{Group: `"Id"`, Windows: []string{"all"}}}})
	require.Equal(t, `DROP TABLE IF EXISTS "events_Id"`, pl.Drops()[`"Id"`].String())
	require.Equal(t, `CREATE INDEX ON "events_Id" ("Id", date)`, pl.Indexes()[`"Id"`].String())
}

func TestPlan_JoinTable(t *testing.T) {
	require.Equal(t,
		"SELECT account_id, merchant_id FROM payments GROUP BY account_id, merchant_id",
		newTwoGroupPlan(t).JoinTable().String(),
	)
}

func TestPlan_Create(t *testing.T) {
	require.Equal(t,
		`CREATE TABLE "events_aggregation" AS (SELECT * FROM (SELECT id FROM events GROUP BY id) t1 `+
			`CROSS JOIN (SELECT unnest('{2016-01-01,2016-02-01}'::date[]) AS "date") t2 `+
			`LEFT JOIN "events_id" USING (id, date))`,
		newTestPlan(t).Create(nil).String(),
	)

	require.Equal(t,
		`CREATE TABLE "pay_features" AS (SELECT * FROM `+
			`(SELECT account_id, merchant_id FROM payments GROUP BY account_id, merchant_id) t1 `+
			`CROSS JOIN (SELECT unnest('{2020-01-01}'::date[]) AS "date") t2 `+
			`LEFT JOIN "pay_account_id" USING (account_id, date) `+
			`LEFT JOIN "pay_merchant_id" USING (merchant_id, date))`,
		newTwoGroupPlan(t).Create(nil).String(),
	)
}

func TestPlan_CreateWithJoinTable(t *testing.T) {
	require.Equal(t,
		`CREATE TABLE "events_aggregation" AS (SELECT * FROM active_ids t1 `+
			`CROSS JOIN (SELECT unnest('{2016-01-01,2016-02-01}'::date[]) AS "date") t2 `+
			`LEFT JOIN "events_id" USING (id, date))`,
		newTestPlan(t).Create(sqlexpr.Raw("active_ids t1")).String(),
	)
}

func TestPlan_Drop(t *testing.T) {
	require.Equal(t, `DROP TABLE IF EXISTS "events_aggregation"`, newTestPlan(t).Drop().String())
	require.Equal(t, `DROP TABLE IF EXISTS "pay_features"`, newTwoGroupPlan(t).Drop().String())
}

func TestPlan_Idempotent(t *testing.T) {
	pl := newTwoGroupPlan(t)
	want := pl.Create(nil).String()

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for _, c := range pl.Creates(nil) {
				_ = c.String()
			}
			results[i] = pl.Create(nil).String()
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
}
