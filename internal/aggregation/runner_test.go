package aggregation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	coreagg "github.com/aevon-lab/collate/internal/core/aggregation"
	"github.com/stretchr/testify/require"
)

// recordingExecutor records statements and fails those containing failOn.
type recordingExecutor struct {
	mu     sync.Mutex
	stmts  []string
	failOn string
}

func (e *recordingExecutor) Exec(_ context.Context, stmt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn != "" && strings.Contains(stmt, e.failOn) {
		return errors.New("boom")
	}
	e.stmts = append(e.stmts, stmt)
	return nil
}

func (e *recordingExecutor) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.stmts...)
}

func testPlanDefinition(t *testing.T) coreagg.PlanDefinition {
	t.Helper()
	agg, err := coreagg.NewAggregate([]string{"amount"}, []string{"sum", "count"}, []string{"amount"})
	require.NoError(t, err)

	return coreagg.PlanDefinition{
		Name: "events_features",
		Plan: coreagg.NewPlan(coreagg.PlanParams{
			Aggregates: []*coreagg.Aggregate{agg},
			Source:     "events",
			Groups: []coreagg.GroupWindows{
				{Group: "id", Windows: []string{"1 month", coreagg.WindowAll}},
				{Group: "zip", Windows: []string{coreagg.WindowAll}},
			},
			Dates: []string{"2016-01-01", "2016-02-01"},
		}),
	}
}

func indexOf(t *testing.T, stmts []string, prefix string) int {
	t.Helper()
	for i, s := range stmts {
		if strings.HasPrefix(s, prefix) {
			return i
		}
	}
	t.Fatalf("statement with prefix %q not executed: %v", prefix, stmts)
	return -1
}

func TestBuild(t *testing.T) {
	def := testPlanDefinition(t)
	batch := Build(def.Name, def.Plan)

	require.Equal(t, "events_features", batch.Plan)
	require.Len(t, batch.Groups, 2)

	id := batch.Groups[0]
	require.Len(t, id, 3)
	require.Equal(t, PlannedStatement{Group: "id", Kind: KindDrop, SQL: `DROP TABLE IF EXISTS "events_id"`}, id[0])
	require.Equal(t, KindCreate, id[1].Kind)
	require.True(t, strings.HasPrefix(id[1].SQL, `CREATE TABLE "events_id" AS (SELECT id, '2016-01-01'::date AS "date"`))
	require.Equal(t, 1, strings.Count(id[1].SQL, " UNION ALL "))
	require.Equal(t, PlannedStatement{Group: "id", Kind: KindIndex, SQL: `CREATE INDEX ON "events_id" (id, date)`}, id[2])

	require.Equal(t, "zip", batch.Groups[1][0].Group)

	require.Equal(t, []PlannedStatement{
		{Kind: KindFinalDrop, SQL: `DROP TABLE IF EXISTS "events_aggregation"`},
		{Kind: KindFinalCreate, SQL: `CREATE TABLE "events_aggregation" AS (SELECT * FROM (SELECT id, zip FROM events GROUP BY id, zip) t1 ` +
			`CROSS JOIN (SELECT unnest('{2016-01-01,2016-02-01}'::date[]) AS "date") t2 ` +
			`LEFT JOIN "events_id" USING (id, date) LEFT JOIN "events_zip" USING (zip, date))`},
	}, batch.Final)

	all := batch.Statements()
	require.Len(t, all, 8)
	require.Equal(t, KindFinalCreate, all[len(all)-1].Kind)
}

func TestRunner_RunOrdersStatements(t *testing.T) {
	exec := &recordingExecutor{}
	runner := NewRunner(exec, RunParameter{WorkerCount: 2})

	res, err := runner.Run(context.Background(), testPlanDefinition(t))
	require.NoError(t, err)
	require.Equal(t, "events_features", res.Plan)
	require.Equal(t, 8, res.Statements)
	require.NotEmpty(t, res.RunID)

	stmts := exec.executed()
	require.Len(t, stmts, 8)

	for _, table := range []string{`"events_id"`, `"events_zip"`} {
		drop := indexOf(t, stmts, "DROP TABLE IF EXISTS "+table)
		create := indexOf(t, stmts, "CREATE TABLE "+table)
		index := indexOf(t, stmts, "CREATE INDEX ON "+table)
		require.Less(t, drop, create)
		require.Less(t, create, index)
	}

	require.Equal(t, `DROP TABLE IF EXISTS "events_aggregation"`, stmts[6])
	require.True(t, strings.HasPrefix(stmts[7], `CREATE TABLE "events_aggregation"`))
}

func TestRunner_RunStopsOnGroupFailure(t *testing.T) {
	exec := &recordingExecutor{failOn: `CREATE TABLE "events_zip"`}
	runner := NewRunner(exec, RunParameter{WorkerCount: 1})

	_, err := runner.Run(context.Background(), testPlanDefinition(t))
	require.Error(t, err)
	require.ErrorContains(t, err, `plan "events_features": group "zip" create: boom`)

	for _, stmt := range exec.executed() {
		require.NotContains(t, stmt, `"events_aggregation"`)
	}
}

func TestRunner_RunFinalFailure(t *testing.T) {
	exec := &recordingExecutor{failOn: `CREATE TABLE "events_aggregation"`}
	runner := NewRunner(exec, RunParameter{})

	_, err := runner.Run(context.Background(), testPlanDefinition(t))
	require.ErrorContains(t, err, "final_create: boom")
	require.Len(t, exec.executed(), 7)
}

func TestRunner_RunCancelledContext(t *testing.T) {
	exec := &recordingExecutor{}
	runner := NewRunner(exec, RunParameter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, testPlanDefinition(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, exec.executed())
}

func TestRunParameter_Normalized(t *testing.T) {
	require.Equal(t, defaultWorkerCount, RunParameter{}.normalized().WorkerCount)
	require.Equal(t, 7, RunParameter{WorkerCount: 7}.normalized().WorkerCount)
}
