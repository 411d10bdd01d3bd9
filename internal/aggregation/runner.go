package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/collate/internal/core/aggregation"
	"github.com/aevon-lab/collate/internal/core/sqlexpr"
	"github.com/aevon-lab/collate/internal/core/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerCount = 4

// StatementKind classifies a generated statement.
type StatementKind string

const (
	KindDrop        StatementKind = "drop"
	KindCreate      StatementKind = "create"
	KindIndex       StatementKind = "index"
	KindFinalDrop   StatementKind = "final_drop"
	KindFinalCreate StatementKind = "final_create"
)

// PlannedStatement is one rendered statement of a batch. Group is empty for
// the final table statements.
type PlannedStatement struct {
	Group string        `json:"group,omitempty"`
	Kind  StatementKind `json:"kind"`
	SQL   string        `json:"sql"`
}

// Batch is the ordered statement set that builds one plan's feature table.
// Each chain in Groups is independent of the others; Final must run after all
// of them.
type Batch struct {
	Plan   string               `json:"plan"`
	Groups [][]PlannedStatement `json:"groups"`
	Final  []PlannedStatement   `json:"final"`
}

// Statements flattens the batch into one valid serial execution order.
func (b Batch) Statements() []PlannedStatement {
	var out []PlannedStatement
	for _, chain := range b.Groups {
		out = append(out, chain...)
	}
	return append(out, b.Final...)
}

// Build renders a plan into its batch: per group drop, create, index in
// declaration order, then drop and create of the final table.
func Build(name string, plan *aggregation.Plan) Batch {
	creates := plan.Creates(nil)
	drops := plan.Drops()
	indexes := plan.Indexes()

	batch := Batch{Plan: name}
	for _, group := range plan.Groups() {
		chain := []PlannedStatement{
			{Group: group, Kind: KindDrop, SQL: sqlexpr.Render(drops[group])},
		}
		if create, ok := creates[group]; ok {
			chain = append(chain, PlannedStatement{Group: group, Kind: KindCreate, SQL: sqlexpr.Render(create)})
		}
		chain = append(chain, PlannedStatement{Group: group, Kind: KindIndex, SQL: sqlexpr.Render(indexes[group])})
		batch.Groups = append(batch.Groups, chain)
	}

	batch.Final = []PlannedStatement{
		{Kind: KindFinalDrop, SQL: sqlexpr.Render(plan.Drop())},
		{Kind: KindFinalCreate, SQL: sqlexpr.Render(plan.Create(nil))},
	}
	return batch
}

// RunParameter controls how a batch is executed.
type RunParameter struct {
	// WorkerCount bounds how many group chains run at once.
	WorkerCount int
}

func (o RunParameter) normalized() RunParameter {
	n := o
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	return n
}

// RunResult summarises one successful run.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Plan       string        `json:"plan"`
	Statements int           `json:"statements"`
	Duration   time.Duration `json:"duration_ns"`
}

// Runner executes plan batches against a StatementExecutor.
type Runner struct {
	exec storage.StatementExecutor
	opts RunParameter
}

// NewRunner creates a runner.
func NewRunner(exec storage.StatementExecutor, opts RunParameter) *Runner {
	return &Runner{exec: exec, opts: opts.normalized()}
}

// Run builds the plan and executes it: group chains in parallel, bounded by
// WorkerCount, then the final drop and create. The first failure cancels the
// remaining chains and is returned.
func (r *Runner) Run(ctx context.Context, def aggregation.PlanDefinition) (RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	batch := Build(def.Name, def.Plan)

	slog.Info("[Runner] Starting plan run",
		"run_id", runID,
		"plan", def.Name,
		"groups", len(batch.Groups),
		"workers", r.opts.WorkerCount,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.WorkerCount)
	for _, chain := range batch.Groups {
		g.Go(func() error {
			return r.execChain(gctx, runID, chain)
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("[Runner] Plan run failed", "run_id", runID, "plan", def.Name, "error", err)
		return RunResult{}, fmt.Errorf("plan %q: %w", def.Name, err)
	}

	if err := r.execChain(ctx, runID, batch.Final); err != nil {
		slog.Error("[Runner] Plan run failed", "run_id", runID, "plan", def.Name, "error", err)
		return RunResult{}, fmt.Errorf("plan %q: %w", def.Name, err)
	}

	res := RunResult{
		RunID:      runID,
		Plan:       def.Name,
		Statements: len(batch.Statements()),
		Duration:   time.Since(start),
	}
	slog.Info("[Runner] Plan run complete",
		"run_id", runID,
		"plan", def.Name,
		"statements", res.Statements,
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Runner) execChain(ctx context.Context, runID string, chain []PlannedStatement) error {
	for _, stmt := range chain {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.exec.Exec(ctx, stmt.SQL); err != nil {
			if stmt.Group != "" {
				return fmt.Errorf("group %q %s: %w", stmt.Group, stmt.Kind, err)
			}
			return fmt.Errorf("%s: %w", stmt.Kind, err)
		}
		slog.Debug("[Runner] Statement done", "run_id", runID, "group", stmt.Group, "kind", stmt.Kind)
	}
	return nil
}
