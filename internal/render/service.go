package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/aevon-lab/collate/internal/aggregation"
	"github.com/aevon-lab/collate/internal/core/sqlexpr"
)

// ErrExecutionDisabled is returned by RunPlan when no runner is configured.
var ErrExecutionDisabled = errors.New("statement execution is disabled")

// Service exposes the plan catalog: listing, rendering and, when a runner is
// configured, execution.
type Service struct {
	plans  aggregation.PlanRepository
	runner aggregation.PlanRunner
}

// NewService creates a render service. runner may be nil for render-only use.
func NewService(plans aggregation.PlanRepository, runner aggregation.PlanRunner) *Service {
	return &Service{plans: plans, runner: runner}
}

// ListPlans summarises every plan in the catalog.
func (s *Service) ListPlans(ctx context.Context) (*PlanListResponse, error) {
	defs, err := s.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	resp := &PlanListResponse{Plans: make([]PlanSummary, 0, len(defs))}
	for _, def := range defs {
		resp.Plans = append(resp.Plans, PlanSummary{
			Name:        def.Name,
			Fingerprint: def.Fingerprint,
			Source:      def.Plan.Source(),
			Table:       string(def.Plan.Name()),
			Groups:      def.Plan.Groups(),
			Dates:       def.Plan.Dates(),
		})
	}
	return resp, nil
}

// RenderPlan renders every statement of the named plan.
func (s *Service) RenderPlan(ctx context.Context, name string) (*PlanSQLResponse, error) {
	def, err := s.plans.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	pl := def.Plan

	resp := &PlanSQLResponse{
		Plan:        def.Name,
		Fingerprint: def.Fingerprint,
		Selects:     make(map[string][]string),
		Creates:     make(map[string]string),
		Drops:       make(map[string]string),
		Indexes:     make(map[string]string),
		Create:      sqlexpr.Render(pl.Create(nil)),
		Drop:        sqlexpr.Render(pl.Drop()),
		Batch:       aggregation.Build(def.Name, pl).Statements(),
	}
	for group, queries := range pl.Selects() {
		rendered := make([]string, len(queries))
		for i, q := range queries {
			rendered[i] = sqlexpr.Render(q)
		}
		resp.Selects[group] = rendered
	}
	for group, c := range pl.Creates(nil) {
		resp.Creates[group] = sqlexpr.Render(c)
	}
	for group, d := range pl.Drops() {
		resp.Drops[group] = sqlexpr.Render(d)
	}
	for group, i := range pl.Indexes() {
		resp.Indexes[group] = sqlexpr.Render(i)
	}
	return resp, nil
}

// RunPlan executes the named plan.
func (s *Service) RunPlan(ctx context.Context, name string) (*aggregation.RunResult, error) {
	if s.runner == nil {
		return nil, ErrExecutionDisabled
	}
	def, err := s.plans.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.Run(ctx, *def)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
