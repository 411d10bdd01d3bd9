package aggregation

import core "github.com/aevon-lab/collate/internal/core/aggregation"

// Re-export core plan types for callers that only orchestrate runs.
type Plan = core.Plan
type PlanDefinition = core.PlanDefinition
type PlanRepository = core.PlanRepository

var (
	ErrPlanNotFound             = core.ErrPlanNotFound
	NewFileSystemPlanRepository = core.NewFileSystemPlanRepository
)
