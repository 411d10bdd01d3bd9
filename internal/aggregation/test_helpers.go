package aggregation

import (
	"context"
	"fmt"
	"sort"

	coreagg "github.com/aevon-lab/collate/internal/core/aggregation"
)

// InMemoryPlanRepository is a test helper that implements PlanRepository.
type InMemoryPlanRepository struct {
	plans map[string]coreagg.PlanDefinition
}

// NewInMemoryPlanRepository creates a new in-memory plan repository for testing.
func NewInMemoryPlanRepository(defs ...coreagg.PlanDefinition) *InMemoryPlanRepository {
	repo := &InMemoryPlanRepository{
		plans: make(map[string]coreagg.PlanDefinition),
	}
	for _, def := range defs {
		repo.plans[def.Name] = def
	}
	return repo
}

func (r *InMemoryPlanRepository) Get(_ context.Context, name string) (*coreagg.PlanDefinition, error) {
	if def, ok := r.plans[name]; ok {
		return &def, nil
	}
	return nil, fmt.Errorf("%w: %q", coreagg.ErrPlanNotFound, name)
}

func (r *InMemoryPlanRepository) List(_ context.Context) ([]coreagg.PlanDefinition, error) {
	return r.Plans(), nil
}

func (r *InMemoryPlanRepository) Plans() []coreagg.PlanDefinition {
	result := make([]coreagg.PlanDefinition, 0, len(r.plans))
	for _, def := range r.plans {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
