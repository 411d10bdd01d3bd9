package render

import "github.com/aevon-lab/collate/internal/aggregation"

// PlanSummary describes one catalog entry.
type PlanSummary struct {
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Source      string   `json:"source"`
	Table       string   `json:"table"`
	Groups      []string `json:"groups"`
	Dates       []string `json:"dates"`
}

// PlanListResponse is the body of GET /v1/plans.
type PlanListResponse struct {
	Plans []PlanSummary `json:"plans"`
}

// PlanSQLResponse is every statement generated for a plan, by category, plus
// the serial execution order.
type PlanSQLResponse struct {
	Plan        string                         `json:"plan"`
	Fingerprint string                         `json:"fingerprint"`
	Selects     map[string][]string            `json:"selects"`
	Creates     map[string]string              `json:"creates"`
	Drops       map[string]string              `json:"drops"`
	Indexes     map[string]string              `json:"indexes"`
	Create      string                         `json:"create"`
	Drop        string                         `json:"drop"`
	Batch       []aggregation.PlannedStatement `json:"batch"`
}
