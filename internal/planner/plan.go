package planner

import (
	"github.com/ALT-F4-LLC/treeport/internal/filter"
)

// Phase is a group of relations whose prerequisites all belong to earlier
// phases.
type Phase struct {
	Number    int
	Relations []string
}

// Plan is the full restore order: a sequence of phases with summary stats.
type Plan struct {
	Phases         []Phase
	TotalRelations int
	TotalPhases    int
	MaxWidth       int
}

// PlanFilters controls which relations are included in the generated plan.
type PlanFilters struct {
	Skip []string
}

// GeneratePlan builds a restore plan from the DAG. Phase 1 contains
// relations with no prerequisites; phase N contains relations whose
// prerequisites are all in earlier phases. Skipped relations are dropped
// after ordering so the remaining phases keep their relative order.
func GeneratePlan(dag *DAG, filters PlanFilters) (*Plan, error) {
	skip := filter.ToStringSet(filters.Skip)

	levels, err := TopoSort(dag)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, level := range levels {
		relations := filter.Without(level, skip)
		if len(relations) == 0 {
			continue
		}
		plan.Phases = append(plan.Phases, Phase{
			Number:    len(plan.Phases) + 1,
			Relations: relations,
		})
	}

	for _, phase := range plan.Phases {
		plan.TotalRelations += len(phase.Relations)
		if len(phase.Relations) > plan.MaxWidth {
			plan.MaxWidth = len(phase.Relations)
		}
	}
	plan.TotalPhases = len(plan.Phases)

	return plan, nil
}

// Flatten returns the relations of every phase in processing order.
func (p *Plan) Flatten() []string {
	out := make([]string, 0, p.TotalRelations)
	for _, phase := range p.Phases {
		out = append(out, phase.Relations...)
	}
	return out
}
