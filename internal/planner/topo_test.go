package planner

import (
	"errors"
	"reflect"
	"testing"
)

func TestTopoSortLevelsKeepDeclarationOrder(t *testing.T) {
	names := []string{"labels", "milestones", "issues", "merge_requests", "ci_pipelines"}
	deps := map[string][]string{
		"issues":         {"labels", "milestones"},
		"merge_requests": {"labels", "milestones"},
		"ci_pipelines":   {"merge_requests"},
	}

	levels, err := TopoSort(BuildDAG(names, deps))
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}

	want := [][]string{
		{"labels", "milestones"},
		{"issues", "merge_requests"},
		{"ci_pipelines"},
	}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("levels = %v, want %v", levels, want)
	}
}

func TestTopoSortCycle(t *testing.T) {
	names := []string{"a", "b", "c"}
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}

	_, err := TopoSort(BuildDAG(names, deps))
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycleErr.Names, []string{"a", "b"}) {
		t.Errorf("cycle names = %v, want [a b]", cycleErr.Names)
	}
}

func TestBuildDAGIgnoresUnknownDependencies(t *testing.T) {
	names := []string{"issues"}
	deps := map[string][]string{"issues": {"labels"}}

	dag := BuildDAG(names, deps)
	if len(dag.Nodes["issues"].Reverse) != 0 {
		t.Errorf("unknown dependency should not create an edge")
	}

	missing := MissingDependencies(names, deps)
	if !reflect.DeepEqual(missing, []string{"issues -> labels"}) {
		t.Errorf("MissingDependencies = %v", missing)
	}
}

func TestGeneratePlan(t *testing.T) {
	names := []string{"labels", "milestones", "issues", "ci_pipelines"}
	deps := map[string][]string{
		"issues":       {"labels"},
		"ci_pipelines": {"issues"},
	}
	dag := BuildDAG(names, deps)

	tests := []struct {
		name       string
		skip       []string
		wantPhases int
		wantOrder  []string
		wantWidth  int
	}{
		{"all", nil, 3, []string{"labels", "milestones", "issues", "ci_pipelines"}, 2},
		{"skip middle phase", []string{"issues"}, 2, []string{"labels", "milestones", "ci_pipelines"}, 2},
		{"skip first phase", []string{"labels", "milestones"}, 2, []string{"issues", "ci_pipelines"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := GeneratePlan(dag, PlanFilters{Skip: tt.skip})
			if err != nil {
				t.Fatalf("GeneratePlan: %v", err)
			}
			if plan.TotalPhases != tt.wantPhases {
				t.Errorf("TotalPhases = %d, want %d", plan.TotalPhases, tt.wantPhases)
			}
			if got := plan.Flatten(); !reflect.DeepEqual(got, tt.wantOrder) {
				t.Errorf("Flatten = %v, want %v", got, tt.wantOrder)
			}
			if plan.MaxWidth != tt.wantWidth {
				t.Errorf("MaxWidth = %d, want %d", plan.MaxWidth, tt.wantWidth)
			}
			for i, phase := range plan.Phases {
				if phase.Number != i+1 {
					t.Errorf("phase %d numbered %d", i, phase.Number)
				}
			}
		})
	}
}
