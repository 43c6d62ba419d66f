package planner

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError is returned when the DAG contains a cycle and topological
// sorting is not possible.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among relations: %s", strings.Join(e.Names, ", "))
}

// TopoSort performs a topological sort on the DAG using Kahn's algorithm.
// It returns relation names grouped by topological level: level 0 contains
// relations with no dependencies, level 1 contains relations whose
// dependencies are all in level 0, and so on. Within a level names keep
// their declaration order.
//
// Returns a CycleError if the graph contains a cycle, listing the names of
// the relations involved in the cycle.
func TopoSort(dag *DAG) ([][]string, error) {
	inDegree := make(map[string]int, len(dag.Nodes))
	for name, node := range dag.Nodes {
		inDegree[name] = len(node.Reverse)
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sortByRank(dag, queue)

	var levels [][]string
	processed := 0

	for len(queue) > 0 {
		level := make([]string, len(queue))
		copy(level, queue)
		levels = append(levels, level)
		processed += len(level)

		var nextQueue []string
		for _, name := range queue {
			for neighbor := range dag.Nodes[name].Forward {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextQueue = append(nextQueue, neighbor)
				}
			}
		}
		sortByRank(dag, nextQueue)
		queue = nextQueue
	}

	if processed != len(dag.Nodes) {
		var cycle []string
		for name, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, name)
			}
		}
		sortByRank(dag, cycle)
		return nil, &CycleError{Names: cycle}
	}

	return levels, nil
}

func sortByRank(dag *DAG, names []string) {
	sort.Slice(names, func(i, j int) bool {
		return dag.Nodes[names[i]].Rank < dag.Nodes[names[j]].Rank
	})
}

func sortStrings(s []string) {
	sort.Strings(s)
}
