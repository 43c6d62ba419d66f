package planner

// Node is one relation in the dependency graph.
// Forward edges point from a prerequisite to the relations that need it.
// Reverse edges point from a relation back to its prerequisites.
type Node struct {
	Name    string
	Rank    int                 // declaration order, used to break ties
	Forward map[string]struct{} // relations that depend on this node
	Reverse map[string]struct{} // relations this node depends on
}

// DAG holds the directed acyclic graph of relation dependencies.
type DAG struct {
	Nodes map[string]*Node
}

// BuildDAG constructs a DAG from relation names in declaration order and a
// map of relation name to the names it depends on.
//
// Only names present in the input slice are included as nodes. Dependencies
// referencing names not in the input are silently ignored; callers that need
// to reject them use MissingDependencies.
func BuildDAG(names []string, deps map[string][]string) *DAG {
	dag := &DAG{
		Nodes: make(map[string]*Node, len(names)),
	}

	for i, name := range names {
		if _, dup := dag.Nodes[name]; dup {
			continue
		}
		dag.Nodes[name] = &Node{
			Name:    name,
			Rank:    i,
			Forward: make(map[string]struct{}),
			Reverse: make(map[string]struct{}),
		}
	}

	for name, prereqs := range deps {
		toNode, ok := dag.Nodes[name]
		if !ok {
			continue
		}
		for _, prereq := range prereqs {
			fromNode, ok := dag.Nodes[prereq]
			if !ok {
				continue
			}
			fromNode.Forward[name] = struct{}{}
			toNode.Reverse[prereq] = struct{}{}
		}
	}

	return dag
}

// MissingDependencies returns "name -> dependency" pairs whose dependency is
// not one of names, sorted for stable output.
func MissingDependencies(names []string, deps map[string][]string) []string {
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}

	var missing []string
	for name, prereqs := range deps {
		for _, p := range prereqs {
			if _, ok := known[p]; !ok {
				missing = append(missing, name+" -> "+p)
			}
		}
	}
	sortStrings(missing)
	return missing
}
