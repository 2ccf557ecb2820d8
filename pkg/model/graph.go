package model

// Graph captures derived-field dependencies as edges parent -> dependent.
// Every derived field has exactly one parent, so the graph is a forest unless
// a definition loops back on itself.
type Graph struct {
	order      []string
	dependents map[string][]string
	parent     map[string]string
}

// NewGraph indexes the derived relationships declared by fields. Dependents
// keep the field order of the input slice.
func NewGraph(fields []FormField) *Graph {
	g := &Graph{
		order:      make([]string, 0, len(fields)),
		dependents: make(map[string][]string),
		parent:     make(map[string]string),
	}
	for _, field := range fields {
		g.order = append(g.order, field.ID)
		if !field.IsDerived || field.DerivedConfig == nil {
			continue
		}
		parent := field.DerivedConfig.ParentFieldID
		if parent == "" {
			continue
		}
		g.parent[field.ID] = parent
		g.dependents[parent] = append(g.dependents[parent], field.ID)
	}
	return g
}

// Dependents returns the fields that declare id as their direct parent.
func (g *Graph) Dependents(id string) []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.dependents[id]...)
}

// Downstream returns every field reachable from id, breadth first. Each field
// appears once and always after its parent, so recomputing in this order never
// reads a stale parent. id itself is never included.
func (g *Graph) Downstream(id string) []string {
	if g == nil {
		return nil
	}
	var out []string
	visited := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.dependents[current] {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	return out
}

// Cycle returns one dependency cycle as a closed path (first id repeated at
// the end), or nil when the graph is acyclic.
func (g *Graph) Cycle() []string {
	if g == nil {
		return nil
	}
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(g.order))
	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}
		var path []string
		current := start
		for {
			if state[current] == done {
				break
			}
			if state[current] == active {
				for i, id := range path {
					if id == current {
						cycle := append([]string(nil), path[i:]...)
						return append(cycle, current)
					}
				}
				break
			}
			state[current] = active
			path = append(path, current)
			next, ok := g.parent[current]
			if !ok {
				break
			}
			current = next
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return nil
}
