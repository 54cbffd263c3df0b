package pipeline

import (
	"fmt"
	"slices"

	"github.com/emirpasic/gods/trees/binaryheap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// moduleGraph is the connection graph with one node per module, identified
// by declaration index. Edges point from producer to consumer.
type moduleGraph struct {
	forward  *simple.DirectedGraph
	backward *simple.DirectedGraph
}

// buildGraph builds the connection graph. Self-loops cannot be represented
// and are reported as cycles.
func (p *Pipeline) buildGraph() (*moduleGraph, error) {
	g := &moduleGraph{
		forward:  simple.NewDirectedGraph(),
		backward: simple.NewDirectedGraph(),
	}
	for i := range p.modules {
		g.forward.AddNode(simple.Node(i))
		g.backward.AddNode(simple.Node(i))
	}

	for _, c := range p.connections {
		from, ok := p.index[c.Producer.Module]
		if !ok {
			return nil, &UnknownSlotError{Module: c.Producer.Module, Slot: c.Producer.Output, Kind: OutputSlotKind}
		}
		to, ok := p.index[c.Consumer]
		if !ok {
			return nil, &UnknownSlotError{Module: c.Consumer, Slot: c.Input, Kind: InputSlotKind}
		}
		if from == to {
			return nil, &PipelineStructureError{Modules: []string{c.Consumer}, Reason: "module depends on itself"}
		}
		g.forward.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		g.backward.SetEdge(simple.Edge{F: simple.Node(to), T: simple.Node(from)})
	}
	return g, nil
}

// names maps nodes to module names in declaration order.
func (p *Pipeline) names(nodes []graph.Node) []string {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = int(n.ID())
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = p.modules[id].Name
	}
	return names
}

// CheckForCycles returns a PipelineStructureError naming the members of a
// cycle if the connection graph has one.
func (p *Pipeline) CheckForCycles() error {
	g, err := p.buildGraph()
	if err != nil {
		return err
	}

	cycles := topo.DirectedCyclesIn(g.forward)
	if len(cycles) == 0 {
		return nil
	}
	return &PipelineStructureError{Modules: p.names(cycles[0]), Reason: "pipeline contains a cycle"}
}

// Schedule returns every module in an order where each comes after all the
// modules it depends on. Ties are broken by declaration order. The order is
// recomputed on every call.
func (p *Pipeline) Schedule() ([]string, error) {
	if err := p.CheckForCycles(); err != nil {
		return nil, err
	}
	g, err := p.buildGraph()
	if err != nil {
		return nil, err
	}

	indegree := make([]int, len(p.modules))
	ready := binaryheap.NewWithIntComparator()
	for i := range p.modules {
		indegree[i] = g.backward.From(int64(i)).Len()
		if indegree[i] == 0 {
			ready.Push(i)
		}
	}

	schedule := make([]string, 0, len(p.modules))
	for !ready.Empty() {
		v, _ := ready.Pop()
		i := v.(int)
		schedule = append(schedule, p.modules[i].Name)

		consumers := g.forward.From(int64(i))
		for consumers.Next() {
			c := int(consumers.Node().ID())
			if indegree[c]--; indegree[c] == 0 {
				ready.Push(c)
			}
		}
	}

	if len(schedule) != len(p.modules) {
		return nil, &PipelineStructureError{Modules: p.ModuleNames(), Reason: "pipeline cannot be ordered"}
	}
	return schedule, nil
}

// ExecutableSchedule is Schedule without the modules that are not executed
// themselves.
func (p *Pipeline) ExecutableSchedule() ([]string, error) {
	schedule, err := p.Schedule()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(schedule, func(name string) bool {
		m, _ := p.Module(name)
		return !m.Executable()
	}), nil
}

// DependentModules returns the modules that consume the module's outputs,
// or with recurse every module downstream of it, in declaration order.
func (p *Pipeline) DependentModules(module string, recurse bool) ([]string, error) {
	return p.reachable(module, recurse, func(g *moduleGraph) *simple.DirectedGraph { return g.forward })
}

// Dependencies returns the modules feeding the module's inputs in
// declaration order.
func (p *Pipeline) Dependencies(module string) ([]string, error) {
	return p.reachable(module, false, func(g *moduleGraph) *simple.DirectedGraph { return g.backward })
}

// TransitiveDependencies returns every module upstream of the module in
// declaration order.
func (p *Pipeline) TransitiveDependencies(module string) ([]string, error) {
	return p.reachable(module, true, func(g *moduleGraph) *simple.DirectedGraph { return g.backward })
}

func (p *Pipeline) reachable(module string, recurse bool, pick func(*moduleGraph) *simple.DirectedGraph) ([]string, error) {
	start, ok := p.index[module]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownModule, module)
	}
	mg, err := p.buildGraph()
	if err != nil {
		return nil, err
	}
	g := pick(mg)

	var found []graph.Node
	if !recurse {
		found = graph.NodesOf(g.From(int64(start)))
	} else {
		bf := traverse.BreadthFirst{
			Visit: func(n graph.Node) {
				if n.ID() != int64(start) {
					found = append(found, n)
				}
			},
		}
		bf.Walk(g, simple.Node(start), nil)
	}
	return p.names(found), nil
}
