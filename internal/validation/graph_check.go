package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rendis/flowscript/pkg/schema"
)

// flowGraph is the resolved connector graph of a flow. Dangling connectors
// are dropped; the semantic stage reports them.
type flowGraph struct {
	nodes    []*schema.Element
	edges    map[*schema.Element][]*schema.Element
	normalIn map[*schema.Element]int
	gotoIn   map[*schema.Element]int
}

func buildGraph(flow *schema.Flow) *flowGraph {
	elements := schema.NewElementMap(flow)
	g := &flowGraph{
		edges:    make(map[*schema.Element][]*schema.Element),
		normalIn: make(map[*schema.Element]int),
		gotoIn:   make(map[*schema.Element]int),
	}
	if flow.Start != nil {
		g.nodes = append(g.nodes, flow.Start)
	}
	g.nodes = append(g.nodes, flow.Elements...)

	for _, el := range g.nodes {
		for _, edge := range el.Edges() {
			target, ok := elements.Find(edge.Connector.Target)
			if !ok {
				continue
			}
			g.edges[el] = append(g.edges[el], target)
			if edge.Connector.IsGoTo {
				g.gotoIn[target]++
			} else {
				g.normalIn[target]++
			}
		}
	}
	return g
}

// validateGraph performs graph analysis from the start element:
// reachability (BFS), goto-only targets and cycles that bypass every loop
// (Tarjan's strongly connected components).
func validateGraph(flow *schema.Flow) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	g := buildGraph(flow)

	reachable := map[*schema.Element]bool{flow.Start: true}
	queue := []*schema.Element{flow.Start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[node] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for i, el := range flow.Elements {
		// Formulas and templates are referenced by name, not connected.
		if el.Kind == schema.KindFormula || el.Kind == schema.KindTextTemplate {
			continue
		}
		path := elementPath(el, i)
		if !reachable[el] {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("element %q is unreachable from the start element", el.DisplayName()))
			continue
		}
		if g.gotoIn[el] > 0 && g.normalIn[el] == 0 {
			result.AddWarning(path, schema.ErrCodeValidation,
				fmt.Sprintf("element %q is only reached through goto connectors", el.DisplayName()))
		}
	}

	for _, cycle := range g.cyclesOutsideLoops() {
		names := make([]string, len(cycle))
		for i, el := range cycle {
			names[i] = el.DisplayName()
		}
		sort.Strings(names)
		result.AddWarning(fmt.Sprintf("%s[%s]", cycle[0].Kind, cycle[0].DisplayName()), schema.ErrCodeCycle,
			fmt.Sprintf("cycle without a loop element: %s", strings.Join(names, ", ")))
	}

	return result
}

// cyclesOutsideLoops returns the strongly connected components that form a
// cycle once loop elements are removed from the graph. Loop back-edges are
// legitimate and never reported.
func (g *flowGraph) cyclesOutsideLoops() [][]*schema.Element {
	var (
		index   = make(map[*schema.Element]int)
		low     = make(map[*schema.Element]int)
		onStack = make(map[*schema.Element]bool)
		stack   []*schema.Element
		next    int
		cycles  [][]*schema.Element
	)

	skip := func(el *schema.Element) bool { return el.Kind == schema.KindLoop }

	var connect func(v *schema.Element)
	connect = func(v *schema.Element) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		selfLoop := false
		for _, w := range g.edges[v] {
			if skip(w) {
				continue
			}
			if w == v {
				selfLoop = true
			}
			if _, seen := index[w]; !seen {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var component []*schema.Element
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || selfLoop {
			cycles = append(cycles, component)
		}
	}

	for _, v := range g.nodes {
		if skip(v) {
			continue
		}
		if _, seen := index[v]; !seen {
			connect(v)
		}
	}
	return cycles
}
