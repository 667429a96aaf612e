package buildhost

import (
	"fmt"
	"strings"
)

// GraphNode is a task in the execution graph.
type GraphNode struct {
	// Task is the task this node executes.
	Task *Task

	// Level is the execution level; nodes on one level may run in parallel.
	Level int

	// Dependencies are the task names this node waits for.
	Dependencies []string

	// Dependents are the task names waiting for this node.
	Dependents []string
}

// TaskGraph is a validated directed acyclic graph of tasks.
type TaskGraph struct {
	nodes  map[string]*GraphNode
	order  []string
	levels [][]string
}

// BuildTaskGraph orders tasks by their dependencies. It rejects references to
// unknown tasks and dependency cycles. Within a level, tasks keep the order in
// which they were supplied.
func BuildTaskGraph(tasks []*Task) (*TaskGraph, error) {
	g := &TaskGraph{
		nodes: make(map[string]*GraphNode, len(tasks)),
		order: make([]string, 0, len(tasks)),
	}

	for _, task := range tasks {
		if task == nil || task.Name == "" {
			return nil, fmt.Errorf("task graph: task has empty name")
		}
		if _, exists := g.nodes[task.Name]; exists {
			return nil, fmt.Errorf("task graph: duplicate task %s", task.Name)
		}
		g.nodes[task.Name] = &GraphNode{Task: task}
		g.order = append(g.order, task.Name)
	}

	for _, name := range g.order {
		node := g.nodes[name]
		for _, dep := range node.Task.DependsOn {
			target, exists := g.nodes[dep]
			if !exists {
				return nil, fmt.Errorf("task graph: task %s depends on unknown task %s", name, dep)
			}
			node.Dependencies = append(node.Dependencies, dep)
			target.Dependents = append(target.Dependents, name)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, fmt.Errorf("task graph: circular dependency detected: %s", strings.Join(cycle, " -> "))
	}

	g.computeLevels()
	return g, nil
}

// findCycle returns the first dependency cycle found by depth-first search.
func (g *TaskGraph) findCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, dependent := range g.nodes[name].Dependents {
			if !visited[dependent] {
				if cycle := visit(dependent); cycle != nil {
					return cycle
				}
			} else if onStack[dependent] {
				for i, id := range path {
					if id == dependent {
						cycle := append([]string{}, path[i:]...)
						return append(cycle, dependent)
					}
				}
			}
		}

		onStack[name] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range g.order {
		if !visited[name] {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// computeLevels assigns levels with Kahn's algorithm.
func (g *TaskGraph) computeLevels() {
	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		inDegree[name] = len(g.nodes[name].Dependencies)
	}

	remaining := len(g.order)
	for level := 0; remaining > 0; level++ {
		var current []string
		for _, name := range g.order {
			if inDegree[name] == 0 {
				current = append(current, name)
			}
		}
		for _, name := range current {
			inDegree[name] = -1
			g.nodes[name].Level = level
			for _, dependent := range g.nodes[name].Dependents {
				inDegree[dependent]--
			}
		}
		g.levels = append(g.levels, current)
		remaining -= len(current)
	}
}

// Node returns the graph node for the named task.
func (g *TaskGraph) Node(name string) (*GraphNode, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Levels returns task names grouped by execution level.
func (g *TaskGraph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// Depth returns the number of levels.
func (g *TaskGraph) Depth() int {
	return len(g.levels)
}

// Len returns the number of tasks in the graph.
func (g *TaskGraph) Len() int {
	return len(g.order)
}

// ToDOT renders the graph in Graphviz DOT format.
func (g *TaskGraph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph TaskGraph {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, names := range g.levels {
		fmt.Fprintf(&sb, "  subgraph cluster_level_%d {\n", level)
		fmt.Fprintf(&sb, "    label=\"Level %d\";\n", level)
		sb.WriteString("    style=dashed;\n")
		for _, name := range names {
			task := g.nodes[name].Task
			label := name
			if task.Group != "" {
				label = fmt.Sprintf("%s\\n%s", name, task.Group)
			}
			fmt.Fprintf(&sb, "    %q [label=\"%s\"];\n", name, label)
		}
		sb.WriteString("  }\n\n")
	}

	for _, name := range g.order {
		for _, dep := range g.nodes[name].Dependencies {
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep, name)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
