package flat

import (
	"sort"

	"go.fuchsia.dev/fidlcore/reporter"
)

// edges returns every B a declaration A references in a way that forces
// B's layout to be known before A's own layout can be computed (spec
// §4.7). Nullable references, request/client-end/server-end, and
// unbounded vectors are excluded since Type.BreaksRecursion already
// reports them as edge-breaking.
func (l *Library) edges(d *Decl) []*Decl {
	var out []*Decl
	add := func(t *Type) {
		for t != nil {
			if t.BreaksRecursion() {
				return
			}
			switch t.Kind {
			case KindIdentifier:
				if t.Decl != nil {
					out = append(out, t.Decl)
				}
				return
			case KindArray, KindVector:
				t = t.ElementType
				continue
			}
			return
		}
	}
	switch d.Kind {
	case DeclStruct:
		for _, m := range d.Struct.Members {
			add(m.Type)
		}
	case DeclTable:
		for _, m := range d.Table.Members {
			if !m.Reserved {
				add(m.Type)
			}
		}
	case DeclUnion:
		for _, m := range d.Union.Members {
			if !m.Reserved {
				add(m.Type)
			}
		}
	case DeclTypeAlias:
		add(d.TypeAlias.Target)
	case DeclConst:
		if d.Const != nil {
			add(d.Const.Type)
		}
	}
	return out
}

// tarjanState is the per-node bookkeeping Tarjan's algorithm needs; kept
// separate from Decl so a freshly compiled Decl carries no graph
// scratch-state once BuildDeclGraph returns (spec §5: "Declarations are
// immutable after the compile phase completes").
type tarjanState struct {
	index, lowlink int
	onStack        bool
}

// BuildDeclGraph runs Tarjan's SCC algorithm over the declaration
// dependency graph (phase 5, spec §4.9/§4.7). A non-trivial SCC, or any
// self-loop, is reported as a recursive-layout error. l.TopoOrder is set
// to the condensation's topological order, dependencies first. Components
// with no path between them are not sorted by name: they keep the order
// in which the depth-first search, started from each declaration in
// declaration order, finished them.
func (l *Library) BuildDeclGraph(rep *reporter.Reporter) {
	state := map[*Decl]*tarjanState{}
	var stack []*Decl
	index := 0
	var sccs [][]*Decl

	var strongconnect func(v *Decl)
	strongconnect = func(v *Decl) {
		st := &tarjanState{index: index, lowlink: index, onStack: true}
		state[v] = st
		index++
		stack = append(stack, v)

		for _, w := range l.edges(v) {
			ws, visited := state[w]
			if !visited {
				strongconnect(w)
				ws = state[w]
				if ws.lowlink < st.lowlink {
					st.lowlink = ws.lowlink
				}
			} else if ws.onStack {
				if ws.index < st.lowlink {
					st.lowlink = ws.index
				}
			}
		}

		if st.lowlink == st.index {
			var scc []*Decl
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				state[w].onStack = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, d := range l.declOrder {
		if _, visited := state[d]; !visited {
			strongconnect(d)
		}
	}

	for _, scc := range sccs {
		if len(scc) > 1 {
			rep.Errorf(reporter.KindLayout, scc[0].Span, "declaration %q is part of an includes-cycle without a nullable hop: %s", scc[0].Name.DeclarationName(), cycleNames(scc))
			continue
		}
		// Self-loop check: a singleton SCC can still be a self-reference
		// if one of its own non-recursion-breaking edges points back to
		// itself.
		for _, w := range l.edges(scc[0]) {
			if w == scc[0] {
				rep.Errorf(reporter.KindLayout, scc[0].Span, "declaration %q refers to itself without a nullable hop", scc[0].Name.DeclarationName())
			}
		}
	}

	// Tarjan emits an SCC only after every SCC it depends on, so emission
	// order already puts dependencies before their dependents. Members of
	// one SCC are sorted by fully-qualified name for determinism.
	var order []*Decl
	for _, scc := range sccs {
		sort.Slice(scc, func(a, b int) bool {
			return scc[a].Name.FullyQualifiedName() < scc[b].Name.FullyQualifiedName()
		})
		order = append(order, scc...)
	}
	l.TopoOrder = order
}

func cycleNames(scc []*Decl) string {
	s := ""
	for i, d := range scc {
		if i > 0 {
			s += " -> "
		}
		s += d.Name.DeclarationName()
	}
	return s
}
