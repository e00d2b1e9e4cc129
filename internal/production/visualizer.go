// Package production provides production integrations: graph export,
// snapshot persistence and run event publishing.
package production

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/comalice/botix"
)

// Namer labels a state in exported output. Empty results fall back to the
// state's default name.
type Namer func(botix.StateID) string

// Visualizer renders a registry's graph as PlantUML or Graphviz DOT.
type Visualizer struct {
	Arrow botix.ArrowStyle
	Name  Namer
}

// Edge is one labelled arc between two states.
type Edge struct {
	From  botix.StateID
	To    botix.StateID
	Label string
}

// collectEdges expands every transition into one edge per source, label
// pair, in pool order with labels sorted.
func collectEdges(b *botix.Botix) ([]Edge, map[Edge]*botix.MovingTransition) {
	var edges []Edge
	owner := make(map[Edge]*botix.MovingTransition)
	for _, t := range b.Transitions() {
		for _, from := range t.FromStates() {
			for _, label := range t.Labels() {
				to, _ := t.ToState(label)
				e := Edge{From: from.ID(), To: to.ID(), Label: label}
				edges = append(edges, e)
				owner[e] = t
			}
		}
	}
	return edges, owner
}

func (v *Visualizer) name(id botix.StateID) string {
	if v.Name != nil {
		if n := v.Name(id); n != "" {
			return n
		}
	}
	return fmt.Sprintf("State%d", id)
}

func edgeLabel(e Edge, t *botix.MovingTransition) string {
	label := fmt.Sprintf("%s (%s)", e.Label, t.Duration())
	if t.Breaker() != nil {
		label += " [breaker]"
	}
	return label
}

// ExportPlantUML generates a PlantUML state diagram. Start states get an
// entry arrow and end states an exit arrow.
func (v *Visualizer) ExportPlantUML(b *botix.Botix) string {
	var buf bytes.Buffer
	buf.WriteString("@startuml\n")
	for _, s := range b.States() {
		fmt.Fprintf(&buf, "state \"%s\" as S%d : %s %s\n", v.name(s.ID()), s.ID(), s.Kind(), s.Pattern())
	}
	for _, id := range b.StartStates() {
		fmt.Fprintf(&buf, "[*] %s S%d\n", v.Arrow, id)
	}
	edges, owner := collectEdges(b)
	for _, e := range edges {
		fmt.Fprintf(&buf, "S%d %s S%d : %s\n", e.From, v.Arrow, e.To, edgeLabel(e, owner[e]))
	}
	for _, id := range b.EndStates() {
		fmt.Fprintf(&buf, "S%d %s [*]\n", id, v.Arrow)
	}
	buf.WriteString("@enduml\n")
	return buf.String()
}

// ExportDOT generates Graphviz DOT source. States in current are filled.
func (v *Visualizer) ExportDOT(b *botix.Botix, current ...botix.StateID) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Botix {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	active := make(map[botix.StateID]bool, len(current))
	for _, id := range current {
		active[id] = true
	}
	starts := make(map[botix.StateID]bool)
	for _, id := range b.StartStates() {
		starts[id] = true
	}

	for _, s := range b.States() {
		attrs := []string{fmt.Sprintf(`label="%s\n%s"`, escape(v.name(s.ID())), s.Pattern())}
		if starts[s.ID()] {
			attrs = append(attrs, "peripheries=2")
		}
		if active[s.ID()] {
			attrs = append(attrs, "style=filled", "fillcolor=lightgreen")
		}
		fmt.Fprintf(&buf, "  \"S%d\" [%s];\n", s.ID(), strings.Join(attrs, " "))
	}

	edges, owner := collectEdges(b)
	for _, e := range edges {
		fmt.Fprintf(&buf, "  \"S%d\" -> \"S%d\" [label=\"%s\"];\n", e.From, e.To, escape(edgeLabel(e, owner[e])))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
