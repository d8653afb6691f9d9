// Package sensitivity holds first-order sensitivities of a value to curve
// node parameters.
//
// PointSensitivities is an immutable linear map from node perturbations to
// value perturbations. Operations return new values and never modify their
// receivers, so sensitivities can be shared freely between goroutines.
package sensitivity

import (
	"fmt"
	"sort"
	"strings"
)

// NodeID identifies one parameter of one curve.
type NodeID struct {
	Curve string
	Index int
}

// String renders the node as curve[index]
func (n NodeID) String() string {
	return fmt.Sprintf("%s[%d]", n.Curve, n.Index)
}

// PointSensitivities maps curve nodes to the derivative of a value with
// respect to that node. The zero value is the empty sensitivity.
type PointSensitivities struct {
	values map[NodeID]float64
}

// Term is one scaled operand of a linear combination.
type Term struct {
	Sensitivities PointSensitivities
	Factor        float64
}

// T builds a Term.
func T(s PointSensitivities, factor float64) Term {
	return Term{Sensitivities: s, Factor: factor}
}

// None returns the empty sensitivity.
func None() PointSensitivities {
	return PointSensitivities{}
}

// Of returns a sensitivity to a single node.
func Of(node NodeID, value float64) PointSensitivities {
	return PointSensitivities{values: map[NodeID]float64{node: value}}
}

// FromMap copies a node map into a sensitivity.
func FromMap(values map[NodeID]float64) PointSensitivities {
	if len(values) == 0 {
		return None()
	}
	out := make(map[NodeID]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return PointSensitivities{values: out}
}

// Combine returns the linear combination sum(factor_i * s_i), merging nodes by key.
func Combine(terms ...Term) PointSensitivities {
	size := 0
	for _, t := range terms {
		size += len(t.Sensitivities.values)
	}
	if size == 0 {
		return None()
	}
	out := make(map[NodeID]float64, size)
	for _, t := range terms {
		if t.Factor == 0 {
			continue
		}
		for k, v := range t.Sensitivities.values {
			out[k] += t.Factor * v
		}
	}
	return PointSensitivities{values: out}
}

// CombinedWith returns s + other.
func (s PointSensitivities) CombinedWith(other PointSensitivities) PointSensitivities {
	if len(other.values) == 0 {
		return s
	}
	if len(s.values) == 0 {
		return other
	}
	return Combine(T(s, 1), T(other, 1))
}

// MultipliedBy returns factor * s.
func (s PointSensitivities) MultipliedBy(factor float64) PointSensitivities {
	if len(s.values) == 0 {
		return s
	}
	out := make(map[NodeID]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v * factor
	}
	return PointSensitivities{values: out}
}

// Get returns the sensitivity to node, zero when absent.
func (s PointSensitivities) Get(node NodeID) float64 {
	return s.values[node]
}

// Len returns the number of nodes carried.
func (s PointSensitivities) Len() int {
	return len(s.values)
}

// IsEmpty reports whether no node is carried.
func (s PointSensitivities) IsEmpty() bool {
	return len(s.values) == 0
}

// Nodes returns the carried nodes ordered by curve name then index.
func (s PointSensitivities) Nodes() []NodeID {
	nodes := make([]NodeID, 0, len(s.values))
	for k := range s.values {
		nodes = append(nodes, k)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Curve != nodes[j].Curve {
			return nodes[i].Curve < nodes[j].Curve
		}
		return nodes[i].Index < nodes[j].Index
	})
	return nodes
}

// ForCurve returns the per-index sensitivities of one curve.
func (s PointSensitivities) ForCurve(curve string) map[int]float64 {
	out := make(map[int]float64)
	for k, v := range s.values {
		if k.Curve == curve {
			out[k.Index] = v
		}
	}
	return out
}

// Total returns the sum over all nodes, i.e. the sensitivity to a parallel
// shift of every node by one unit.
func (s PointSensitivities) Total() float64 {
	total := 0.0
	for _, v := range s.values {
		total += v
	}
	return total
}

// Map returns a copy of the node map.
func (s PointSensitivities) Map() map[NodeID]float64 {
	out := make(map[NodeID]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// String lists the nodes in order
func (s PointSensitivities) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, n := range s.Nodes() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", n, s.values[n])
	}
	b.WriteString("}")
	return b.String()
}
