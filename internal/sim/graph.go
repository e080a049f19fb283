package sim

import "math"

// Edge is an undirected link, stored with A < B.
type Edge struct {
	A, B int
}

func edgeOf(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Graph maintains the edges between particles. Adjacency lives in each
// particle's Neighbors list; the graph keeps the rest length of every edge,
// i.e. the separation at the moment it formed.
type Graph struct {
	formation    float64
	breakDist    float64
	maxNeighbors int
	rest         map[Edge]float64
}

// NewGraph builds a graph with the given hysteresis band. breakDist must be
// strictly greater than formation.
func NewGraph(formation, breakDist float64, maxNeighbors int) *Graph {
	return &Graph{
		formation:    formation,
		breakDist:    breakDist,
		maxNeighbors: maxNeighbors,
		rest:         make(map[Edge]float64),
	}
}

// Update runs one pairwise pass over ps: stretched edges break, close
// unconnected pairs link up, and isolated particles get repaired. A
// particle left alone by a break is relinked to its nearest candidate in
// the same pass. It returns every edge created during the pass.
func (g *Graph) Update(ps []Particle) []Edge {
	var formed []Edge
	for i := 0; i < len(ps); i++ {
		a := &ps[i]
		for j := i + 1; j < len(ps); j++ {
			b := &ps[j]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			connected := a.hasNeighbor(j)

			switch {
			case connected && d > g.breakDist:
				g.disconnect(ps, i, j)
			case !connected && d < g.formation &&
				len(a.Neighbors) < g.maxNeighbors && len(b.Neighbors) < g.maxNeighbors:
				g.connect(ps, i, j, d)
				formed = append(formed, Edge{A: i, B: j})
			}
		}
	}
	return append(formed, g.repair(ps)...)
}

// repair links every isolated particle to its nearest neighbour with spare
// capacity. Ties go to the smallest id.
func (g *Graph) repair(ps []Particle) []Edge {
	var formed []Edge
	for i := range ps {
		if len(ps[i].Neighbors) > 0 {
			continue
		}
		best, bestD := -1, math.Inf(1)
		for j := range ps {
			if j == i || len(ps[j].Neighbors) >= g.maxNeighbors {
				continue
			}
			if d := math.Hypot(ps[i].X-ps[j].X, ps[i].Y-ps[j].Y); d < bestD {
				best, bestD = j, d
			}
		}
		if best < 0 {
			continue
		}
		g.connect(ps, i, best, bestD)
		formed = append(formed, edgeOf(i, best))
	}
	return formed
}

// Detach removes every edge touching id.
func (g *Graph) Detach(ps []Particle, id int) {
	p := &ps[id]
	for _, n := range p.Neighbors {
		if n >= 0 && n < len(ps) {
			ps[n].dropNeighbor(id)
		}
		delete(g.rest, edgeOf(id, n))
	}
	p.Neighbors = nil
}

// Connected reports whether a and b share an edge.
func (g *Graph) Connected(a, b int) bool {
	_, ok := g.rest[edgeOf(a, b)]
	return ok
}

// Rest returns the separation a and b had when their edge formed.
func (g *Graph) Rest(a, b int) (float64, bool) {
	d, ok := g.rest[edgeOf(a, b)]
	return d, ok
}

func (g *Graph) EdgeCount() int { return len(g.rest) }

func (g *Graph) Reset() {
	g.rest = make(map[Edge]float64)
}

func (g *Graph) connect(ps []Particle, a, b int, d float64) {
	ps[a].Neighbors = append(ps[a].Neighbors, b)
	ps[b].Neighbors = append(ps[b].Neighbors, a)
	g.rest[edgeOf(a, b)] = d
}

func (g *Graph) disconnect(ps []Particle, a, b int) {
	ps[a].dropNeighbor(b)
	ps[b].dropNeighbor(a)
	delete(g.rest, edgeOf(a, b))
}
