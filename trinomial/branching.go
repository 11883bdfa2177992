package trinomial

// NodeKind selects which branching formula applies to a node.
type NodeKind int

const (
	// Central nodes branch to j+1, j and j-1.
	Central NodeKind = iota
	// BottomEdge nodes sit at -jMax of a saturated level and branch to j+2, j+1 and j.
	BottomEdge
	// TopEdge nodes sit at +jMax of a saturated level and branch to j, j-1 and j-2.
	TopEdge
)

func (k NodeKind) String() string {
	switch k {
	case BottomEdge:
		return "bottom-edge"
	case TopEdge:
		return "top-edge"
	}
	return "central"
}

// Branching holds the three transition probabilities of a node.
type Branching struct {
	Down   float64
	Middle float64
	Up     float64
}

// Sum is Down + Middle + Up.
func (b Branching) Sum() float64 {
	return b.Down + b.Middle + b.Up
}

// KindOf returns the node kind at displacement j for a lattice of half-width
// jMax. Only a saturated level reaches |j| = jMax.
func KindOf(j, jMax int) NodeKind {
	switch {
	case j == -jMax:
		return BottomEdge
	case j == jMax:
		return TopEdge
	}
	return Central
}

// BranchProbabilities evaluates the Hull-White branching formulas for
// displacement j, where m is the expected one-step OU return e^(-λΔt) - 1.
func BranchProbabilities(j int, kind NodeKind, m float64) Branching {
	jm := float64(j) * m
	jm2 := jm * jm

	switch kind {
	case BottomEdge:
		return Branching{
			Up:     1.0/6.0 + (jm2-jm)/2,
			Middle: -1.0/3.0 - jm2 + 2*jm,
			Down:   7.0/6.0 + (jm2-3*jm)/2,
		}
	case TopEdge:
		return Branching{
			Up:     7.0/6.0 + (jm2+3*jm)/2,
			Middle: -1.0/3.0 - jm2 - 2*jm,
			Down:   1.0/6.0 + (jm2+jm)/2,
		}
	}
	return Branching{
		Up:     1.0/6.0 + (jm2+jm)/2,
		Middle: 2.0/3.0 - jm2,
		Down:   1.0/6.0 + (jm2-jm)/2,
	}
}

// branchCache memoises BranchProbabilities by displacement. The formulas
// depend on j alone once jMax and m are fixed.
type branchCache struct {
	jMax    int
	m       float64
	entries []Branching
	filled  []bool
}

func newBranchCache(jMax, maxHalfWidth int, m float64) *branchCache {
	n := 2*maxHalfWidth + 1
	return &branchCache{
		jMax:    jMax,
		m:       m,
		entries: make([]Branching, n),
		filled:  make([]bool, n),
	}
}

func (c *branchCache) get(j int) Branching {
	idx := j + (len(c.entries)-1)/2
	if !c.filled[idx] {
		c.entries[idx] = BranchProbabilities(j, KindOf(j, c.jMax), c.m)
		c.filled[idx] = true
	}
	return c.entries[idx]
}
