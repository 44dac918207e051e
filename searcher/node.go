package searcher

// node holds the statistics for one state during a single move's search. The
// engine keys nodes by state fingerprint, so transpositions share statistics.
type node struct {
	legal  []bool
	priors []float64 // masked and renormalized, zero mass on illegal actions
	visits int       // N(s): total visits across all edges
	edgeN  []int     // N(s,a)
	edgeW  []float64 // W(s,a): accumulated value from this state's perspective
	forced []int     // visits granted by the forced-playout rule (root only)
}

func newNode(legal []bool, priors []float64) *node {
	n := len(priors)
	return &node{
		legal:  legal,
		priors: priors,
		edgeN:  make([]int, n),
		edgeW:  make([]float64, n),
		forced: make([]int, n),
	}
}

// q returns the mean backed-up value of edge a, zero while unvisited.
func (n *node) q(a int) float64 {
	if n.edgeN[a] == 0 {
		return 0
	}
	return n.edgeW[a] / float64(n.edgeN[a])
}
