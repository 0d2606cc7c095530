package sim

import (
	"sort"

	"github.com/hfpn-dev/hfpn/behavior"
)

// Policy orders transitions enabled within the same phase: descending
// priority, exact ties broken by the sampled firing times of stochastic
// candidates and otherwise by discovery order in the net. The order is
// fully deterministic; the only randomness in a run comes from
// stochastic delay sampling, where it belongs.
type Policy struct{}

// Order sorts candidates in place. The input slice must be in
// discovery order, which the stable sort preserves for exact ties.
func (Policy) Order(candidates []behavior.Behavior) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Transition().Priority, candidates[j].Transition().Priority
		if pi != pj {
			return pi > pj
		}
		// A coarse step can carry the clock past several sampled firing
		// times at once; the earlier sample still wins the race.
		si, iOK := scheduled(candidates[i])
		sj, jOK := scheduled(candidates[j])
		if iOK && jOK {
			return si < sj
		}
		return false
	})
}

func scheduled(b behavior.Behavior) (float64, bool) {
	sb, ok := b.(*behavior.StochasticBehavior)
	if !ok {
		return 0, false
	}
	return sb.ScheduledAt()
}
