package behavior

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/eval"
)

// base carries the enablement and token-mutation mechanics every
// discipline shares: guard evaluation, the per-arc effective threshold
// check, and consumption/production. Compiled guard and weight programs
// live here so they are built once per behavior instance.
type base struct {
	net    *hfpn.Net
	t      *hfpn.Transition
	logger *zap.Logger

	guard       *eval.Program
	guardBroken bool
	weights     map[*hfpn.Arc]*eval.Program
}

func newBase(net *hfpn.Net, t *hfpn.Transition, logger *zap.Logger) *base {
	b := &base{
		net:     net,
		t:       t,
		logger:  logger,
		weights: make(map[*hfpn.Arc]*eval.Program),
	}
	if t.Guard != nil && t.Guard.Expr != "" {
		prog, err := eval.Compile(t.Guard.Expr)
		if err != nil {
			// An uncompilable guard fails permanently rather than
			// aborting the run.
			b.logger.Warn("guard does not compile, transition disabled",
				zap.String("transition", t.Name), zap.Error(err))
			b.guardBroken = true
		} else {
			b.guard = prog
		}
	}
	for _, arcs := range [][]*hfpn.Arc{net.Inputs(t), net.Outputs(t)} {
		for _, a := range arcs {
			if a.WeightExpr == "" {
				continue
			}
			prog, err := eval.Compile(a.WeightExpr)
			if err != nil {
				b.logger.Warn("arc weight does not compile, arc unsatisfiable",
					zap.String("arc", a.String()), zap.Error(err))
				continue
			}
			b.weights[a] = prog
		}
	}
	return b
}

func (b *base) Transition() *hfpn.Transition { return b.t }

// guardPass evaluates the guard at the given time. Evaluation failures
// are logged and count as a failed guard.
func (b *base) guardPass(now float64) bool {
	g := b.t.Guard
	if g == nil {
		return true
	}
	switch {
	case g.Bool != nil:
		return *g.Bool
	case g.Value != nil:
		return *g.Value > 0
	case g.Expr != "":
		if b.guardBroken {
			return false
		}
		ok, err := b.guard.Bool(b.net.Marking(), now)
		if err != nil {
			b.logger.Warn("guard evaluation failed",
				zap.String("transition", b.t.Name), zap.Error(err))
			return false
		}
		return ok
	}
	return true
}

// arcWeight resolves the arc's weight at the given time. An expression
// that fails to evaluate makes the arc unsatisfiable for this check, so
// the error is surfaced rather than swallowed into a zero.
func (b *base) arcWeight(a *hfpn.Arc, now float64) (float64, error) {
	if a.WeightExpr == "" {
		return a.Weight, nil
	}
	prog, ok := b.weights[a]
	if !ok {
		return 0, fmt.Errorf("arc %s: weight expression did not compile", a)
	}
	w, err := prog.Number(b.net.Marking(), now)
	if err != nil {
		return 0, err
	}
	if w < 0 {
		return 0, nil
	}
	return w, nil
}

// structEnabled checks every input arc against the source place. The
// effective threshold is the arc threshold if present, otherwise the
// weight. Continuous transitions relax the normal-arc check to "any
// tokens at all"; their transfer is clamped during integration instead.
func (b *base) structEnabled(now float64, continuous bool) (bool, string) {
	if b.t.IsSource {
		return true, ""
	}
	for _, a := range b.net.Inputs(b.t) {
		if a.Place == nil {
			return false, fmt.Sprintf("arc %s has no place", a)
		}
		w, err := b.arcWeight(a, now)
		if err != nil {
			b.logger.Warn("arc weight evaluation failed",
				zap.String("arc", a.String()), zap.Error(err))
			return false, fmt.Sprintf("arc %s weight unavailable", a)
		}
		eff := a.EffectiveThreshold(w)
		switch a.Kind {
		case hfpn.InhibitorArc:
			if a.Place.Tokens >= eff {
				return false, fmt.Sprintf("inhibited by %s (%g >= %g)", a.Place.Name, a.Place.Tokens, eff)
			}
		case hfpn.ResetArc:
			// no enablement constraint
		default:
			if continuous {
				if a.Place.Tokens <= 0 {
					return false, fmt.Sprintf("%s is empty", a.Place.Name)
				}
			} else if a.Place.Tokens < eff {
				return false, fmt.Sprintf("%s holds %g, needs %g", a.Place.Name, a.Place.Tokens, eff)
			}
		}
	}
	return true, ""
}

// enabled runs the full enablement check: guard first (a failed guard
// short-circuits), then structure.
func (b *base) enabled(now float64, continuous bool) (bool, string) {
	if !b.guardPass(now) {
		return false, "guard failed"
	}
	return b.structEnabled(now, continuous)
}

// fireDiscrete performs one discrete firing stamped at ft: consume per
// input arc, produce per output arc. Source transitions skip
// consumption, sinks skip production. Enablement is re-checked so a
// firing selected earlier in a phase cannot drive a place negative
// after a competitor consumed the same tokens.
func (b *base) fireDiscrete(ft float64) (*Result, error) {
	res := &Result{
		Transition: b.t,
		Time:       ft,
		Consumed:   make(map[*hfpn.Place]float64),
		Produced:   make(map[*hfpn.Place]float64),
	}
	if ok, _ := b.enabled(ft, false); !ok {
		return res, nil
	}
	if !b.t.IsSource {
		for _, a := range b.net.Inputs(b.t) {
			w, err := b.arcWeight(a, ft)
			if err != nil {
				return res, err
			}
			var take float64
			switch a.Kind {
			case hfpn.TestArc:
				continue
			case hfpn.ResetArc:
				take = a.Place.Tokens
			case hfpn.InhibitorArc:
				// The threshold gated enablement; the weight governs the
				// amount taken, bounded by what the place holds.
				if w < a.Place.Tokens {
					take = w
				} else {
					take = a.Place.Tokens
				}
			default:
				take = w
			}
			a.Place.Tokens -= take
			if a.Place.Tokens < 0 {
				a.Place.Tokens = 0
			}
			res.Consumed[a.Place] += take
		}
	}
	if !b.t.IsSink {
		for _, a := range b.net.Outputs(b.t) {
			w, err := b.arcWeight(a, ft)
			if err != nil {
				return res, err
			}
			a.Place.Tokens += w
			res.Produced[a.Place] += w
		}
	}
	res.Fired = true
	return res, nil
}
