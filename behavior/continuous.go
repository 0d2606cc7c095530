package behavior

import (
	"go.uber.org/zap"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/eval"
)

// ContinuousBehavior transfers tokens at a rate recomputed every step
// and integrated with a fixed-step 4th-order Runge-Kutta scheme. The
// intended transfer is clamped against the tokens actually available on
// every input arc before it is applied, so a configured rate larger
// than the marking can never drive a place negative. Both values are
// kept on the result for diagnostics.
type ContinuousBehavior struct {
	*base
	rate       *eval.Program
	rateBroken bool
	lastResult *Result
}

func newContinuous(bb *base) *ContinuousBehavior {
	b := &ContinuousBehavior{base: bb}
	f := bb.t.RateFunc
	if f != nil && f.Expr != "" {
		prog, err := eval.Compile(f.Expr)
		if err != nil {
			bb.logger.Warn("rate expression does not compile, rate is zero",
				zap.String("transition", bb.t.Name), zap.Error(err))
			b.rateBroken = true
		} else {
			b.rate = prog
		}
	}
	return b
}

func (b *ContinuousBehavior) Observe(float64) {}

func (b *ContinuousBehavior) CanFire(now float64) (bool, string) {
	return b.enabled(now, true)
}

// rateAt evaluates the rate function against a marking and time,
// applying the configured bounds. Evaluation failures are logged and
// read as rate zero.
func (b *ContinuousBehavior) rateAt(marking map[string]float64, tm float64) float64 {
	f := b.t.RateFunc
	if f == nil {
		return 0
	}
	if f.Expr == "" {
		return f.Clamp(f.Constant)
	}
	if b.rateBroken {
		return 0
	}
	r, err := b.rate.Number(marking, tm)
	if err != nil {
		b.logger.Warn("rate evaluation failed, rate is zero",
			zap.String("transition", b.t.Name), zap.Error(err))
		return 0
	}
	return f.Clamp(r)
}

// shifted returns the marking after a provisional transfer of x firing
// units, for evaluating the rate at an intermediate integration stage.
func (b *ContinuousBehavior) shifted(m map[string]float64, in, out []*hfpn.Arc, x float64) map[string]float64 {
	s := make(map[string]float64, len(m))
	for k, v := range m {
		s[k] = v
	}
	if !b.t.IsSource {
		for _, a := range in {
			if a.Kind != hfpn.NormalArc {
				continue
			}
			v := s[a.Place.Name] - a.Weight*x
			if v < 0 {
				v = 0
			}
			s[a.Place.Name] = v
		}
	}
	if !b.t.IsSink {
		for _, a := range out {
			s[a.Place.Name] += a.Weight * x
		}
	}
	return s
}

// Fire integrates the flow over the step [now-dt, now].
func (b *ContinuousBehavior) Fire(now, dt float64) (*Result, error) {
	res := &Result{
		Transition: b.t,
		Time:       now,
		Consumed:   make(map[*hfpn.Place]float64),
		Produced:   make(map[*hfpn.Place]float64),
	}
	b.lastResult = res
	if ok, _ := b.enabled(now, true); !ok {
		return res, nil
	}

	in := b.net.Inputs(b.t)
	out := b.net.Outputs(b.t)
	m0 := b.net.Marking()
	t0 := now - dt

	k1 := b.rateAt(m0, t0)
	k2 := b.rateAt(b.shifted(m0, in, out, k1*dt/2), t0+dt/2)
	k3 := b.rateAt(b.shifted(m0, in, out, k2*dt/2), t0+dt/2)
	k4 := b.rateAt(b.shifted(m0, in, out, k3*dt), t0+dt)
	intended := dt / 6 * (k1 + 2*k2 + 2*k3 + k4)
	if intended <= 0 {
		return res, nil
	}

	// Uniform clamp: the applied transfer is the minimum of the intended
	// transfer and available/weight across all consuming arcs.
	actual := intended
	if !b.t.IsSource {
		for _, a := range in {
			if a.Kind != hfpn.NormalArc || a.Weight <= 0 {
				continue
			}
			if limit := a.Place.Tokens / a.Weight; limit < actual {
				actual = limit
			}
		}
	}
	if actual < 0 {
		actual = 0
	}
	if actual < intended {
		b.logger.Debug("continuous transfer clamped",
			zap.String("transition", b.t.Name),
			zap.Float64("intended", intended),
			zap.Float64("actual", actual))
	}

	if !b.t.IsSource {
		for _, a := range in {
			if a.Kind != hfpn.NormalArc {
				continue
			}
			take := a.Weight * actual
			a.Place.Tokens -= take
			if a.Place.Tokens < 0 {
				a.Place.Tokens = 0
			}
			res.Consumed[a.Place] += take
		}
	}
	if !b.t.IsSink {
		for _, a := range out {
			give := a.Weight * actual
			a.Place.Tokens += give
			res.Produced[a.Place] += give
		}
	}
	res.Fired = true
	res.Intended = intended
	res.Actual = actual
	return res, nil
}

// Last returns the most recent integration result, including the
// intended-versus-actual transfer, for diagnostics.
func (b *ContinuousBehavior) Last() *Result {
	return b.lastResult
}

func (b *ContinuousBehavior) Reset() {
	b.lastResult = nil
}
