package behavior

import (
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// StochasticBehavior samples an exponential firing delay when the
// transition becomes enabled and fires once the clock reaches the
// scheduled time. Every enablement episode samples independently, and
// each firing within an episode resamples, so delays never carry over a
// disablement.
type StochasticBehavior struct {
	*base
	delay       distuv.Exponential
	armed       bool
	scheduledAt float64
	burst       int
}

func newStochastic(bb *base, rng *rand.Rand) *StochasticBehavior {
	b := &StochasticBehavior{base: bb}
	if bb.t.Rate <= 0 {
		bb.logger.Warn("stochastic transition has a non-positive rate and will never fire",
			zap.String("transition", bb.t.Name), zap.Float64("rate", bb.t.Rate))
		return b
	}
	b.delay = distuv.Exponential{Rate: bb.t.Rate, Src: rng}
	return b
}

func (b *StochasticBehavior) schedule(now float64) {
	if b.t.Rate <= 0 {
		b.scheduledAt = math.Inf(1)
		return
	}
	b.scheduledAt = now + b.delay.Rand()
}

func (b *StochasticBehavior) Observe(now float64) {
	ok, _ := b.enabled(now, false)
	switch {
	case ok && !b.armed:
		b.armed = true
		b.burst = 0
		b.schedule(now)
	case !ok:
		b.armed = false
	}
}

func (b *StochasticBehavior) CanFire(now float64) (bool, string) {
	if !b.armed {
		return false, "not enabled"
	}
	if b.t.MaxBurst > 0 && b.burst >= b.t.MaxBurst {
		return false, "burst cap reached"
	}
	if now < b.scheduledAt {
		return false, "before scheduled firing time"
	}
	return b.enabled(now, false)
}

// ScheduledAt returns the absolute sampled firing time of the current
// enablement episode.
func (b *StochasticBehavior) ScheduledAt() (float64, bool) {
	if !b.armed {
		return 0, false
	}
	return b.scheduledAt, true
}

func (b *StochasticBehavior) Fire(now, _ float64) (*Result, error) {
	res, err := b.fireDiscrete(now)
	if err != nil || !res.Fired {
		return res, err
	}
	b.burst++
	// Still enabled after firing counts as a fresh arming within the
	// same episode: resample, keep the burst counter.
	if ok, _ := b.enabled(now, false); ok {
		b.schedule(now)
	} else {
		b.armed = false
	}
	return res, nil
}

func (b *StochasticBehavior) Reset() {
	b.armed = false
	b.scheduledAt = 0
	b.burst = 0
}
