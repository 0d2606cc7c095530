// Package behavior implements the four firing disciplines behind a
// single interface, plus the per-transition factory that caches one
// behavior instance per transition identity.
package behavior

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/hfpn-dev/hfpn"
)

// Result records the effect of one firing attempt.
type Result struct {
	Transition *hfpn.Transition
	// Fired is false when the attempt was a no-op (enablement lost
	// between selection and firing, or a continuous flow with zero
	// intended transfer).
	Fired bool
	// Time is the simulated time stamped on the firing. For a forced
	// timed firing this is the window boundary, not the current clock.
	Time     float64
	Consumed map[*hfpn.Place]float64
	Produced map[*hfpn.Place]float64
	// Intended and Actual record a continuous transfer before and after
	// clamping against available tokens.
	Intended float64
	Actual   float64
	// Forced marks a timed firing that was pushed through at the window
	// boundary because the step size crossed the window.
	Forced bool
}

// Behavior is the runtime counterpart of one transition. Instances hold
// only transient state (enablement timestamps, scheduled fire times) and
// are discarded whenever the transition's parameters change.
type Behavior interface {
	Transition() *hfpn.Transition
	// Observe updates enablement bookkeeping. The controller calls it at
	// each step boundary before advancing time, so a transition enabled
	// during one step becomes eligible from the next.
	Observe(now float64)
	// CanFire reports type-specific readiness at the given time. The
	// reason explains a false result.
	CanFire(now float64) (bool, string)
	// Fire applies the token mutation for one firing over the step that
	// just elapsed.
	Fire(now, dt float64) (*Result, error)
	// Reset clears all transient state.
	Reset()
}

// Factory creates and caches one behavior per transition. The cache is
// keyed by transition identity, never by name, and belongs to exactly
// one controller: invalidating an entry here cannot bleed into another
// net's behaviors.
type Factory struct {
	net    *hfpn.Net
	logger *zap.Logger
	rng    *rand.Rand
	cache  map[*hfpn.Transition]Behavior
}

// NewFactory creates a factory over net. The rand source feeds the
// stochastic behaviors; seeding it fixes the whole run.
func NewFactory(net *hfpn.Net, rng *rand.Rand, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		net:    net,
		logger: logger,
		rng:    rng,
		cache:  make(map[*hfpn.Transition]Behavior),
	}
}

// Get returns the cached behavior for t, creating it on first use.
func (f *Factory) Get(t *hfpn.Transition) Behavior {
	if b, ok := f.cache[t]; ok {
		return b
	}
	b := f.build(t)
	f.cache[t] = b
	return b
}

func (f *Factory) build(t *hfpn.Transition) Behavior {
	bb := newBase(f.net, t, f.logger)
	switch t.Type {
	case hfpn.Immediate:
		return &ImmediateBehavior{base: bb}
	case hfpn.Timed:
		return &TimedBehavior{base: bb}
	case hfpn.Stochastic:
		return newStochastic(bb, f.rng)
	case hfpn.Continuous:
		return newContinuous(bb)
	}
	panic(fmt.Sprintf("unknown transition type %d", t.Type))
}

// Invalidate drops the cache entry for t. Call it whenever t's
// parameters are edited outside a full reset; the stale entry's
// timestamps would otherwise keep the transition from ever firing.
func (f *Factory) Invalidate(t *hfpn.Transition) {
	delete(f.cache, t)
}

// Reset drops every cache entry.
func (f *Factory) Reset() {
	f.cache = make(map[*hfpn.Transition]Behavior)
}

// Size returns the number of cached behaviors.
func (f *Factory) Size() int {
	return len(f.cache)
}
