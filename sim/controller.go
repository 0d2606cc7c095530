// Package sim drives a hybrid net: it owns the clock, the behavior
// cache, and the phase ordering of each logical step. One controller
// maps to exactly one net and one lifecycle; all mutable simulation
// state lives here and nowhere else.
package sim

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/analysis"
	"github.com/hfpn-dev/hfpn/behavior"
)

var (
	// ErrBadStep rejects a negative, zero, or non-finite step size. The
	// controller's state is untouched.
	ErrBadStep = errors.New("step size must be positive and finite")
	// ErrStopped is returned by Step after Stop; only Reset recovers.
	ErrStopped = errors.New("controller is stopped")
	// ErrPaused is returned by Step while paused; call Start to resume.
	ErrPaused = errors.New("controller is paused")
	// ErrUnknownTransition is returned by Invalidate for an id the net
	// does not contain.
	ErrUnknownTransition = errors.New("unknown transition")
	// ErrFixpointDiverged is returned when the immediate phase does not
	// quiesce, which means the model fires immediates without bound
	// (typically an unguarded immediate source).
	ErrFixpointDiverged = errors.New("immediate phase did not reach a fixpoint")
)

// RunState is the controller lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Running
	Paused
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// State is the snapshot returned by Controller.State.
type State struct {
	Time         float64
	Running      bool
	RunState     RunState
	EnabledCount int
	Steps        int
	Stats        Stats
}

// Stats counts per-run diagnostics.
type Stats struct {
	ImmediateFirings   int
	ForcedTimedFirings int
	ClampedFlows       int
}

const (
	defaultHistoryLimit = 4096
	defaultMaxRounds    = 100000
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSeed fixes the stochastic sampling source, making the whole run
// reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Controller) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithHistoryLimit bounds the retained firing history.
func WithHistoryLimit(n int) Option {
	return func(c *Controller) { c.historyLimit = n }
}

// WithMaxImmediateRounds bounds the immediate-phase fixpoint.
func WithMaxImmediateRounds(n int) Option {
	return func(c *Controller) { c.maxRounds = n }
}

// Controller executes the step loop over one net.
type Controller struct {
	net      *hfpn.Net
	factory  *behavior.Factory
	analyzer *analysis.Analyzer
	policy   Policy
	logger   *zap.Logger
	rng      *rand.Rand

	clock float64
	run   RunState
	steps int
	stats Stats

	history      []Firing
	historyLimit int
	maxRounds    int
}

// New validates the net's structure and builds a controller over it.
// Structural violations are rejected here, before simulation begins,
// never mid-step.
func New(net *hfpn.Net, opts ...Option) (*Controller, error) {
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("invalid net: %w", err)
	}
	c := &Controller{
		net:          net,
		logger:       zap.NewNop(),
		rng:          rand.New(rand.NewSource(1)),
		historyLimit: defaultHistoryLimit,
		maxRounds:    defaultMaxRounds,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.factory = behavior.NewFactory(net, c.rng, c.logger)
	c.analyzer = analysis.New(net)
	return c, nil
}

// Net returns the net the controller executes.
func (c *Controller) Net() *hfpn.Net { return c.net }

// Time returns the current simulated time.
func (c *Controller) Time() float64 { return c.clock }

// Start moves an idle or paused controller to running.
func (c *Controller) Start() error {
	switch c.run {
	case Stopped:
		return ErrStopped
	default:
		c.run = Running
		return nil
	}
}

// Pause suspends stepping between steps; Start resumes.
func (c *Controller) Pause() {
	if c.run == Running {
		c.run = Paused
	}
}

// Stop ends the run; only Reset recovers.
func (c *Controller) Stop() {
	c.run = Stopped
}

// Step advances the simulation by one logical step of size dt: advance
// time, run the immediate fixpoint, fire eligible timed and stochastic
// transitions, integrate continuous flows. It returns the firings the
// step produced.
//
// Time advances unconditionally, even when only immediates fire, so a
// timed transition enabled during this step becomes eligible from the
// next one.
func (c *Controller) Step(dt float64) ([]Firing, error) {
	if dt <= 0 || math.IsInf(dt, 0) || math.IsNaN(dt) {
		return nil, fmt.Errorf("%w: got %g", ErrBadStep, dt)
	}
	switch c.run {
	case Stopped:
		return nil, ErrStopped
	case Paused:
		return nil, ErrPaused
	case Idle:
		c.run = Running
	}

	// Enablement bookkeeping for timed and stochastic transitions is
	// stamped at the step boundary, before time moves.
	c.observe(c.clock)

	c.clock += dt
	now := c.clock

	var events []Firing
	if err := c.immediatePhase(now, &events); err != nil {
		c.record(events)
		return events, err
	}
	c.timedStochasticPhase(now, &events)
	c.continuousPhase(now, dt, &events)

	c.steps++
	c.record(events)
	return events, nil
}

func (c *Controller) observe(now float64) {
	for _, t := range c.net.Transitions {
		if t.Type != hfpn.Timed && t.Type != hfpn.Stochastic {
			continue
		}
		c.factory.Get(t).Observe(now)
	}
}

// immediatePhase runs the exhaustive zero-time fixpoint: fire the
// highest-priority enabled immediate and re-derive enablement until
// none remains. A single pass is not a fixpoint; a drained place can
// re-enable a transition fired rounds earlier.
//
// Within one round, candidates whose localities are disjoint from
// everything already fired in the round are fired without re-deriving
// global enablement; independence makes that observationally identical
// to fully sequential re-checking.
func (c *Controller) immediatePhase(now float64, events *[]Firing) error {
	for round := 0; ; round++ {
		if round >= c.maxRounds {
			return fmt.Errorf("%w within %d rounds", ErrFixpointDiverged, c.maxRounds)
		}
		var candidates []behavior.Behavior
		for _, t := range c.net.Transitions {
			if t.Type != hfpn.Immediate {
				continue
			}
			b := c.factory.Get(t)
			if ok, _ := b.CanFire(now); ok {
				candidates = append(candidates, b)
			}
		}
		if len(candidates) == 0 {
			return nil
		}
		c.policy.Order(candidates)

		touched := make(map[*hfpn.Place]struct{})
		fired := 0
		for i, b := range candidates {
			t := b.Transition()
			if i > 0 && c.analyzer.Overlaps(t, touched) {
				// Shares places with something fired this round; its
				// enablement is re-derived next round. Its locality still
				// blocks the rest of the round, or a lower-priority
				// candidate could steal the tokens it is waiting on.
				c.analyzer.AddLocality(t, touched)
				continue
			}
			res, err := b.Fire(now, 0)
			if err != nil {
				c.logger.Warn("immediate firing failed",
					zap.String("transition", t.Name), zap.Error(err))
				c.analyzer.AddLocality(t, touched)
				continue
			}
			c.analyzer.AddLocality(t, touched)
			if res.Fired {
				fired++
				c.stats.ImmediateFirings++
				*events = append(*events, firingOf(res))
			}
		}
		if fired == 0 {
			return nil
		}
	}
}

// timedStochasticPhase fires every timed or stochastic transition that
// is eligible at the current time, in policy order. A timed transition
// whose window the step crossed entirely is force-fired at the window
// boundary rather than silently dropped.
func (c *Controller) timedStochasticPhase(now float64, events *[]Firing) {
	var candidates []behavior.Behavior
	for _, t := range c.net.Transitions {
		if t.Type != hfpn.Timed && t.Type != hfpn.Stochastic {
			continue
		}
		b := c.factory.Get(t)
		if ok, _ := b.CanFire(now); ok {
			candidates = append(candidates, b)
			continue
		}
		if tb, ok := b.(*behavior.TimedBehavior); ok && tb.WindowCrossed(now) {
			candidates = append(candidates, b)
		}
	}
	c.policy.Order(candidates)

	for _, b := range candidates {
		// Earlier firings in this phase may have consumed the tokens
		// this candidate needed; Fire re-checks and no-ops in that case.
		res, err := b.Fire(now, 0)
		if err != nil {
			c.logger.Warn("firing failed",
				zap.String("transition", b.Transition().Name), zap.Error(err))
			continue
		}
		if !res.Fired {
			continue
		}
		if res.Forced {
			c.stats.ForcedTimedFirings++
			c.logger.Warn("timed window crossed by step, firing forced at boundary",
				zap.String("transition", b.Transition().Name),
				zap.Float64("boundary", res.Time),
				zap.Float64("now", now))
		}
		*events = append(*events, firingOf(res))
	}
}

// continuousPhase integrates every continuous transition over the step
// in discovery order. Clamping resolves contention between continuous
// flows sharing a place.
func (c *Controller) continuousPhase(now, dt float64, events *[]Firing) {
	for _, t := range c.net.Transitions {
		if t.Type != hfpn.Continuous {
			continue
		}
		b := c.factory.Get(t)
		res, err := b.Fire(now, dt)
		if err != nil {
			c.logger.Warn("continuous integration failed",
				zap.String("transition", t.Name), zap.Error(err))
			continue
		}
		if !res.Fired {
			continue
		}
		if res.Actual < res.Intended {
			c.stats.ClampedFlows++
		}
		*events = append(*events, firingOf(res))
	}
}

func (c *Controller) record(events []Firing) {
	if c.historyLimit <= 0 {
		return
	}
	c.history = append(c.history, events...)
	if over := len(c.history) - c.historyLimit; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
}

// History returns the retained firing records, oldest first.
func (c *Controller) History() []Firing {
	out := make([]Firing, len(c.history))
	copy(out, c.history)
	return out
}

// EnabledCount returns how many transitions report CanFire at the
// current time.
func (c *Controller) EnabledCount() int {
	count := 0
	for _, t := range c.net.Transitions {
		if ok, _ := c.factory.Get(t).CanFire(c.clock); ok {
			count++
		}
	}
	return count
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	return State{
		Time:         c.clock,
		Running:      c.run == Running,
		RunState:     c.run,
		EnabledCount: c.EnabledCount(),
		Steps:        c.steps,
		Stats:        c.stats,
	}
}

// Reset zeroes time, restores every place to its initial marking, and
// clears the entire behavior cache. Cached enablement timestamps and
// scheduled fire times are stale after a reset or model reload; keeping
// them silently stops transitions from ever firing again.
func (c *Controller) Reset() {
	c.clock = 0
	c.steps = 0
	c.stats = Stats{}
	c.history = nil
	c.net.ResetMarking()
	c.factory.Reset()
	// Structural edits to the net require a reset; the locality analysis
	// is rebuilt here rather than re-derived mid-step.
	c.analyzer = analysis.New(c.net)
	c.run = Idle
}

// Invalidate clears the cached behavior of one transition by id. Call
// it whenever that transition's parameters are edited outside a full
// reset. The id is resolved once, between steps, against the net's
// transition list.
func (c *Controller) Invalidate(id string) error {
	t := c.net.TransitionByID(id)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTransition, id)
	}
	c.factory.Invalidate(t)
	return nil
}

// InvalidateTransition clears the cached behavior of the given
// transition handle.
func (c *Controller) InvalidateTransition(t *hfpn.Transition) {
	c.factory.Invalidate(t)
}
