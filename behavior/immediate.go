package behavior

// ImmediateBehavior fires in zero simulated time. It is stateless
// between evaluations; the exhaustive fixpoint lives in the controller,
// which keeps firing enabled immediates until none remains.
type ImmediateBehavior struct {
	*base
}

func (b *ImmediateBehavior) Observe(float64) {}

func (b *ImmediateBehavior) CanFire(now float64) (bool, string) {
	return b.enabled(now, false)
}

func (b *ImmediateBehavior) Fire(now, _ float64) (*Result, error) {
	return b.fireDiscrete(now)
}

func (b *ImmediateBehavior) Reset() {}
