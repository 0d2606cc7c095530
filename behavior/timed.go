package behavior

// TimedBehavior fires within [Earliest, Latest] of becoming enabled.
// Enablement is sampled at step boundaries via Observe; losing
// enablement before firing clears the timestamp, so re-enablement
// restarts the window with no carried memory.
type TimedBehavior struct {
	*base
	armed     bool
	enabledAt float64
}

func (b *TimedBehavior) Observe(now float64) {
	ok, _ := b.enabled(now, false)
	switch {
	case ok && !b.armed:
		b.armed = true
		b.enabledAt = now
	case !ok:
		b.armed = false
	}
}

// CanFire is true only while the elapsed enablement time lies inside
// the window and enablement still holds. Past the window it reports
// false; WindowCrossed tells the controller a forced boundary firing is
// due instead.
func (b *TimedBehavior) CanFire(now float64) (bool, string) {
	if !b.armed {
		return false, "not enabled"
	}
	if ok, reason := b.enabled(now, false); !ok {
		return false, reason
	}
	elapsed := now - b.enabledAt
	if elapsed < b.t.Earliest {
		return false, "before earliest firing time"
	}
	if elapsed > b.t.Latest {
		return false, "past latest firing time"
	}
	return true, ""
}

// WindowCrossed reports that the step landed past the window while the
// transition stayed enabled: the firing was stepped over and must be
// forced at the boundary rather than silently dropped.
func (b *TimedBehavior) WindowCrossed(now float64) bool {
	if !b.armed {
		return false
	}
	if ok, _ := b.enabled(now, false); !ok {
		return false
	}
	return now-b.enabledAt > b.t.Latest
}

// Deadline returns the absolute latest firing time of the current
// enablement episode.
func (b *TimedBehavior) Deadline() (float64, bool) {
	if !b.armed {
		return 0, false
	}
	return b.enabledAt + b.t.Latest, true
}

// Fire stamps the firing at the current time, or at the window boundary
// when the window was crossed, and restarts the enablement clock.
func (b *TimedBehavior) Fire(now, _ float64) (*Result, error) {
	ft := now
	forced := false
	if deadline := b.enabledAt + b.t.Latest; b.armed && now > deadline {
		ft = deadline
		forced = true
	}
	res, err := b.fireDiscrete(ft)
	if err != nil {
		return res, err
	}
	res.Forced = forced && res.Fired
	b.armed = false
	return res, nil
}

func (b *TimedBehavior) Reset() {
	b.armed = false
	b.enabledAt = 0
}
