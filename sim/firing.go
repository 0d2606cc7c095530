package sim

import (
	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/behavior"
)

// Firing is the externally visible record of one transition firing.
type Firing struct {
	TransitionID   string
	TransitionName string
	Type           hfpn.TransitionType
	// Time is the simulated time of the firing; for a forced timed
	// firing this is the window boundary, which can lie before the
	// current clock.
	Time     float64
	Consumed map[string]float64
	Produced map[string]float64
	// Intended and Actual report a continuous transfer before and after
	// clamping. Equal unless the flow was clamped.
	Intended float64
	Actual   float64
	Forced   bool
}

func firingOf(res *behavior.Result) Firing {
	f := Firing{
		TransitionID:   res.Transition.ID,
		TransitionName: res.Transition.Name,
		Type:           res.Transition.Type,
		Time:           res.Time,
		Intended:       res.Intended,
		Actual:         res.Actual,
		Forced:         res.Forced,
	}
	if len(res.Consumed) > 0 {
		f.Consumed = make(map[string]float64, len(res.Consumed))
		for p, v := range res.Consumed {
			f.Consumed[p.Name] += v
		}
	}
	if len(res.Produced) > 0 {
		f.Produced = make(map[string]float64, len(res.Produced))
		for p, v := range res.Produced {
			f.Produced[p.Name] += v
		}
	}
	return f
}
