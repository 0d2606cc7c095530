// Package eval compiles and runs the restricted expressions used for
// guards, rates, and arc weights. Expressions see the current marking as
// named place values, the current time as t, and a fixed catalog of
// mathematical and kinetic functions. Nothing else is reachable; an
// expression cannot touch the net, the host, or the engine.
package eval

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled expression.
type Program struct {
	src  string
	prog *vm.Program
}

// Compile compiles src. Place names referenced by the expression are
// resolved at evaluation time against the marking; a name that does not
// exist then is an evaluation failure, which callers treat as a failed
// guard or a zero rate.
func Compile(src string) (*Program, error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return &Program{src: src, prog: prog}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.src }

// Run evaluates the program against a marking and the current time.
func (p *Program) Run(marking map[string]float64, t float64) (any, error) {
	out, err := expr.Run(p.prog, Environment(marking, t))
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", p.src, err)
	}
	return out, nil
}

// Bool evaluates the program and coerces the result to a boolean.
// Numeric results pass while > 0, matching numeric guards.
func (p *Program) Bool(marking map[string]float64, t float64) (bool, error) {
	out, err := p.Run(marking, t)
	if err != nil {
		return false, err
	}
	switch v := out.(type) {
	case bool:
		return v, nil
	case float64:
		return v > 0, nil
	case int:
		return v > 0, nil
	}
	return false, fmt.Errorf("eval %q: %T is not a boolean", p.src, out)
}

// Number evaluates the program and coerces the result to a float64.
func (p *Program) Number(marking map[string]float64, t float64) (float64, error) {
	out, err := p.Run(marking, t)
	if err != nil {
		return 0, err
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("eval %q: %T is not a number", p.src, out)
}

// Environment builds the value map an expression runs against: every
// place's token count under its name, t for the current time, and the
// function catalog. Catalog names shadow place names, so places should
// not be named after functions.
func Environment(marking map[string]float64, t float64) map[string]any {
	env := make(map[string]any, len(marking)+16)
	for name, tokens := range marking {
		env[name] = tokens
	}
	env["t"] = t
	for name, fn := range catalog {
		env[name] = fn
	}
	return env
}

// catalog is the fixed set of functions expressions may call. hill and
// mm cover the kinetic laws the rate functions commonly need.
var catalog = map[string]any{
	"abs":   math.Abs,
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"min": func(a, b float64) float64 {
		return math.Min(a, b)
	},
	"max": func(a, b float64) float64 {
		return math.Max(a, b)
	},
	// hill(x, k, n) is the Hill activation x^n / (k^n + x^n).
	"hill": func(x, k, n float64) float64 {
		xn := math.Pow(x, n)
		return xn / (math.Pow(k, n) + xn)
	},
	// mm(s, vmax, km) is the Michaelis-Menten rate vmax*s / (km + s).
	"mm": func(s, vmax, km float64) float64 {
		return vmax * s / (km + s)
	},
}
