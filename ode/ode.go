// Package ode integrates flat state vectors with explicit stepping rules.
//
// A state is a VectorN, an index-addressed buffer with no meaning of its own: the
// caller decides how its fields are laid out and supplies a DerivativeFunc that
// evaluates dy/dt for a given state.
package ode

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// VectorN is a flat buffer of scalars.
type VectorN []float64

// NewVectorN returns a zeroed vector of length n.
func NewVectorN(n int) VectorN {
	return make(VectorN, n)
}

// Clone returns a copy of v.
func (v VectorN) Clone() VectorN {
	out := make(VectorN, len(v))
	copy(out, v)

	return out
}

// Resize returns v with length n, reusing its storage when possible.
func (v VectorN) Resize(n int) VectorN {
	if cap(v) >= n {
		return v[:n]
	}

	return make(VectorN, n)
}

// DerivativeFunc writes dy/dt at time t into dst, which it resizes to len(y), and
// returns it.
type DerivativeFunc func(t float64, y, dst VectorN) VectorN

// Integrator advances a state by one step of length h.
type Integrator interface {
	Name() string
	Step(t, h float64, y VectorN, f DerivativeFunc) VectorN
}

// Euler is the first order explicit rule y' = y + h·f(t, y).
type Euler struct{}

func (Euler) Name() string { return "euler" }

func (Euler) Step(t, h float64, y VectorN, f DerivativeFunc) VectorN {
	k := f(t, y, nil)
	out := NewVectorN(len(y))
	floats.AddScaledTo(out, y, h, k)

	return out
}

// Midpoint is the second order rule evaluating the slope at the half step.
type Midpoint struct{}

func (Midpoint) Name() string { return "midpoint" }

func (Midpoint) Step(t, h float64, y VectorN, f DerivativeFunc) VectorN {
	n := len(y)
	k := f(t, y, nil)

	mid := NewVectorN(n)
	floats.AddScaledTo(mid, y, h/2, k)
	k = f(t+h/2, mid, k)

	out := NewVectorN(n)
	floats.AddScaledTo(out, y, h, k)

	return out
}

// RK4 is the classical fourth order Runge-Kutta rule.
type RK4 struct{}

func (RK4) Name() string { return "rk4" }

func (RK4) Step(t, h float64, y VectorN, f DerivativeFunc) VectorN {
	n := len(y)
	tmp := NewVectorN(n)

	k1 := f(t, y, nil)
	floats.AddScaledTo(tmp, y, h/2, k1)
	k2 := f(t+h/2, tmp, nil)
	floats.AddScaledTo(tmp, y, h/2, k2)
	k3 := f(t+h/2, tmp, nil)
	floats.AddScaledTo(tmp, y, h, k3)
	k4 := f(t+h, tmp, nil)

	// slope = k1 + 2·k2 + 2·k3 + k4
	slope := k1.Clone()
	floats.AddScaled(slope, 2, k2)
	floats.AddScaled(slope, 2, k3)
	floats.Add(slope, k4)

	out := NewVectorN(n)
	floats.AddScaledTo(out, y, h/6, slope)

	return out
}

var integrators = map[string]Integrator{
	Euler{}.Name():    Euler{},
	Midpoint{}.Name(): Midpoint{},
	RK4{}.Name():      RK4{},
}

// Lookup returns the integrator registered under name, case-insensitively.
func Lookup(name string) (Integrator, error) {
	integrator, ok := integrators[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown integrator %q", name)
	}

	return integrator, nil
}
