// Package pid implements the per-mode PID state used by VComp, Current,
// Speed, and Position regulation (§3 "PID state", §4.5 "Control laws").
// Gains are 16.16 signed fixed point; the integrator saturates at a
// bound derived from max duty and stops accumulating while the output is
// saturated in the same direction as the error (anti-windup).
package pid

import (
	"math"

	"github.com/jaguarmc/core/internal/fixed"
)

// Gains holds the three PID coefficients, 16.16 fixed point.
type Gains struct {
	P, I, D fixed.Q16_16
}

// Controller is one PID loop's running state.
type Controller struct {
	gains     Gains
	integral  float64
	lastError float64
	bound     float64 // output saturation bound, derived from max duty
}

// New returns a zeroed Controller with the given output bound (e.g. the
// H-bridge max duty magnitude).
func New(bound float64) *Controller {
	return &Controller{bound: bound}
}

// GainsGet/GainsSet read and write the three gains independently, per
// the command layer's set_*_p/i/d surface.
func (c *Controller) GainsGet() Gains { return c.gains }
func (c *Controller) GainsSet(g Gains) { c.gains = g }

func (c *Controller) PGet() fixed.Q16_16 { return c.gains.P }
func (c *Controller) PSet(p fixed.Q16_16) { c.gains.P = p }
func (c *Controller) IGet() fixed.Q16_16 { return c.gains.I }
func (c *Controller) ISet(i fixed.Q16_16) { c.gains.I = i }
func (c *Controller) DGet() fixed.Q16_16 { return c.gains.D }
func (c *Controller) DSet(d fixed.Q16_16) { c.gains.D = d }

// BoundSet updates the output saturation bound (e.g. when voltage_max
// changes).
func (c *Controller) BoundSet(bound float64) { c.bound = bound }

// Reset zeroes the integrator and last-error, as required on every mode
// switch (§4.5 "Mode switching").
func (c *Controller) Reset() {
	c.integral = 0
	c.lastError = 0
}

// Step runs one PID iteration given the instantaneous error, returning a
// duty command clamped to [-bound, bound].
//
// Anti-windup: the integral term is clamped to the output bound, and it
// does not accumulate further while the unclamped output is already
// saturated in the same direction as the error (so a persistent large
// error cannot windup the integrator while the actuator is pinned).
func (c *Controller) Step(errVal float64) float64 {
	p := c.gains.P.Float() * errVal
	d := c.gains.D.Float() * (errVal - c.lastError)

	candidateIntegral := c.integral + errVal
	unclamped := p + c.gains.I.Float()*candidateIntegral + d

	saturatedHigh := unclamped > c.bound
	saturatedLow := unclamped < -c.bound
	sameDirection := (saturatedHigh && errVal > 0) || (saturatedLow && errVal < 0)

	if !sameDirection {
		c.integral = candidateIntegral
	}
	if gi := c.gains.I.Float(); gi != 0 {
		lim := c.bound / math.Abs(gi)
		c.integral = fixed.Clamp(c.integral, -lim, lim)
	}
	c.lastError = errVal

	out := p + c.gains.I.Float()*c.integral + d
	return fixed.Clamp(out, -c.bound, c.bound)
}
