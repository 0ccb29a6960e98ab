package logic

// Gate is a boolean with hysteresis. Its output flips once when the input
// reaches the rising threshold and flips back only after the input falls to
// the falling threshold, so a signal hovering near one set point cannot
// make it chatter.
//
// A Gate must be owned by a single decision; gates never share state.
type Gate struct {
	rising  float64
	falling float64
	active  bool
	armed   bool // rising crossed since the last falling crossing
}

// GateConfig describes a gate's thresholds and initial output.
type GateConfig struct {
	Rising   float64
	Falling  float64
	Inverted bool // initial output is true; comparison direction is unchanged
}

// NewGate creates a gate. inverted sets the initial output only.
func NewGate(rising, falling float64, inverted bool) *Gate {
	return &Gate{
		rising:  rising,
		falling: falling,
		active:  inverted,
	}
}

// NewGateFromConfig creates a gate from a GateConfig.
func NewGateFromConfig(cfg GateConfig) *Gate {
	return NewGate(cfg.Rising, cfg.Falling, cfg.Inverted)
}

// Evaluate feeds a value to the gate and returns the resulting output.
// Repeating a value without an intervening crossing returns the same result.
func (g *Gate) Evaluate(v float64) bool {
	if !g.armed && v >= g.rising {
		g.active = !g.active
		g.armed = true
	} else if g.armed && v <= g.falling {
		g.active = !g.active
		g.armed = false
	}
	return g.active
}

// Active returns the current output without evaluating a value.
func (g *Gate) Active() bool {
	return g.active
}

// Armed reports whether the rising threshold has been crossed and the
// falling threshold not yet reached.
func (g *Gate) Armed() bool {
	return g.armed
}

// Rising returns the rising threshold.
func (g *Gate) Rising() float64 {
	return g.rising
}

// Falling returns the falling threshold.
func (g *Gate) Falling() float64 {
	return g.falling
}
