package logic

// StageGates holds the two heating gates evaluated in priority order.
type StageGates struct {
	TwoPlates *Gate
	OnePlate  *Gate
}

// Decide evaluates the two-plate gate first; the one-plate gate is only
// evaluated when the two-plate gate is inactive.
func (s StageGates) Decide(tempF float64) Stage {
	if s.TwoPlates.Evaluate(tempF) {
		return StageTwoPlates
	}
	if s.OnePlate.Evaluate(tempF) {
		return StageOnePlate
	}
	return StageOff
}
