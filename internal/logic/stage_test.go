package logic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// heaterGates builds the gates for target=105, tolerance=5, offset=10.
func heaterGates() StageGates {
	return StageGates{
		TwoPlates: NewGate(95, 90, true),
		OnePlate:  NewGate(105, 100, true),
	}
}

func TestStagePlates(t *testing.T) {
	tests := []struct {
		stage          Stage
		plate1, plate2 bool
	}{
		{StageOff, false, false},
		{StageOnePlate, true, false},
		{StageTwoPlates, true, true},
		{Stage(""), false, false},
	}
	for _, tt := range tests {
		p1, p2 := tt.stage.Plates()
		require.Equal(t, tt.plate1, p1, "stage %q plate1", tt.stage)
		require.Equal(t, tt.plate2, p2, "stage %q plate2", tt.stage)
	}
}

func TestDecideWarmUpAndCoolDown(t *testing.T) {
	s := heaterGates()

	steps := []struct {
		tempF float64
		want  Stage
	}{
		{ToFahrenheit(25.6), StageTwoPlates}, // 78.08: cold, both plates
		{ToFahrenheit(33), StageTwoPlates},   // 91.4
		{ToFahrenheit(38), StageOnePlate},    // 100.4: two-plate rising reached
		{ToFahrenheit(41), StageOff},         // 105.8: target reached
		{103, StageOff},
		{99, StageOnePlate}, // fell to one-plate falling threshold
		{101, StageOnePlate},
		{89, StageTwoPlates}, // fell to two-plate falling threshold
		{94, StageTwoPlates},
		{96, StageOnePlate},
	}
	for i, st := range steps {
		require.Equal(t, st.want, s.Decide(st.tempF), "step %d (%.2fF)", i, st.tempF)
	}
}

func TestDecideSkipsOnePlateWhileTwoPlatesActive(t *testing.T) {
	s := heaterGates()

	// Two-plate gate is active at 80F, so the one-plate gate is never fed.
	require.Equal(t, StageTwoPlates, s.Decide(80))
	require.True(t, s.OnePlate.Active())
	require.False(t, s.OnePlate.Armed())
}

func TestDecideStagesAreExclusive(t *testing.T) {
	s := heaterGates()
	for v := 60.0; v <= 130; v += 0.7 {
		stage := s.Decide(v)
		p1, p2 := stage.Plates()
		// plate2 never runs without plate1, and exactly one stage applies.
		require.False(t, p2 && !p1, "v=%v", v)
		require.Contains(t, []Stage{StageOff, StageOnePlate, StageTwoPlates}, stage)
	}
}

func TestScenarioFanGate(t *testing.T) {
	fan := NewGate(80, 75, false)

	require.False(t, fan.Evaluate(ToFahrenheit(25.6))) // 78.08
	require.True(t, fan.Evaluate(ToFahrenheit(33)))    // 91.4
	require.True(t, fan.Evaluate(ToFahrenheit(38)))    // 100.4, not yet fallen to 75
	require.True(t, fan.Evaluate(ToFahrenheit(41)))    // 105.8
	require.True(t, fan.Evaluate(76))
	require.False(t, fan.Evaluate(75))
}

func TestScenarioOnePlateGateArms(t *testing.T) {
	g := NewGate(105, 100, false)

	require.False(t, g.Evaluate(ToFahrenheit(25.6)))
	require.False(t, g.Evaluate(ToFahrenheit(33)))
	require.False(t, g.Evaluate(ToFahrenheit(38)))
	require.True(t, g.Evaluate(ToFahrenheit(41)))
	require.True(t, g.Armed())
}
