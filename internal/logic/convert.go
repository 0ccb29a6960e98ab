package logic

import "math"

// ToFahrenheit converts degrees Celsius to degrees Fahrenheit.
func ToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Round1 rounds v to one decimal place, halves away from zero.
// Used for published and displayed values only, never for gate input.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
