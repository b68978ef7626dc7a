// Package units converts between metric and imperial values for report text.
//
// Dual formatters use fmt's %.2f (%.1f for temperature), which rounds the exact
// binary value half to even.
package units

import "fmt"

const (
	feetPerMeter = 3.28084
	cmPerInch    = 2.54
	poundsPerKg  = 2.20462
	psiPerBar    = 14.5038
)

func MetersToFeet(m float64) float64 { return m * feetPerMeter }

func FeetToMeters(ft float64) float64 { return ft / feetPerMeter }

func InchesToCm(in float64) float64 { return in * cmPerInch }

func CmToInches(cm float64) float64 { return cm / cmPerInch }

func KgToPounds(kg float64) float64 { return kg * poundsPerKg }

func PoundsToKg(lb float64) float64 { return lb / poundsPerKg }

func BarToPsi(bar float64) float64 { return bar * psiPerBar }

func PsiToBar(psi float64) float64 { return psi / psiPerBar }

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// DualLength renders meters with the feet equivalent, e.g. "2.00 m (6.56 ft)".
func DualLength(m float64) string {
	return fmt.Sprintf("%.2f m (%.2f ft)", m, MetersToFeet(m))
}

// DualWeight renders kilograms with the pounds equivalent.
func DualWeight(kg float64) string {
	return fmt.Sprintf("%.2f kg (%.2f lb)", kg, KgToPounds(kg))
}

// DualPressure renders bar with the psi equivalent.
func DualPressure(bar float64) string {
	return fmt.Sprintf("%.2f bar (%.2f psi)", bar, BarToPsi(bar))
}

// DualTemperature renders Celsius with the Fahrenheit equivalent, one decimal.
func DualTemperature(c float64) string {
	return fmt.Sprintf("%.1f °C (%.1f °F)", c, CelsiusToFahrenheit(c))
}

// Reference returns the units reference card lines printed in reports and by /units.
func Reference() []string {
	return []string{
		"Length: 1 m = 3.2808 ft | 1 in = 2.54 cm",
		"Weight: 1 kg = 2.2046 lb",
		"Pressure: 1 bar = 14.5038 psi",
		"Temperature: °F = °C × 9/5 + 32",
	}
}
