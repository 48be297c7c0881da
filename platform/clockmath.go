// Package platform supplies the hardware-timer shim the kernel package is
// driven by: a Clock interface and two concrete implementations, a
// deterministic ManualClock for tests and a real-time TickerClock for
// production use.
package platform

import (
	"fmt"
	"math"
)

// FormulaKind selects which of the original two hardware profiles' search
// formulas to apply. The distilled spec only documented the PIC18F4550
// formula; the original source shows a second, structurally different
// profile (MCF52233), so both are kept and a profile picks one.
type FormulaKind int

const (
	// FormulaPIC18F4550 solves Modulo = -(Duration*ClockHz/8) >> Prescaler,
	// biased into the 16-bit register's negative-counting range.
	FormulaPIC18F4550 FormulaKind = iota
	// FormulaMCF52233 solves Modulo = (Duration*ClockHz/4) >> Prescaler,
	// a plain unsigned down-counter.
	FormulaMCF52233
)

// HardwareProfile parameterizes the prescaler/modulo fixed-point search so
// it isn't hardwired to one chip, generalizing the original's two
// hand-written profiles (PIC18F4550, MCF52233) into data.
type HardwareProfile struct {
	// ClockHz is the system clock frequency driving the timer.
	ClockHz float64
	// MaxPrescaler is one past the largest legal prescaler shift value.
	MaxPrescaler uint8
	// ModuloBits is the timer register's width.
	ModuloBits uint8
	// Formula selects the search arithmetic.
	Formula FormulaKind
}

// DefaultProfile approximates a PIC18F4550 running off its internal 48MHz
// USB PLL clock, Timer0 in 16-bit mode with an 8-bit prescaler.
var DefaultProfile = HardwareProfile{
	ClockHz:      48_000_000,
	MaxPrescaler: 8,
	ModuloBits:   16,
	Formula:      FormulaPIC18F4550,
}

// MCF52233Profile approximates a ColdFire MCF52233 PIT running at its
// documented demo-board clock, 16-bit down-counter, 4-bit prescaler.
var MCF52233Profile = HardwareProfile{
	ClockHz:      60_000_000,
	MaxPrescaler: 16,
	ModuloBits:   16,
	Formula:      FormulaMCF52233,
}

// solvePrescaleAndModulo reimplements DK_CalculatePrescaleAndModulo: a
// fixed-point search across the legal prescaler range for the smallest
// prescaler whose resulting modulo fits the register width. durationSec is
// the desired quantum length in seconds.
func solvePrescaleAndModulo(durationSec float64, profile HardwareProfile) (prescaler uint8, modulo uint16, err error) {
	if durationSec <= 0 {
		return 0, 0, fmt.Errorf("duration must be > 0, got %v", durationSec)
	}

	maxModulo := math.Pow(2, float64(profile.ModuloBits)) - 1

	switch profile.Formula {
	case FormulaPIC18F4550:
		m := -durationSec * profile.ClockHz / (4 * 2)
		m *= 2
		for p := uint8(0); p < profile.MaxPrescaler; p++ {
			m /= 2
			lower := -(maxModulo + 2*4)
			upper := -(2 * 4)
			if m >= lower && m <= upper {
				biased := m + maxModulo + 2*4
				return p, uint16(biased), nil
			}
		}

	case FormulaMCF52233:
		m := durationSec * profile.ClockHz / 4
		m *= 2
		for p := uint8(0); p < profile.MaxPrescaler; p++ {
			m /= 2
			if m >= 0 && m <= maxModulo {
				return p, uint16(m), nil
			}
		}
	}

	return 0, 0, fmt.Errorf("no prescaler in [0,%d) fits a %v quantum on this profile", profile.MaxPrescaler, durationSec)
}
