package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolvePrescaleAndModuloPIC(t *testing.T) {
	_, _, err := solvePrescaleAndModulo(0.01, DefaultProfile)
	require.NoError(t, err)
}

func TestSolvePrescaleAndModuloMCF(t *testing.T) {
	_, _, err := solvePrescaleAndModulo(0.01, MCF52233Profile)
	require.NoError(t, err)
}

func TestSolvePrescaleAndModuloRejectsZeroDuration(t *testing.T) {
	_, _, err := solvePrescaleAndModulo(0, DefaultProfile)
	require.Error(t, err)
}

func TestSolvePrescaleAndModuloRejectsUnfittableDuration(t *testing.T) {
	tiny := HardwareProfile{ClockHz: 1_000_000, MaxPrescaler: 1, ModuloBits: 4, Formula: FormulaMCF52233}
	_, _, err := solvePrescaleAndModulo(10, tiny)
	require.Error(t, err)
}
