package safe

import (
	"math"
	"testing"
)

func TestSafeUint64ToInt(t *testing.T) {
	tests := []struct {
		name            string
		input           uint64
		expectedValue   int
		expectedClamped bool
	}{
		{name: "zero value", input: 0, expectedValue: 0},
		{name: "line number", input: 1234, expectedValue: 1234},
		{name: "max int", input: math.MaxInt, expectedValue: math.MaxInt},
		{name: "max uint64 value (overflow)", input: math.MaxUint64, expectedValue: math.MaxInt, expectedClamped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, clamped := Uint64ToInt(tt.input)
			if value != tt.expectedValue {
				t.Errorf("Uint64ToInt(%d) value = %d, expected %d", tt.input, value, tt.expectedValue)
			}
			if clamped != tt.expectedClamped {
				t.Errorf("Uint64ToInt(%d) clamped = %v, expected %v", tt.input, clamped, tt.expectedClamped)
			}
		})
	}
}
