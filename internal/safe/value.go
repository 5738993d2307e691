package safe

import (
	"math"
)

// Uint64ToInt converts val to int, clamping to math.MaxInt.
func Uint64ToInt(val uint64) (int, bool) {
	if val > math.MaxInt {
		return math.MaxInt, true
	}
	return int(val), false
}
