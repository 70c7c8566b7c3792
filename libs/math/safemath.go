package math

import "math"

// SafeAdd adds two int64 numbers. If there is an overflow, the function will
// return -1, true.
func SafeAdd(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return -1, true
	} else if b < 0 && a < math.MinInt64-b {
		return -1, true
	}
	return a + b, false
}
