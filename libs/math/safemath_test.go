package math_test

import (
	"testing"
	"testing/quick"

	tmmath "github.com/tendermint/lightcore/libs/math"
)

func TestSafeAdd(t *testing.T) {
	f := func(a, b int64) bool {
		c, overflow := tmmath.SafeAdd(a, b)
		return overflow || (!overflow && c == a+b)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
