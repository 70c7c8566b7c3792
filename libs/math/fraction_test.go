package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFraction(t *testing.T) {

	testCases := []struct {
		f   string
		exp Fraction
		err bool
	}{
		{
			f:   "2/3",
			exp: Fraction{2, 3},
			err: false,
		},
		{
			f:   "15/5",
			exp: Fraction{15, 5},
			err: false,
		},
		// test divide by zero error
		{
			f:   "2/0",
			exp: Fraction{},
			err: true,
		},
		// test negative
		{
			f:   "-1/2",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "1/-2",
			exp: Fraction{},
			err: true,
		},
		// test overflow
		{
			f:   "9223372036854775808/2",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "2/9223372036854775808",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "2/3/4",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "123",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "1a2/4",
			exp: Fraction{},
			err: true,
		},
		{
			f:   "1/3bc4",
			exp: Fraction{},
			err: true,
		},
	}

	for idx, tc := range testCases {
		output, err := ParseFraction(tc.f)
		if tc.err {
			assert.Error(t, err, idx)
		} else {
			assert.NoError(t, err, idx)
		}
		assert.Equal(t, tc.exp, output, idx)
	}
}

func TestFractionBetween(t *testing.T) {
	third, one := Fraction{1, 3}, Fraction{1, 1}
	testCases := []struct {
		fr Fraction
		in bool
	}{
		0: {Fraction{1, 3}, true},
		1: {Fraction{1, 1}, true},
		2: {Fraction{7e18, 9e18}, true},
		3: {Fraction{1<<63 - 1, 1<<63 - 1}, true},
		4: {Fraction{1, 4}, false},
		5: {Fraction{5, 4}, false},
		6: {Fraction{1, 0}, false},
		7: {Fraction{3e18 - 1, 9e18}, false},
	}
	for i, tc := range testCases {
		assert.Equal(t, tc.in, tc.fr.Between(third, one), "#%d", i)
	}
	assert.False(t, Fraction{1, 2}.Between(third, Fraction{1, 0}))
}
