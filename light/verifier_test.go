package light_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightcore/internal/test/factory"
	tmmath "github.com/tendermint/lightcore/libs/math"
	"github.com/tendermint/lightcore/light"
	"github.com/tendermint/lightcore/types"
)

func defaultParams() light.TrustParams {
	return light.TrustParams{
		TrustLevel:     light.DefaultTrustLevel,
		TrustingPeriod: trustingPeriod,
		MaxClockDrift:  10 * time.Second,
	}
}

func TestCheckTrust(t *testing.T) {
	anchor := genBlock(100, valsA, valsA)

	tamperedSig := genBlock(150, valsB, valsB)
	for i := range tamperedSig.Commit.Signatures {
		tamperedSig.Commit.Signatures[i].Signature[0] ^= 0xff
	}

	swappedVals := genBlock(150, valsB, valsB)
	swappedVals.ValidatorSet = valsA

	// the untrusted block's own set is dominated by members that did not sign
	heavy := keys.Subset(0, 1, 2, 3, 4, 6, 7, 8, 9).ToValidatorsWithPowers(10, 10, 10, 10, 10, 10, 100, 100, 100)
	ownSetShort := factory.GenLightBlock(chainID, 150, blockTime(150), heavy, heavy, keys.Subset(0, 1, 2, 3, 4, 6))

	thirdParams := defaultParams()
	thirdParams.TrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 3}

	largeTwoThirds := defaultParams()
	largeTwoThirds.TrustLevel = tmmath.Fraction{Numerator: 2e17, Denominator: 3e17}

	badLevel := defaultParams()
	badLevel.TrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 4}

	type check func(t *testing.T, err error)
	var (
		noErr         check = func(t *testing.T, err error) { assert.NoError(t, err) }
		invalidHeader check = func(t *testing.T, err error) {
			assert.ErrorAs(t, err, &light.ErrInvalidHeader{})
		}
		expiredAt = func(height int64) check {
			return func(t *testing.T, err error) {
				var expired light.ErrHeaderExpired
				if assert.ErrorAs(t, err, &expired) {
					assert.Equal(t, height, expired.Height)
				}
			}
		}
	)

	testCases := []struct {
		name      string
		trusted   *types.LightBlock
		untrusted *types.LightBlock
		params    light.TrustParams
		now       time.Time
		verdict   light.Verdict
		check     check
	}{
		{"five of six trusted signers", anchor, genBlock(150, valsB, valsB),
			defaultParams(), now, light.Sufficient, noErr},
		{"exactly two thirds", genBlock(150, valsB, valsB), genBlock(200, valsC, valsC),
			defaultParams(), now, light.Sufficient, noErr},
		{"half of the trusted signers", anchor, genBlock(200, valsC, valsC),
			defaultParams(), now, light.Insufficient, noErr},
		{"half is enough at one third", anchor, genBlock(200, valsC, valsC),
			thirdParams, now, light.Sufficient, noErr},
		{"large two thirds fraction", anchor, genBlock(101, valsA, valsA),
			largeTwoThirds, now, light.Sufficient, noErr},
		{"large two thirds fraction not reached", anchor, genBlock(200, valsC, valsC),
			largeTwoThirds, now, light.Insufficient, noErr},
		{"anchor expired", anchor, genBlock(150, valsB, valsB),
			defaultParams(), blockTime(100).Add(trustingPeriod), light.Insufficient, expiredAt(100)},
		{"candidate expired", anchor,
			factory.GenLightBlock(chainID, 150, bTime.Add(-time.Hour), valsB, valsB, keys),
			defaultParams(), blockTime(100).Add(trustingPeriod - time.Minute), light.Insufficient, expiredAt(150)},
		{"same height", anchor, genBlock(100, valsA, valsA),
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"lower height", anchor, genBlock(99, valsA, valsA),
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"time not after anchor", anchor,
			factory.GenLightBlock(chainID, 150, blockTime(100), valsB, valsB, keys),
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"time from the future", anchor,
			factory.GenLightBlock(chainID, 150, now.Add(time.Minute), valsB, valsB, keys),
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"wrong chain", anchor,
			factory.GenLightBlock("other-chain", 150, blockTime(150), valsB, valsB, keys),
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"validator set does not match header", anchor, swappedVals,
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"bad signatures", anchor, tamperedSig,
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"own validator set below two thirds", anchor, ownSetShort,
			defaultParams(), now, light.Insufficient, invalidHeader},
		{"nil candidate", anchor, nil,
			defaultParams(), now, light.Insufficient, invalidHeader},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := light.CheckTrust(tc.trusted, tc.untrusted, tc.params, tc.now)
			assert.Equal(t, tc.verdict, verdict)
			tc.check(t, err)
		})
	}

	t.Run("invalid trust level", func(t *testing.T) {
		_, err := light.CheckTrust(anchor, genBlock(150, valsB, valsB), badLevel, now)
		require.Error(t, err)
		var invalid light.ErrInvalidHeader
		assert.False(t, errors.As(err, &invalid), "a bad trust level is a caller error")
	})

	t.Run("incomplete anchor", func(t *testing.T) {
		incomplete := genBlock(100, valsA, valsA)
		incomplete.NextValidatorSet = nil
		_, err := light.CheckTrust(incomplete, genBlock(150, valsB, valsB), defaultParams(), now)
		assert.Error(t, err)
	})
}

func TestCheckTrustHasNoSideEffects(t *testing.T) {
	anchor := genBlock(100, valsA, valsA)
	candidate := genBlock(150, valsB, valsB)
	before, err := candidate.Marshal()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		verdict, err := light.CheckTrust(anchor, candidate, defaultParams(), now)
		require.NoError(t, err)
		assert.Equal(t, light.Sufficient, verdict)
	}

	after, err := candidate.Marshal()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestValidateTrustLevel(t *testing.T) {
	testCases := []struct {
		lvl   tmmath.Fraction
		valid bool
	}{
		// valid
		0: {tmmath.Fraction{Numerator: 1, Denominator: 1}, true},
		1: {tmmath.Fraction{Numerator: 1, Denominator: 3}, true},
		2: {tmmath.Fraction{Numerator: 2, Denominator: 3}, true},
		3: {tmmath.Fraction{Numerator: 3, Denominator: 3}, true},
		4: {tmmath.Fraction{Numerator: 4, Denominator: 5}, true},
		5: {tmmath.Fraction{Numerator: 7e18, Denominator: 9e18}, true},
		6: {tmmath.Fraction{Numerator: 3e18, Denominator: 9e18}, true},

		// invalid
		7:  {tmmath.Fraction{Numerator: 6, Denominator: 5}, false},
		8:  {tmmath.Fraction{Numerator: 0, Denominator: 1}, false},
		9:  {tmmath.Fraction{Numerator: 0, Denominator: 0}, false},
		10: {tmmath.Fraction{Numerator: 1, Denominator: 0}, false},
		11: {tmmath.Fraction{Numerator: 1, Denominator: 4}, false},
		12: {tmmath.Fraction{Numerator: 3e18 - 1, Denominator: 9e18}, false},
		13: {tmmath.Fraction{Numerator: 1<<64 - 1, Denominator: 1<<64 - 2}, false},
	}

	for i, tc := range testCases {
		err := light.ValidateTrustLevel(tc.lvl)
		if !tc.valid {
			assert.Error(t, err, "#%d", i)
		} else {
			assert.NoError(t, err, "#%d", i)
		}
	}
}

func TestHeaderExpired(t *testing.T) {
	sh := genBlock(1, valsA, valsA).SignedHeader
	expiry := blockTime(1).Add(trustingPeriod)

	assert.False(t, light.HeaderExpired(sh, trustingPeriod, expiry.Add(-time.Nanosecond)))
	assert.True(t, light.HeaderExpired(sh, trustingPeriod, expiry))
	assert.True(t, light.HeaderExpired(sh, trustingPeriod, expiry.Add(time.Hour)))
}

func TestTrustParamsValidateBasic(t *testing.T) {
	p := defaultParams()
	assert.NoError(t, p.ValidateBasic())

	p.TrustingPeriod = 0
	assert.Error(t, p.ValidateBasic())

	p = defaultParams()
	p.MaxClockDrift = -time.Second
	assert.Error(t, p.ValidateBasic())

	p = defaultParams()
	p.TrustLevel = tmmath.Fraction{Numerator: 1, Denominator: 4}
	assert.Error(t, p.ValidateBasic())
}
