package types_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightcore/crypto/ed25519"
	"github.com/tendermint/lightcore/internal/test/factory"
	tmmath "github.com/tendermint/lightcore/libs/math"
	"github.com/tendermint/lightcore/types"
)

func TestNewValidatorSetSorted(t *testing.T) {
	keys := factory.GenPrivKeys(4)
	vals := keys.ToValidatorsWithPowers(1, 30, 30, 5)

	require.Equal(t, 4, vals.Size())
	assert.EqualValues(t, 66, vals.TotalVotingPower())
	assert.True(t, sort.IsSorted(types.ValidatorsByVotingPower(vals.Validators)))
	assert.EqualValues(t, 30, vals.Validators[0].VotingPower)
	assert.EqualValues(t, 1, vals.Validators[3].VotingPower)
}

func TestNewValidatorSetErrors(t *testing.T) {
	pk := ed25519.GenPrivKeyFromSecret([]byte("a")).PubKey()
	other := ed25519.GenPrivKeyFromSecret([]byte("b")).PubKey()

	badAddr := types.NewValidator(pk, 1)
	badAddr.Address = other.Address()

	testCases := []struct {
		name string
		vals []*types.Validator
	}{
		{"empty", nil},
		{"zero power", []*types.Validator{types.NewValidator(pk, 0)}},
		{"negative power", []*types.Validator{types.NewValidator(pk, -1)}},
		{"duplicate", []*types.Validator{types.NewValidator(pk, 1), types.NewValidator(pk, 2)}},
		{"address mismatch", []*types.Validator{badAddr}},
		{"too much power", []*types.Validator{
			types.NewValidator(pk, types.MaxTotalVotingPower),
			types.NewValidator(other, 1),
		}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := types.NewValidatorSet(tc.vals)
			assert.Error(t, err)
		})
	}
}

func TestValidatorSetHash(t *testing.T) {
	keys := factory.GenPrivKeys(3)
	a := keys.ToValidators(10)
	b := factory.PrivKeys{keys[2], keys[0], keys[1]}.ToValidators(10)
	assert.Equal(t, a.Hash(), b.Hash(), "order of construction must not matter")
	assert.NotEqual(t, a.Hash(), keys.ToValidators(11).Hash())
	assert.NotEqual(t, a.Hash(), keys.Subset(0, 1).ToValidators(10).Hash())
}

func TestVerifyCommitLight(t *testing.T) {
	keys := factory.GenPrivKeys(4)
	vals := keys.ToValidators(10)

	t.Run("all signed", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys)
		assert.NoError(t, vals.VerifyCommitLight(chainID, lb.Commit.BlockID, 2, lb.Commit))
	})

	t.Run("three of four signed", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys.Subset(0, 1, 2))
		assert.NoError(t, vals.VerifyCommitLight(chainID, lb.Commit.BlockID, 2, lb.Commit))
	})

	t.Run("two of four signed", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys.Subset(0, 1))
		err := vals.VerifyCommitLight(chainID, lb.Commit.BlockID, 2, lb.Commit)
		var e types.ErrNotEnoughVotingPowerSigned
		require.True(t, errors.As(err, &e))
		assert.EqualValues(t, 20, e.Got)
		assert.EqualValues(t, 27, e.Needed)
	})

	t.Run("wrong height", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys)
		assert.Error(t, vals.VerifyCommitLight(chainID, lb.Commit.BlockID, 3, lb.Commit))
	})

	t.Run("wrong chain id", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys)
		err := vals.VerifyCommitLight("other", lb.Commit.BlockID, 2, lb.Commit)
		assert.Error(t, err)
		assert.False(t, types.IsErrNotEnoughVotingPowerSigned(err))
	})

	t.Run("wrong set size", func(t *testing.T) {
		lb := factory.GenLightBlock(chainID, 2, bTime, vals, vals, keys)
		smaller := keys.Subset(0, 1, 2).ToValidators(10)
		assert.Error(t, smaller.VerifyCommitLight(chainID, lb.Commit.BlockID, 2, lb.Commit))
	})
}

func TestVerifyCommitLightTrusting(t *testing.T) {
	keys := factory.GenPrivKeys(6)
	signedBy := keys.Subset(0, 1, 2, 3, 4, 5).ToValidators(10)
	lb := factory.GenLightBlock(chainID, 9, bTime, signedBy, signedBy, keys)

	testCases := []struct {
		name    string
		trusted *types.ValidatorSet
		level   tmmath.Fraction
		tallied int64
		enough  bool
	}{
		{"same set", signedBy, tmmath.Fraction{Numerator: 2, Denominator: 3}, 60, true},
		{"trusted subset at 1/3", keys.Subset(0, 1, 2).ToValidators(10), tmmath.Fraction{Numerator: 1, Denominator: 3}, 30, true},
		{"one of three overlap at 2/3", factory.PrivKeys{keys[0], factory.GenPrivKeys(8)[6], factory.GenPrivKeys(8)[7]}.ToValidators(10),
			tmmath.Fraction{Numerator: 2, Denominator: 3}, 10, false},
		{"exactly at threshold", factory.PrivKeys{keys[0], keys[1], factory.GenPrivKeys(8)[7]}.ToValidators(10),
			tmmath.Fraction{Numerator: 2, Denominator: 3}, 20, true},
		{"disjoint", factory.GenPrivKeys(8).Subset(6, 7).ToValidators(10),
			tmmath.Fraction{Numerator: 1, Denominator: 3}, 0, false},
		{"same set at large two thirds", signedBy, tmmath.Fraction{Numerator: 2e17, Denominator: 3e17}, 60, true},
		{"trusted subset at large one third", keys.Subset(0, 1, 2).ToValidators(10),
			tmmath.Fraction{Numerator: 1e18, Denominator: 3e18}, 30, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tally, err := tc.trusted.VerifyCommitLightTrusting(chainID, lb.Commit, tc.level)
			assert.Equal(t, tc.tallied, tally.Tallied)
			assert.Equal(t, tc.trusted.TotalVotingPower(), tally.Total)
			if tc.enough {
				assert.NoError(t, err)
			} else {
				assert.True(t, types.IsErrNotEnoughVotingPowerSigned(err), "got %v", err)
			}
		})
	}
}

func TestVerifyCommitLightTrustingNeededPower(t *testing.T) {
	keys := factory.GenPrivKeys(4)
	signedBy := keys.Subset(0).ToValidators(10)
	lb := factory.GenLightBlock(chainID, 9, bTime, signedBy, signedBy, keys.Subset(0))
	trusted := keys.ToValidators(10)

	testCases := []struct {
		level  tmmath.Fraction
		needed int64
	}{
		0: {tmmath.Fraction{Numerator: 2, Denominator: 3}, 27},
		1: {tmmath.Fraction{Numerator: 2e17, Denominator: 3e17}, 27},
		2: {tmmath.Fraction{Numerator: 1 << 63, Denominator: 1<<63 + 1}, 40},
		3: {tmmath.Fraction{Numerator: 1, Denominator: 3}, 14},
	}
	for i, tc := range testCases {
		_, err := trusted.VerifyCommitLightTrusting(chainID, lb.Commit, tc.level)
		var notEnough types.ErrNotEnoughVotingPowerSigned
		require.True(t, errors.As(err, &notEnough), "#%d: got %v", i, err)
		assert.EqualValues(t, 10, notEnough.Got, "#%d", i)
		assert.Equal(t, tc.needed, notEnough.Needed, "#%d", i)
	}
}

func TestVerifyCommitLightTrustingBadSignature(t *testing.T) {
	keys := factory.GenPrivKeys(3)
	vals := keys.ToValidators(10)
	lb := factory.GenLightBlock(chainID, 9, bTime, vals, vals, keys)
	lb.Commit.Signatures[1].Signature = make([]byte, ed25519.SignatureSize)

	_, err := vals.VerifyCommitLightTrusting(chainID, lb.Commit, tmmath.Fraction{Numerator: 1, Denominator: 3})
	require.Error(t, err)
	assert.False(t, types.IsErrNotEnoughVotingPowerSigned(err))
}

func TestVerifyCommitLightTrustingDoubleVote(t *testing.T) {
	keys := factory.GenPrivKeys(3)
	vals := keys.ToValidators(10)
	lb := factory.GenLightBlock(chainID, 9, bTime, vals, vals, keys)
	lb.Commit.Signatures[1] = lb.Commit.Signatures[0]

	_, err := vals.VerifyCommitLightTrusting(chainID, lb.Commit, tmmath.Fraction{Numerator: 1, Denominator: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double vote")
}

func TestTrustTallySufficient(t *testing.T) {
	twoThirds := tmmath.Fraction{Numerator: 2, Denominator: 3}
	assert.True(t, types.TrustTally{Tallied: 2, Total: 3}.Sufficient(twoThirds))
	assert.False(t, types.TrustTally{Tallied: 1, Total: 3}.Sufficient(twoThirds))
	assert.True(t, types.TrustTally{Tallied: 4, Total: 6}.Sufficient(twoThirds))
	assert.False(t, types.TrustTally{Tallied: 3, Total: 6}.Sufficient(twoThirds))
	// no overflow with huge denominators
	huge := tmmath.Fraction{Numerator: 1 << 62, Denominator: 1 << 63}
	assert.True(t, types.TrustTally{Tallied: types.MaxTotalVotingPower / 2, Total: types.MaxTotalVotingPower}.Sufficient(huge))
	assert.False(t, types.TrustTally{Tallied: types.MaxTotalVotingPower/2 - 1, Total: types.MaxTotalVotingPower}.Sufficient(huge))
}
