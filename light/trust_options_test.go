package light_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightcore/internal/test/factory"
	tmmath "github.com/tendermint/lightcore/libs/math"
	"github.com/tendermint/lightcore/light"
	"github.com/tendermint/lightcore/light/provider"
	mockp "github.com/tendermint/lightcore/light/provider/mock"
	"github.com/tendermint/lightcore/light/provider/mocks"
	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/light/store/memory"
	"github.com/tendermint/lightcore/types"
)

func TestTrustOptionsValidateBasic(t *testing.T) {
	hash := genBlock(1, valsA, valsA).Hash()

	testCases := []struct {
		name  string
		opts  light.TrustOptions
		valid bool
	}{
		{"valid", light.TrustOptions{Period: time.Hour, Height: 1, Hash: hash}, true},
		{"zero period", light.TrustOptions{Height: 1, Hash: hash}, false},
		{"zero height", light.TrustOptions{Period: time.Hour, Hash: hash}, false},
		{"short hash", light.TrustOptions{Period: time.Hour, Height: 1, Hash: hash[:10]}, false},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.ValidateBasic()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTrustLightBlock(t *testing.T) {
	ctx := context.Background()
	blocks := map[int64]*types.LightBlock{
		100: genBlock(100, valsA, valsA),
		// signed by half of its own validator set
		110: factory.GenLightBlock(chainID, 110, blockTime(110), valsA, valsA, keys.Subset(0, 1, 2)),
	}
	p := mockp.New("trust", blocks)

	newVerifier := func(t *testing.T, clock light.Clock, opts ...light.Option) (*light.Verifier, *light.State) {
		v, err := light.NewVerifier(chainID, p, trustingPeriod, append(opts, light.WithClock(clock))...)
		require.NoError(t, err)
		return v, light.NewState(memory.New())
	}

	t.Run("trusted", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(now))
		lb, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[100].Hash(),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 100, lb.Height)
		requireStatus(t, state.Store(), 100, store.StatusTrusted)
	})

	t.Run("wrong hash", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(now))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[110].Hash(),
		})
		assert.ErrorAs(t, err, &light.ErrInvalidHeader{})
		assert.Zero(t, state.Store().Size())
	})

	t.Run("expired", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(blockTime(100).Add(time.Hour)))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: time.Hour, Height: 100, Hash: blocks[100].Hash(),
		})
		assert.ErrorAs(t, err, &light.ErrHeaderExpired{})
		assert.Zero(t, state.Store().Size())
	})

	t.Run("from the future", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(blockTime(100).Add(-time.Minute)))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[100].Hash(),
		})
		assert.ErrorAs(t, err, &light.ErrInvalidHeader{})
	})

	t.Run("not enough signatures", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(now))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 110, Hash: blocks[110].Hash(),
		})
		assert.ErrorAs(t, err, &types.ErrNotEnoughVotingPowerSigned{})
	})

	t.Run("missing", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(now))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 120, Hash: blocks[100].Hash(),
		})
		assert.ErrorAs(t, err, &light.ErrFetchUnavailable{})
	})

	t.Run("canceled", func(t *testing.T) {
		v, state := newVerifier(t, light.FixedClock(now))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := v.TrustLightBlock(cctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[100].Hash(),
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.As(err, &light.ErrFetchUnavailable{}), "got %v", err)
		assert.Zero(t, state.Store().Size())
	})

	t.Run("bad light block", func(t *testing.T) {
		bad := mocks.NewProvider(t)
		bad.On("String").Return("mock").Maybe()
		bad.On("LightBlock", mock.Anything, int64(100)).
			Return(nil, provider.ErrBadLightBlock{Reason: errors.New("garbage")}).Once()
		v, err := light.NewVerifier(chainID, bad, trustingPeriod, light.WithClock(light.FixedClock(now)))
		require.NoError(t, err)
		state := light.NewState(memory.New())

		_, err = v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[100].Hash(),
		})
		assert.ErrorAs(t, err, &light.ErrInvalidHeader{})
		assert.False(t, errors.As(err, &light.ErrFetchUnavailable{}), "got %v", err)
		assert.Zero(t, state.Store().Size())
	})

	t.Run("then verify", func(t *testing.T) {
		third := tmmath.Fraction{Numerator: 1, Denominator: 3}
		v, state := newVerifier(t, light.FixedClock(now), light.TrustLevel(third))
		_, err := v.TrustLightBlock(ctx, state, light.TrustOptions{
			Period: trustingPeriod, Height: 100, Hash: blocks[100].Hash(),
		})
		require.NoError(t, err)

		// enough of the trusted set signed 110 but not +2/3 of its own
		_, err = v.VerifyToHeight(ctx, state, 110)
		assert.ErrorAs(t, err, &light.ErrInvalidHeader{})
	})
}

