package light

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendermint/lightcore/crypto"
	tmbytes "github.com/tendermint/lightcore/libs/bytes"
	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

// TrustOptions are the trust parameters needed when a new light client
// connects to the network or when an existing light client that has been
// offline for longer than the trusting period connects to the network.
//
// The expectation is the user will get this information from a trusted source
// like a validator, a friend, or a secure website. A more user friendly
// solution with trust tradeoffs is that we establish an https based protocol
// with a default end point that populates this information. Also an on-chain
// registry of roots-of-trust (e.g. on the Cosmos Hub) seems likely in the
// future.
type TrustOptions struct {
	// tp: trusting period.
	//
	// Should be significantly less than the unbonding period (e.g. unbonding
	// period = 3 weeks, trusting period = 2 weeks).
	//
	// More specifically, trusting period + time needed to check headers + time
	// needed to report and punish misbehavior should be less than the unbonding
	// period.
	Period time.Duration

	// Header's Height and Hash must both be provided to force the trusting of a
	// particular header.
	Height int64
	Hash   tmbytes.HexBytes
}

// ValidateBasic performs basic validation.
func (opts TrustOptions) ValidateBasic() error {
	if opts.Period <= 0 {
		return errors.New("negative or zero period")
	}
	if opts.Height <= 0 {
		return errors.New("zero or negative height")
	}
	if len(opts.Hash) != crypto.HashSize {
		return fmt.Errorf("expected hash size to be %d bytes, got %d bytes",
			crypto.HashSize,
			len(opts.Hash),
		)
	}
	return nil
}

// TrustLightBlock fetches the block named by opts and, if it matches the
// hash, is not expired and carries +2/3 of its own validator set, records it
// as Trusted. This is the subjective initialisation of a light client.
func (v *Verifier) TrustLightBlock(ctx context.Context, state *State, opts TrustOptions) (*types.LightBlock, error) {
	if err := opts.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid TrustOptions: %w", err)
	}

	lb, err := v.provider.LightBlock(ctx, opts.Height)
	v.metrics.Fetches.Add(1)
	if err != nil {
		return nil, classifyFetchErr(opts.Height, err)
	}
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return nil, ErrInvalidHeader{errors.New("provider returned an empty light block")}
	}

	if err := lb.ValidateBasic(v.chainID); err != nil {
		return nil, ErrInvalidHeader{err}
	}
	if lb.Height != opts.Height {
		return nil, ErrInvalidHeader{fmt.Errorf("expected height %d, got %d", opts.Height, lb.Height)}
	}
	if !bytes.Equal(lb.Hash(), opts.Hash) {
		return nil, ErrInvalidHeader{fmt.Errorf("expected header's hash %X, but got %X", opts.Hash, lb.Hash())}
	}

	now := v.clock.Now()
	if HeaderExpired(lb.SignedHeader, opts.Period, now) {
		return nil, ErrHeaderExpired{lb.Height, lb.Time.Add(opts.Period), now}
	}
	if !lb.Time.Before(now.Add(v.params.MaxClockDrift)) {
		return nil, ErrInvalidHeader{fmt.Errorf("header has a time from the future %v (now: %v)", lb.Time, now)}
	}

	// Ensure that +2/3 of validators signed correctly.
	if err := lb.ValidatorSet.VerifyCommitLight(v.chainID, lb.Commit.BlockID, lb.Height, lb.Commit); err != nil {
		return nil, ErrInvalidHeader{err}
	}

	if err := state.Store().Update(lb, store.StatusTrusted); err != nil {
		return nil, err
	}
	v.logger.Info("trusted light block", "height", lb.Height, "hash", lb.Hash())
	return lb, nil
}
