package light

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	tmmath "github.com/tendermint/lightcore/libs/math"
	"github.com/tendermint/lightcore/types"
)

var (
	// DefaultTrustLevel - new header can be trusted if at least two thirds of
	// the trusted validator set (by voting power) signed it.
	DefaultTrustLevel = tmmath.Fraction{Numerator: 2, Denominator: 3}
)

// Verdict is the outcome of a trust check that did not fail outright.
type Verdict int

const (
	// Insufficient - too little of the trusted voting power signed; the
	// candidate may still be reachable through intermediate blocks.
	Insufficient Verdict = iota
	// Sufficient - the candidate can be trusted.
	Sufficient
)

func (v Verdict) String() string {
	switch v {
	case Sufficient:
		return "sufficient"
	case Insufficient:
		return "insufficient"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// TrustParams are the knobs of a trust check.
type TrustParams struct {
	// TrustLevel is the fraction of the trusted voting power that must sign.
	TrustLevel tmmath.Fraction
	// TrustingPeriod is how long a header stays usable once produced.
	TrustingPeriod time.Duration
	// MaxClockDrift is how far a new header's time may be in the future.
	MaxClockDrift time.Duration
}

// ValidateBasic checks the parameters are usable.
func (p TrustParams) ValidateBasic() error {
	if p.TrustingPeriod <= 0 {
		return errors.New("trusting period must be greater than zero")
	}
	if p.MaxClockDrift < 0 {
		return errors.New("max clock drift can't be negative")
	}
	return ValidateTrustLevel(p.TrustLevel)
}

// CheckTrust decides whether untrusted can be trusted on the basis of
// trusted. It ensures that:
//
//	a) neither block has expired (if so, ErrHeaderExpired is returned)
//	b) untrusted is structurally valid: basic validation, validator set
//	   hashes, strictly higher height, strictly later time, not from the
//	   future, same chain (if not, ErrInvalidHeader is returned)
//	c) trustLevel of trusted.NextValidatorSet signed correctly (if not,
//	   Insufficient is returned with a nil error)
//	d) more than 2/3 of untrusted.ValidatorSet signed the block (if not,
//	   ErrInvalidHeader is returned)
//
// CheckTrust has no side effects.
func CheckTrust(trusted, untrusted *types.LightBlock, params TrustParams, now time.Time) (Verdict, error) {
	if err := params.ValidateBasic(); err != nil {
		return Insufficient, err
	}
	if trusted == nil || trusted.SignedHeader == nil || trusted.Header == nil || trusted.NextValidatorSet == nil {
		return Insufficient, errors.New("trusted light block is incomplete")
	}
	if untrusted == nil || untrusted.SignedHeader == nil || untrusted.Header == nil {
		return Insufficient, ErrInvalidHeader{errors.New("missing signed header")}
	}

	if HeaderExpired(trusted.SignedHeader, params.TrustingPeriod, now) {
		return Insufficient, ErrHeaderExpired{trusted.Height, trusted.Time.Add(params.TrustingPeriod), now}
	}
	if HeaderExpired(untrusted.SignedHeader, params.TrustingPeriod, now) {
		return Insufficient, ErrHeaderExpired{untrusted.Height, untrusted.Time.Add(params.TrustingPeriod), now}
	}

	if err := verifyNewHeaderAndVals(untrusted, trusted, now, params.MaxClockDrift); err != nil {
		return Insufficient, ErrInvalidHeader{err}
	}

	verdict, err := VerifyCommitTrusting(trusted.NextValidatorSet, untrusted.SignedHeader, params.TrustLevel)
	if err != nil || verdict == Insufficient {
		return verdict, err
	}

	// Ensure that +2/3 of new validators signed correctly.
	//
	// NOTE: this should always be the last check because untrusted.ValidatorSet
	// can be intentionally made very large to DOS the light client.
	if err := untrusted.ValidatorSet.VerifyCommitLight(untrusted.ChainID, untrusted.Commit.BlockID,
		untrusted.Height, untrusted.Commit); err != nil {
		return Insufficient, ErrInvalidHeader{err}
	}

	return Sufficient, nil
}

// VerifyCommitTrusting tallies the power of trustedVals behind untrusted's
// commit. It returns Sufficient when Tallied*Denominator >= Total*Numerator
// and Insufficient otherwise. A bad signature or a double vote by a member of
// trustedVals is an ErrInvalidHeader.
func VerifyCommitTrusting(trustedVals *types.ValidatorSet, untrusted *types.SignedHeader,
	trustLevel tmmath.Fraction) (Verdict, error) {
	_, err := trustedVals.VerifyCommitLightTrusting(untrusted.ChainID, untrusted.Commit, trustLevel)
	if err == nil {
		return Sufficient, nil
	}

	var notEnough types.ErrNotEnoughVotingPowerSigned
	if errors.As(err, &notEnough) {
		return Insufficient, nil
	}
	return Insufficient, ErrInvalidHeader{err}
}

func verifyNewHeaderAndVals(
	untrusted *types.LightBlock,
	trusted *types.LightBlock,
	now time.Time,
	maxClockDrift time.Duration) error {

	if err := untrusted.ValidateBasic(trusted.ChainID); err != nil {
		return fmt.Errorf("untrusted.ValidateBasic failed: %w", err)
	}

	if untrusted.Height <= trusted.Height {
		return fmt.Errorf("expected new header height %d to be greater than one of old header %d",
			untrusted.Height,
			trusted.Height)
	}

	if !untrusted.Time.After(trusted.Time) {
		return fmt.Errorf("expected new header time %v to be after old header time %v",
			untrusted.Time,
			trusted.Time)
	}

	if !untrusted.Time.Before(now.Add(maxClockDrift)) {
		return fmt.Errorf("new header has a time from the future %v (now: %v; max clock drift: %v)",
			untrusted.Time,
			now,
			maxClockDrift)
	}

	if !bytes.Equal(untrusted.ValidatorsHash, untrusted.ValidatorSet.Hash()) {
		return fmt.Errorf("expected new header validators (%X) to match those that were supplied (%X) at height %d",
			untrusted.ValidatorsHash,
			untrusted.ValidatorSet.Hash(),
			untrusted.Height,
		)
	}

	return nil
}

// ValidateTrustLevel checks that trustLevel is within the allowed range [1/3,
// 1]. If not, it returns an error. 1/3 is the minimum amount of trust needed
// which does not break the security model.
func ValidateTrustLevel(lvl tmmath.Fraction) error {
	if !lvl.Between(tmmath.Fraction{Numerator: 1, Denominator: 3}, tmmath.Fraction{Numerator: 1, Denominator: 1}) {
		return fmt.Errorf("trustLevel must be within [1/3, 1], given %v", lvl)
	}
	return nil
}

// HeaderExpired return true if the given header expired.
func HeaderExpired(h *types.SignedHeader, trustingPeriod time.Duration, now time.Time) bool {
	expirationTime := h.Time.Add(trustingPeriod)
	return !expirationTime.After(now)
}
