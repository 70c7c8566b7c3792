package types

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"

	"github.com/tendermint/lightcore/crypto/merkle"
	tmmath "github.com/tendermint/lightcore/libs/math"
)

// ValidatorSet represent a set of *Validator at a given height.
//
// The validators can be fetched by address or index.
// The index is in order of .VotingPower, so the indices are fixed for all
// rounds of a given blockchain height - ie. the validators are sorted by
// their voting power (descending). Secondary index - .Address (ascending).
//
// NOTE: Not goroutine-safe.
// NOTE: All get/set to validators should copy the value for safety.
type ValidatorSet struct {
	Validators []*Validator `json:"validators"`

	// cached (unexported)
	totalVotingPower int64
}

// NewValidatorSet initializes a ValidatorSet by copying over the values from
// `valz`, a list of Validators. The set is sorted by voting power and then
// address. It returns an error if a validator is invalid, an address is
// repeated or the total voting power exceeds MaxTotalVotingPower.
func NewValidatorSet(valz []*Validator) (*ValidatorSet, error) {
	vals := &ValidatorSet{Validators: validatorListCopy(valz)}
	sort.Sort(ValidatorsByVotingPower(vals.Validators))

	if err := vals.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("cannot create validator set: %w", err)
	}
	return vals, nil
}

// ValidateBasic checks every validator, rejects zero or duplicate entries and
// fills the total voting power cache.
func (vals *ValidatorSet) ValidateBasic() error {
	if vals.IsNilOrEmpty() {
		return errors.New("validator set is nil or empty")
	}

	seen := make(map[string]struct{}, len(vals.Validators))
	total := int64(0)
	for idx, val := range vals.Validators {
		if err := val.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid validator #%d: %w", idx, err)
		}
		if val.VotingPower == 0 {
			return fmt.Errorf("validator #%d has zero voting power", idx)
		}
		key := string(val.Address)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate validator %v", val.Address)
		}
		seen[key] = struct{}{}

		var overflow bool
		total, overflow = tmmath.SafeAdd(total, val.VotingPower)
		if overflow || total > MaxTotalVotingPower {
			return fmt.Errorf("total voting power cannot be guarded to not exceed %v", MaxTotalVotingPower)
		}
	}
	vals.totalVotingPower = total

	return nil
}

// IsNilOrEmpty returns true if validator set is nil or empty.
func (vals *ValidatorSet) IsNilOrEmpty() bool {
	return vals == nil || len(vals.Validators) == 0
}

// Makes a copy of the validator list.
func validatorListCopy(valsList []*Validator) []*Validator {
	if valsList == nil {
		return nil
	}
	valsCopy := make([]*Validator, len(valsList))
	for i, val := range valsList {
		valsCopy[i] = val.Copy()
	}
	return valsCopy
}

// Copy each validator into a new ValidatorSet.
func (vals *ValidatorSet) Copy() *ValidatorSet {
	return &ValidatorSet{
		Validators:       validatorListCopy(vals.Validators),
		totalVotingPower: vals.totalVotingPower,
	}
}

// HasAddress returns true if address given is in the validator set, false -
// otherwise.
func (vals *ValidatorSet) HasAddress(address []byte) bool {
	_, val := vals.GetByAddress(address)
	return val != nil
}

// GetByAddress returns an index of the validator with address and validator
// itself (copy) if found. Otherwise, -1 and nil are returned.
func (vals *ValidatorSet) GetByAddress(address []byte) (index int32, val *Validator) {
	for idx, val := range vals.Validators {
		if bytes.Equal(val.Address, address) {
			return int32(idx), val.Copy()
		}
	}
	return -1, nil
}

// Size returns the length of the validator set.
func (vals *ValidatorSet) Size() int {
	return len(vals.Validators)
}

// TotalVotingPower returns the sum of the voting powers of all validators.
// It recomputes the total voting power if required.
func (vals *ValidatorSet) TotalVotingPower() int64 {
	if vals.totalVotingPower == 0 {
		for _, val := range vals.Validators {
			vals.totalVotingPower += val.VotingPower
		}
	}
	return vals.totalVotingPower
}

// Hash returns the Merkle root hash build using validators (as leaves) in the
// set.
func (vals *ValidatorSet) Hash() []byte {
	bzs := make([][]byte, len(vals.Validators))
	for i, val := range vals.Validators {
		bzs[i] = val.Bytes()
	}
	return merkle.HashFromByteSlices(bzs)
}

// VerifyCommitLight verifies +2/3 of the set had signed the given commit.
//
// This method is primarily used by the light client and does not check all
// the signatures. Signatures are checked in commit order and the call
// returns as soon as more than 2/3 of the voting power is proven.
func (vals *ValidatorSet) VerifyCommitLight(chainID string, blockID BlockID,
	height int64, commit *Commit) error {

	if vals.Size() != len(commit.Signatures) {
		return NewErrInvalidCommitSignatures(vals.Size(), len(commit.Signatures))
	}

	// Validate Height and BlockID.
	if height != commit.Height {
		return NewErrInvalidCommitHeight(height, commit.Height)
	}
	if !blockID.Equals(commit.BlockID) {
		return fmt.Errorf("invalid commit -- wrong block ID: want %v, got %v",
			blockID, commit.BlockID)
	}

	talliedVotingPower := int64(0)
	votingPowerNeeded := vals.TotalVotingPower() * 2 / 3
	for idx, commitSig := range commit.Signatures {
		// No need to verify absent or nil votes.
		if !commitSig.ForBlock() {
			continue
		}

		// The vals and commit have a 1-to-1 correspondance.
		// This means we don't need the validator address or to do any lookup.
		val := vals.Validators[idx]
		if !bytes.Equal(val.Address, commitSig.ValidatorAddress) {
			return fmt.Errorf("wrong validator address in commit sig #%d: expected %v, got %v",
				idx, val.Address, commitSig.ValidatorAddress)
		}

		voteSignBytes := commit.VoteSignBytes(chainID, int32(idx))
		if !val.PubKey.VerifySignature(voteSignBytes, commitSig.Signature) {
			return fmt.Errorf("wrong signature (#%d): %X", idx, commitSig.Signature)
		}

		talliedVotingPower += val.VotingPower

		// return as soon as +2/3 of the signatures are verified
		if talliedVotingPower > votingPowerNeeded {
			return nil
		}
	}

	return ErrNotEnoughVotingPowerSigned{Got: talliedVotingPower, Needed: votingPowerNeeded + 1}
}

// TrustTally is the outcome of VerifyCommitLightTrusting.
type TrustTally struct {
	Tallied int64
	Total   int64
}

// Sufficient reports whether the tallied power reaches trustLevel of the
// total, i.e. Tallied * Denominator >= Total * Numerator.
func (t TrustTally) Sufficient(trustLevel tmmath.Fraction) bool {
	if t.Tallied < 0 || t.Total < 0 {
		return false
	}
	lhsHi, lhsLo := bits.Mul64(uint64(t.Tallied), trustLevel.Denominator)
	rhsHi, rhsLo := bits.Mul64(uint64(t.Total), trustLevel.Numerator)
	if lhsHi != rhsHi {
		return lhsHi > rhsHi
	}
	return lhsLo >= rhsLo
}

// neededPower is the smallest power reaching trustLevel of total, rounded up
// and capped at math.MaxInt64. The product is taken in 128 bits so that large
// fractions never overflow.
func neededPower(total int64, trustLevel tmmath.Fraction) int64 {
	if total <= 0 || trustLevel.Denominator == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(total), trustLevel.Numerator)
	if hi >= trustLevel.Denominator {
		return math.MaxInt64
	}
	q, r := bits.Div64(hi, lo, trustLevel.Denominator)
	if r != 0 {
		q++
	}
	if q > math.MaxInt64 || (q == 0 && r != 0) {
		return math.MaxInt64
	}
	return int64(q)
}

// VerifyCommitLightTrusting tallies the voting power of the validators in
// this set that signed the given commit. Validators of the commit that are
// unknown to this set are ignored. A signature from a known validator that
// does not verify, or a second vote from the same validator, is an error.
//
// It returns ErrNotEnoughVotingPowerSigned when the tally does not reach
// trustLevel of the total power. The tally is returned in both cases.
func (vals *ValidatorSet) VerifyCommitLightTrusting(chainID string, commit *Commit,
	trustLevel tmmath.Fraction) (TrustTally, error) {
	// sanity check
	if trustLevel.Denominator == 0 {
		return TrustTally{}, errors.New("trustLevel has zero Denominator")
	}

	var (
		tally    = TrustTally{Total: vals.TotalVotingPower()}
		seenVals = make(map[int32]int, len(commit.Signatures)) // validator index -> commit index
	)

	// Safely calculate voting power needed.
	totalVotingPowerMulByNumerator, overflow := tmmath.SafeMul(tally.Total, int64(trustLevel.Numerator))
	if overflow {
		return TrustTally{}, errors.New("int64 overflow while calculating voting power needed. please provide" +
			" smaller trustLevel numerator")
	}

	for idx, commitSig := range commit.Signatures {
		// No need to verify absent or nil votes.
		if !commitSig.ForBlock() {
			continue
		}

		// We don't know the validators that committed this block, so we have to
		// check for each vote if its validator is already known.
		valIdx, val := vals.GetByAddress(commitSig.ValidatorAddress)
		if val == nil {
			continue
		}

		// check for double vote of validator on the same commit
		if firstIndex, ok := seenVals[valIdx]; ok {
			return tally, fmt.Errorf("double vote from %v (%d and %d)", val, firstIndex, idx)
		}
		seenVals[valIdx] = idx

		voteSignBytes := commit.VoteSignBytes(chainID, int32(idx))
		if !val.PubKey.VerifySignature(voteSignBytes, commitSig.Signature) {
			return tally, fmt.Errorf("wrong signature (#%d): %X", idx, commitSig.Signature)
		}

		tally.Tallied += val.VotingPower
	}

	if !tally.Sufficient(trustLevel) {
		return tally, ErrNotEnoughVotingPowerSigned{Got: tally.Tallied, Needed: neededPower(tally.Total, trustLevel)}
	}
	return tally, nil
}

// String returns a string representation of ValidatorSet.
//
// See StringIndented.
func (vals *ValidatorSet) String() string {
	return vals.StringIndented("")
}

// StringIndented returns an intended String.
//
// See Validator#String.
func (vals *ValidatorSet) StringIndented(indent string) string {
	if vals == nil {
		return "nil-ValidatorSet"
	}
	var valStrings []string
	for _, val := range vals.Validators {
		valStrings = append(valStrings, val.String())
	}
	return fmt.Sprintf(`ValidatorSet{
%s  Validators:
%s    %v
%s}`,
		indent,
		indent, strings.Join(valStrings, "\n"+indent+"    "),
		indent)
}
