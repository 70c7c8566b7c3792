package types

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tendermint/lightcore/crypto"
	"github.com/tendermint/lightcore/crypto/ed25519"
)

// MaxTotalVotingPower - the maximum allowed total voting power.
// It needs to be sufficiently small to, in all cases, multiply it by a
// trust level numerator without overflowing int64.
const MaxTotalVotingPower = int64(1) << 60

// Validator is a member of a validator set. Only the fields that a light
// client needs are kept.
// NOTE: changes here should be duplicated in Validator.Bytes().
type Validator struct {
	Address     crypto.Address `json:"address"`
	PubKey      crypto.PubKey  `json:"pub_key"`
	VotingPower int64          `json:"voting_power"`
}

// NewValidator returns a new validator with the given pubkey and voting power.
func NewValidator(pubKey crypto.PubKey, votingPower int64) *Validator {
	return &Validator{
		Address:     pubKey.Address(),
		PubKey:      pubKey,
		VotingPower: votingPower,
	}
}

// ValidateBasic performs basic validation.
func (v *Validator) ValidateBasic() error {
	if v == nil {
		return errors.New("nil validator")
	}
	if v.PubKey == nil {
		return errors.New("validator does not have a public key")
	}

	if v.VotingPower < 0 {
		return errors.New("validator has negative voting power")
	}

	if len(v.Address) != crypto.AddressSize {
		return fmt.Errorf("validator address is the wrong size: %v", v.Address)
	}
	if !bytes.Equal(v.Address, v.PubKey.Address()) {
		return fmt.Errorf("validator address %v does not match its public key", v.Address)
	}

	return nil
}

// Copy creates a new copy of the validator so we can mutate it.
func (v *Validator) Copy() *Validator {
	vCopy := *v
	return &vCopy
}

// String returns a string representation of String.
//
// 1. address
// 2. public key
// 3. voting power
func (v *Validator) String() string {
	if v == nil {
		return "nil-Validator"
	}
	return fmt.Sprintf("Validator{%v %v VP:%v}",
		v.Address,
		v.PubKey,
		v.VotingPower)
}

// Bytes computes the unique encoding of a validator with a given voting power.
// These are the bytes that gets hashed in consensus. It excludes address
// as its redundant with the pubkey.
func (v *Validator) Bytes() []byte {
	var pk []byte
	if v.PubKey != nil {
		pk = encodePubKey(v.PubKey)
	}

	var bz []byte
	bz = protowire.AppendTag(bz, validatorPubKeyField, protowire.BytesType)
	bz = protowire.AppendBytes(bz, pk)
	if v.VotingPower != 0 {
		bz = protowire.AppendTag(bz, validatorPowerField, protowire.VarintType)
		bz = protowire.AppendVarint(bz, uint64(v.VotingPower))
	}
	return bz
}

const (
	validatorPubKeyField protowire.Number = 1
	validatorPowerField  protowire.Number = 2

	pubKeyEd25519Field protowire.Number = 1
)

// encodePubKey encodes a public key as the PublicKey oneof message.
func encodePubKey(pk crypto.PubKey) []byte {
	switch pk.Type() {
	case ed25519.KeyType:
		bz := protowire.AppendTag(nil, pubKeyEd25519Field, protowire.BytesType)
		return protowire.AppendBytes(bz, pk.Bytes())
	default:
		panic(fmt.Sprintf("unsupported key type %q", pk.Type()))
	}
}

// decodePubKey is the inverse of encodePubKey.
func decodePubKey(bz []byte) (crypto.PubKey, error) {
	num, typ, n := protowire.ConsumeTag(bz)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	if num != pubKeyEd25519Field || typ != protowire.BytesType {
		return nil, fmt.Errorf("unsupported public key field %d", num)
	}
	key, m := protowire.ConsumeBytes(bz[n:])
	if m < 0 {
		return nil, protowire.ParseError(m)
	}
	return ed25519.PubKeyFromBytes(key)
}

//----------------------------------------
// Sort validators by voting power, then by address.

// ValidatorsByVotingPower implements sort.Interface for []*Validator based on
// the VotingPower and Address fields.
type ValidatorsByVotingPower []*Validator

func (valz ValidatorsByVotingPower) Len() int { return len(valz) }

func (valz ValidatorsByVotingPower) Less(i, j int) bool {
	if valz[i].VotingPower == valz[j].VotingPower {
		return bytes.Compare(valz[i].Address, valz[j].Address) == -1
	}
	return valz[i].VotingPower > valz[j].VotingPower
}

func (valz ValidatorsByVotingPower) Swap(i, j int) {
	valz[i], valz[j] = valz[j], valz[i]
}
