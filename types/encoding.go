package types

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// The wire format of a LightBlock is protobuf. Field numbers per message:
//
//	LightBlock   {1: SignedHeader, 2: ValidatorSet, 3: NextValidatorSet}
//	SignedHeader {1: Header, 2: Commit}
//	Header       {1: chain_id, 2: height, 3: time, 4: last_block_id,
//	              5: validators_hash, 6: next_validators_hash, 7: app_hash,
//	              8: proposer_address}
//	BlockID      {1: hash}
//	Commit       {1: height, 2: round, 3: block_id, 4: repeated signatures}
//	CommitSig    {1: block_id_flag, 2: validator_address, 3: timestamp, 4: signature}
//	ValidatorSet {1: repeated validators}
//	Validator    {1: address, 2: pub_key, 3: voting_power}
//
// Unknown fields are skipped on decode.

// Marshal encodes the light block in its protobuf wire format.
func (lb *LightBlock) Marshal() ([]byte, error) {
	if lb == nil {
		return nil, errors.New("nil light block")
	}
	var bz []byte
	if lb.SignedHeader != nil {
		bz = appendMessage(bz, 1, encodeSignedHeader(lb.SignedHeader))
	}
	if lb.ValidatorSet != nil {
		bz = appendMessage(bz, 2, encodeValidatorSet(lb.ValidatorSet))
	}
	if lb.NextValidatorSet != nil {
		bz = appendMessage(bz, 3, encodeValidatorSet(lb.NextValidatorSet))
	}
	return bz, nil
}

// UnmarshalLightBlock decodes a light block from its protobuf wire format.
// It does not validate the result; call ValidateBasic for that.
func UnmarshalLightBlock(bz []byte) (*LightBlock, error) {
	lb := new(LightBlock)
	err := consumeFields(bz, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case 1:
			lb.SignedHeader, err = decodeSignedHeader(v)
		case 2:
			lb.ValidatorSet, err = decodeValidatorSet(v)
		case 3:
			lb.NextValidatorSet, err = decodeValidatorSet(v)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("light block: %w", err)
	}
	return lb, nil
}

func encodeSignedHeader(sh *SignedHeader) []byte {
	var bz []byte
	if sh.Header != nil {
		bz = appendMessage(bz, 1, encodeHeader(sh.Header))
	}
	if sh.Commit != nil {
		bz = appendMessage(bz, 2, encodeCommit(sh.Commit))
	}
	return bz
}

func decodeSignedHeader(bz []byte) (*SignedHeader, error) {
	sh := new(SignedHeader)
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case 1:
			sh.Header, err = decodeHeader(v)
		case 2:
			sh.Commit, err = decodeCommit(v)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("signed header: %w", err)
	}
	return sh, nil
}

func encodeHeader(h *Header) []byte {
	var bz []byte
	bz = appendString(bz, 1, h.ChainID)
	bz = appendVarint(bz, 2, uint64(h.Height))
	bz = appendMessage(bz, 3, encodeTime(h.Time))
	bz = appendMessage(bz, 4, encodeBlockID(h.LastBlockID))
	bz = appendBytes(bz, 5, h.ValidatorsHash)
	bz = appendBytes(bz, 6, h.NextValidatorsHash)
	bz = appendBytes(bz, 7, h.AppHash)
	bz = appendBytes(bz, 8, h.ProposerAddress)
	return bz
}

func decodeHeader(bz []byte) (*Header, error) {
	h := new(Header)
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		var err error
		switch num {
		case 1:
			h.ChainID = string(v)
		case 2:
			h.Height = int64(x)
		case 3:
			h.Time, err = decodeTime(v)
		case 4:
			h.LastBlockID, err = decodeBlockID(v)
		case 5:
			h.ValidatorsHash = cloneBytes(v)
		case 6:
			h.NextValidatorsHash = cloneBytes(v)
		case 7:
			h.AppHash = cloneBytes(v)
		case 8:
			h.ProposerAddress = cloneBytes(v)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func decodeBlockID(bz []byte) (BlockID, error) {
	var id BlockID
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		if num == blockIDHashField {
			id.Hash = cloneBytes(v)
		}
		return nil
	})
	return id, err
}

func encodeCommit(c *Commit) []byte {
	var bz []byte
	bz = appendVarint(bz, 1, uint64(c.Height))
	bz = appendVarint(bz, 2, uint64(c.Round))
	bz = appendMessage(bz, 3, encodeBlockID(c.BlockID))
	for _, cs := range c.Signatures {
		bz = protowire.AppendTag(bz, 4, protowire.BytesType)
		bz = protowire.AppendBytes(bz, encodeCommitSig(cs))
	}
	return bz
}

func decodeCommit(bz []byte) (*Commit, error) {
	c := new(Commit)
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		switch num {
		case 1:
			c.Height = int64(x)
		case 2:
			c.Round = int32(x)
		case 3:
			id, err := decodeBlockID(v)
			if err != nil {
				return err
			}
			c.BlockID = id
		case 4:
			cs, err := decodeCommitSig(v)
			if err != nil {
				return err
			}
			c.Signatures = append(c.Signatures, cs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func encodeCommitSig(cs CommitSig) []byte {
	var bz []byte
	bz = appendVarint(bz, 1, uint64(cs.BlockIDFlag))
	bz = appendBytes(bz, 2, cs.ValidatorAddress)
	if !cs.Timestamp.IsZero() {
		bz = appendMessage(bz, 3, encodeTime(cs.Timestamp))
	}
	bz = appendBytes(bz, 4, cs.Signature)
	return bz
}

func decodeCommitSig(bz []byte) (CommitSig, error) {
	var cs CommitSig
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		var err error
		switch num {
		case 1:
			cs.BlockIDFlag = BlockIDFlag(x)
		case 2:
			cs.ValidatorAddress = cloneBytes(v)
		case 3:
			cs.Timestamp, err = decodeTime(v)
		case 4:
			cs.Signature = cloneBytes(v)
		}
		return err
	})
	return cs, err
}

func encodeValidatorSet(vals *ValidatorSet) []byte {
	var bz []byte
	for _, val := range vals.Validators {
		bz = protowire.AppendTag(bz, 1, protowire.BytesType)
		bz = protowire.AppendBytes(bz, encodeValidator(val))
	}
	return bz
}

func decodeValidatorSet(bz []byte) (*ValidatorSet, error) {
	vals := new(ValidatorSet)
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, _ uint64) error {
		if num != 1 {
			return nil
		}
		val, err := decodeValidator(v)
		if err != nil {
			return err
		}
		vals.Validators = append(vals.Validators, val)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("validator set: %w", err)
	}
	vals.TotalVotingPower()
	return vals, nil
}

func encodeValidator(val *Validator) []byte {
	var bz []byte
	bz = appendBytes(bz, 1, val.Address)
	if val.PubKey != nil {
		bz = appendMessage(bz, 2, encodePubKey(val.PubKey))
	}
	bz = appendVarint(bz, 3, uint64(val.VotingPower))
	return bz
}

func decodeValidator(bz []byte) (*Validator, error) {
	val := new(Validator)
	err := consumeFields(bz, func(num protowire.Number, _ protowire.Type, v []byte, x uint64) error {
		var err error
		switch num {
		case 1:
			val.Address = cloneBytes(v)
		case 2:
			val.PubKey, err = decodePubKey(v)
		case 3:
			val.VotingPower = int64(x)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}
	return val, nil
}

func encodeTime(t time.Time) []byte {
	return mustMarshal(timestamppb.New(t))
}

func decodeTime(bz []byte) (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(bz, &ts); err != nil {
		return time.Time{}, err
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}

//-----------------------------------------------------------------------------
// protowire helpers

func appendMessage(bz []byte, num protowire.Number, msg []byte) []byte {
	if msg == nil {
		return bz
	}
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendBytes(bz, msg)
}

func appendBytes(bz []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return bz
	}
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendBytes(bz, v)
}

func appendString(bz []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return bz
	}
	bz = protowire.AppendTag(bz, num, protowire.BytesType)
	return protowire.AppendString(bz, v)
}

func appendVarint(bz []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return bz
	}
	bz = protowire.AppendTag(bz, num, protowire.VarintType)
	return protowire.AppendVarint(bz, v)
}

// consumeFields walks the fields of a message. Length-delimited values are
// passed as v, varints as x. Other wire types are skipped.
func consumeFields(bz []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return protowire.ParseError(n)
		}
		bz = bz[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(bz)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			bz = bz[m:]
		case protowire.VarintType:
			x, m := protowire.ConsumeVarint(bz)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			if err := fn(num, typ, nil, x); err != nil {
				return err
			}
			bz = bz[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, bz)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
			bz = bz[m:]
		}
	}
	return nil
}

func cloneBytes(bz []byte) []byte {
	if len(bz) == 0 {
		return nil
	}
	return append([]byte(nil), bz...)
}
