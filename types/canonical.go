package types

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	tmtime "github.com/tendermint/lightcore/libs/time"
)

// PrecommitType is the signed message type of votes carried in a Commit.
const PrecommitType = 2

// Canonical vote field numbers.
const (
	canonicalVoteTypeField      protowire.Number = 1
	canonicalVoteHeightField    protowire.Number = 2
	canonicalVoteRoundField     protowire.Number = 3
	canonicalVoteBlockIDField   protowire.Number = 4
	canonicalVoteTimestampField protowire.Number = 5
	canonicalVoteChainIDField   protowire.Number = 6

	blockIDHashField protowire.Number = 1
)

// VoteSignBytes returns the length-prefixed canonical encoding of a
// precommit which is the message a validator signs.
func VoteSignBytes(chainID string, height int64, round int32, blockID BlockID, ts time.Time) []byte {
	var bz []byte
	bz = protowire.AppendTag(bz, canonicalVoteTypeField, protowire.VarintType)
	bz = protowire.AppendVarint(bz, PrecommitType)
	if height != 0 {
		bz = protowire.AppendTag(bz, canonicalVoteHeightField, protowire.Fixed64Type)
		bz = protowire.AppendFixed64(bz, uint64(height))
	}
	if round != 0 {
		bz = protowire.AppendTag(bz, canonicalVoteRoundField, protowire.Fixed64Type)
		bz = protowire.AppendFixed64(bz, uint64(round))
	}
	if !blockID.IsZero() {
		bz = protowire.AppendTag(bz, canonicalVoteBlockIDField, protowire.BytesType)
		bz = protowire.AppendBytes(bz, encodeBlockID(blockID))
	}
	bz = protowire.AppendTag(bz, canonicalVoteTimestampField, protowire.BytesType)
	bz = protowire.AppendBytes(bz, encodeTimestamp(ts))
	if chainID != "" {
		bz = protowire.AppendTag(bz, canonicalVoteChainIDField, protowire.BytesType)
		bz = protowire.AppendString(bz, chainID)
	}

	return protowire.AppendBytes(nil, bz)
}

func encodeBlockID(blockID BlockID) []byte {
	if blockID.IsZero() {
		return nil
	}
	var bz []byte
	bz = protowire.AppendTag(bz, blockIDHashField, protowire.BytesType)
	return protowire.AppendBytes(bz, blockID.Hash)
}

func encodeTimestamp(t time.Time) []byte {
	return mustMarshal(timestamppb.New(tmtime.Canonical(t)))
}

// cdcEncodeString returns nil if the input is nil, otherwise returns
// proto.Marshal(wrapperspb.String(item))
func cdcEncodeString(item string) []byte {
	if item == "" {
		return nil
	}
	return mustMarshal(wrapperspb.String(item))
}

// cdcEncodeInt64 returns nil if the input is zero, otherwise returns
// proto.Marshal(wrapperspb.Int64(item))
func cdcEncodeInt64(item int64) []byte {
	if item == 0 {
		return nil
	}
	return mustMarshal(wrapperspb.Int64(item))
}

// cdcEncodeBytes returns nil if the input is empty, otherwise returns
// proto.Marshal(wrapperspb.Bytes(item))
func cdcEncodeBytes(item []byte) []byte {
	if len(item) == 0 {
		return nil
	}
	return mustMarshal(wrapperspb.Bytes(item))
}

func mustMarshal(m proto.Message) []byte {
	bz, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		panic(err)
	}
	return bz
}
