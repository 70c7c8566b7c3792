package factory

import (
	"bytes"
	"time"

	"github.com/tendermint/lightcore/crypto"
	"github.com/tendermint/lightcore/types"
)

// MakeCommit produces a commit for the header where every member of valSet
// whose key is among signers votes for the block. Other members are absent.
func MakeCommit(header *types.Header, valSet *types.ValidatorSet, signers []crypto.PrivKey) *types.Commit {
	blockID := types.BlockID{Hash: header.Hash()}
	commit := &types.Commit{
		Height:     header.Height,
		Round:      1,
		BlockID:    blockID,
		Signatures: make([]types.CommitSig, valSet.Size()),
	}

	for i, val := range valSet.Validators {
		key := findKey(signers, val.Address)
		if key == nil {
			commit.Signatures[i] = types.NewCommitSigAbsent()
			continue
		}
		commit.Signatures[i] = types.CommitSig{
			BlockIDFlag:      types.BlockIDFlagCommit,
			ValidatorAddress: val.Address,
			Timestamp:        header.Time,
		}
		sig, err := key.Sign(commit.VoteSignBytes(header.ChainID, int32(i)))
		if err != nil {
			panic(err)
		}
		commit.Signatures[i].Signature = sig
	}

	return commit
}

func findKey(keys []crypto.PrivKey, addr crypto.Address) crypto.PrivKey {
	for _, k := range keys {
		if bytes.Equal(k.PubKey().Address(), addr) {
			return k
		}
	}
	return nil
}

// MakeHeader returns a header for the given height that commits to valset
// and nextValset. The first validator is the proposer.
func MakeHeader(chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, appHash []byte) *types.Header {
	return &types.Header{
		ChainID:            chainID,
		Height:             height,
		Time:               bTime,
		ValidatorsHash:     valset.Hash(),
		NextValidatorsHash: nextValset.Hash(),
		AppHash:            appHash,
		ProposerAddress:    valset.Validators[0].Address,
	}
}

// GenLightBlock builds a light block at height signed by signers.
func GenLightBlock(chainID string, height int64, bTime time.Time,
	valset, nextValset *types.ValidatorSet, signers []crypto.PrivKey) *types.LightBlock {
	header := MakeHeader(chainID, height, bTime, valset, nextValset, crypto.Checksum([]byte("app")))
	return &types.LightBlock{
		SignedHeader: &types.SignedHeader{
			Header: header,
			Commit: MakeCommit(header, valset, signers),
		},
		ValidatorSet:     valset,
		NextValidatorSet: nextValset,
	}
}
