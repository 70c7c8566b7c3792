package types_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightcore/crypto"
	"github.com/tendermint/lightcore/internal/test/factory"
	"github.com/tendermint/lightcore/types"
)

const chainID = "test-chain"

var bTime = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func makeHeader(t *testing.T) *types.Header {
	t.Helper()
	vals := factory.GenPrivKeys(3).ToValidators(10)
	return factory.MakeHeader(chainID, 5, bTime, vals, vals, crypto.Checksum([]byte("app")))
}

func TestHeaderHash(t *testing.T) {
	h := makeHeader(t)
	hash := h.Hash()
	require.Len(t, hash, crypto.HashSize)
	assert.Equal(t, hash, makeHeader(t).Hash(), "hash must be deterministic")

	testCases := []struct {
		name     string
		malleate func(h *types.Header)
	}{
		{"chain id", func(h *types.Header) { h.ChainID = "other" }},
		{"height", func(h *types.Header) { h.Height++ }},
		{"time", func(h *types.Header) { h.Time = h.Time.Add(time.Second) }},
		{"last block id", func(h *types.Header) { h.LastBlockID = types.BlockID{Hash: crypto.Checksum([]byte("x"))} }},
		{"next validators", func(h *types.Header) { h.NextValidatorsHash = crypto.Checksum([]byte("x")) }},
		{"app hash", func(h *types.Header) { h.AppHash = nil }},
		{"proposer", func(h *types.Header) { h.ProposerAddress = crypto.AddressHash([]byte("x")) }},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := makeHeader(t)
			tc.malleate(h)
			assert.NotEqual(t, hash, h.Hash())
		})
	}
}

func TestHeaderHashNil(t *testing.T) {
	var h *types.Header
	assert.Nil(t, h.Hash())
	assert.Nil(t, (&types.Header{ChainID: chainID, Height: 1}).Hash())
}

func TestHeaderValidateBasic(t *testing.T) {
	testCases := []struct {
		name      string
		malleate  func(h *types.Header)
		expectErr bool
	}{
		{"valid", func(h *types.Header) {}, false},
		{"long chain id", func(h *types.Header) { h.ChainID = strings.Repeat("a", types.MaxChainIDLen+1) }, true},
		{"zero height", func(h *types.Header) { h.Height = 0 }, true},
		{"negative height", func(h *types.Header) { h.Height = -1 }, true},
		{"short validators hash", func(h *types.Header) { h.ValidatorsHash = []byte{1} }, true},
		{"short next validators hash", func(h *types.Header) { h.NextValidatorsHash = []byte{1} }, true},
		{"bad last block id", func(h *types.Header) { h.LastBlockID = types.BlockID{Hash: []byte{1}} }, true},
		{"bad proposer", func(h *types.Header) { h.ProposerAddress = []byte{1} }, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := makeHeader(t)
			tc.malleate(h)
			err := h.ValidateBasic()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignedHeaderValidateBasic(t *testing.T) {
	keys := factory.GenPrivKeys(3)
	vals := keys.ToValidators(10)

	testCases := []struct {
		name      string
		malleate  func(sh *types.SignedHeader)
		chainID   string
		expectErr bool
	}{
		{"valid", func(sh *types.SignedHeader) {}, chainID, false},
		{"wrong chain", func(sh *types.SignedHeader) {}, "other-chain", true},
		{"missing header", func(sh *types.SignedHeader) { sh.Header = nil }, chainID, true},
		{"missing commit", func(sh *types.SignedHeader) { sh.Commit = nil }, chainID, true},
		{"height mismatch", func(sh *types.SignedHeader) { sh.Commit.Height++ }, chainID, true},
		{"block id mismatch", func(sh *types.SignedHeader) {
			sh.Commit.BlockID = types.BlockID{Hash: crypto.Checksum([]byte("x"))}
		}, chainID, true},
		{"no signatures", func(sh *types.SignedHeader) { sh.Commit.Signatures = nil }, chainID, true},
		{"absent with signature", func(sh *types.SignedHeader) {
			sh.Commit.Signatures[0].BlockIDFlag = types.BlockIDFlagAbsent
		}, chainID, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			lb := factory.GenLightBlock(chainID, 3, bTime, vals, vals, keys)
			tc.malleate(lb.SignedHeader)
			err := lb.SignedHeader.ValidateBasic(tc.chainID)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVoteSignBytesDiffer(t *testing.T) {
	id := types.BlockID{Hash: crypto.Checksum([]byte("block"))}
	base := types.VoteSignBytes(chainID, 1, 0, id, bTime)

	assert.Equal(t, base, types.VoteSignBytes(chainID, 1, 0, id, bTime))
	assert.NotEqual(t, base, types.VoteSignBytes("other", 1, 0, id, bTime))
	assert.NotEqual(t, base, types.VoteSignBytes(chainID, 2, 0, id, bTime))
	assert.NotEqual(t, base, types.VoteSignBytes(chainID, 1, 1, id, bTime))
	assert.NotEqual(t, base, types.VoteSignBytes(chainID, 1, 0, types.BlockID{}, bTime))
	assert.NotEqual(t, base, types.VoteSignBytes(chainID, 1, 0, id, bTime.Add(time.Nanosecond)))
}
