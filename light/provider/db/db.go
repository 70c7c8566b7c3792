// Package db implements a provider that serves light blocks previously
// imported into a key-value database. It lets the verifier work offline from
// a bundle of blocks obtained out of band.
package db

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tendermint/lightcore/light/provider"
	"github.com/tendermint/lightcore/types"
)

const prefixImported = int64(21)

// Provider serves imported light blocks. It is safe for concurrent use.
type Provider struct {
	db      dbm.DB
	chainID string

	mtx    sync.RWMutex
	latest int64
}

var _ provider.Provider = (*Provider)(nil)

// New returns a provider reading blocks for chainID from db.
func New(db dbm.DB, chainID string) (*Provider, error) {
	p := &Provider{db: db, chainID: chainID}

	itr, err := db.ReverseIterator(blockKey(1), append(blockKey(math.MaxInt64), 0x00))
	if err != nil {
		return nil, err
	}
	defer itr.Close()
	if itr.Valid() {
		h, err := parseBlockKey(itr.Key())
		if err != nil {
			return nil, err
		}
		p.latest = h
	}
	return p, itr.Error()
}

func (p *Provider) String() string {
	return fmt.Sprintf("db{%s}", p.chainID)
}

// LightBlock returns the imported block at height.
//
// ErrHeightTooHigh is returned for heights above the latest import,
// ErrLightBlockNotFound for gaps and ErrBadLightBlock if the stored block
// does not decode or is not basically valid for the chain.
func (p *Provider) LightBlock(ctx context.Context, height int64) (*types.LightBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mtx.RLock()
	latest := p.latest
	p.mtx.RUnlock()
	if height > latest {
		return nil, provider.ErrHeightTooHigh
	}

	bz, err := p.db.Get(blockKey(height))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, provider.ErrLightBlockNotFound
	}

	lb, err := types.UnmarshalLightBlock(bz)
	if err != nil {
		return nil, provider.ErrBadLightBlock{Reason: err}
	}
	if err := lb.ValidateBasic(p.chainID); err != nil {
		return nil, provider.ErrBadLightBlock{Reason: err}
	}
	if lb.Height != height {
		return nil, provider.ErrBadLightBlock{
			Reason: fmt.Errorf("expected height %d, got %d", height, lb.Height),
		}
	}
	return lb, nil
}

// Latest returns the highest imported height, 0 if nothing was imported.
func (p *Provider) Latest() int64 {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.latest
}

// Import stores lbs in one batch. Every block must be basically valid for
// the provider's chain.
func (p *Provider) Import(lbs []*types.LightBlock) error {
	b := p.db.NewBatch()
	defer b.Close()

	latest := p.Latest()
	for _, lb := range lbs {
		if err := lb.ValidateBasic(p.chainID); err != nil {
			return fmt.Errorf("light block %d: %w", lb.Height, err)
		}
		bz, err := lb.Marshal()
		if err != nil {
			return err
		}
		if err := b.Set(blockKey(lb.Height), bz); err != nil {
			return err
		}
		if lb.Height > latest {
			latest = lb.Height
		}
	}
	if err := b.WriteSync(); err != nil {
		return err
	}

	p.mtx.Lock()
	if latest > p.latest {
		p.latest = latest
	}
	p.mtx.Unlock()
	return nil
}

func blockKey(height int64) []byte {
	key, err := orderedcode.Append(nil, prefixImported, height)
	if err != nil {
		panic(err)
	}
	return key
}

func parseBlockKey(key []byte) (int64, error) {
	var prefix, height int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &height)
	if err != nil {
		return 0, err
	}
	if len(remaining) != 0 {
		return 0, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixImported {
		return 0, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixImported, prefix)
	}
	return height, nil
}

// MarshalBundle concatenates the wire encodings of lbs, each prefixed by its
// length.
func MarshalBundle(lbs []*types.LightBlock) ([]byte, error) {
	var bz []byte
	for _, lb := range lbs {
		lbBz, err := lb.Marshal()
		if err != nil {
			return nil, err
		}
		bz = protowire.AppendBytes(bz, lbBz)
	}
	return bz, nil
}

// UnmarshalBundle is the inverse of MarshalBundle.
func UnmarshalBundle(bz []byte) ([]*types.LightBlock, error) {
	var lbs []*types.LightBlock
	for len(bz) > 0 {
		lbBz, n := protowire.ConsumeBytes(bz)
		if n < 0 {
			return nil, fmt.Errorf("bundle entry %d: %w", len(lbs), protowire.ParseError(n))
		}
		lb, err := types.UnmarshalLightBlock(lbBz)
		if err != nil {
			return nil, fmt.Errorf("bundle entry %d: %w", len(lbs), err)
		}
		lbs = append(lbs, lb)
		bz = bz[n:]
	}
	return lbs, nil
}
