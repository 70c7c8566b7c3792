package light_test

import (
	"time"

	"github.com/tendermint/lightcore/internal/test/factory"
	"github.com/tendermint/lightcore/types"
)

const chainID = "light-test"

var (
	bTime          = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	trustingPeriod = 24 * time.Hour
	now            = bTime.Add(1000 * time.Minute)

	keys = factory.GenPrivKeys(10)

	// Six validators of equal power. valsB keeps five of valsA, valsC keeps
	// four of valsB but only three of valsA.
	valsA = keys.Subset(0, 1, 2, 3, 4, 5).ToValidators(10)
	valsB = keys.Subset(0, 1, 2, 3, 4, 6).ToValidators(10)
	valsC = keys.Subset(0, 1, 4, 6, 7, 8).ToValidators(10)
)

func blockTime(height int64) time.Time {
	return bTime.Add(time.Duration(height) * time.Minute)
}

// genBlock returns a block at height signed by every member of vals.
func genBlock(height int64, vals, next *types.ValidatorSet) *types.LightBlock {
	return factory.GenLightBlock(chainID, height, blockTime(height), vals, next, keys)
}

// bisectionChain is a chain where 200 cannot be reached from 100 directly
// but can through 150.
func bisectionChain() map[int64]*types.LightBlock {
	return map[int64]*types.LightBlock{
		100: genBlock(100, valsA, valsA),
		150: genBlock(150, valsB, valsB),
		200: genBlock(200, valsC, valsC),
	}
}

// rotatingChain returns blocks 1..n where the three member validator set
// shifts by one key per height, so trust reaches at most two heights ahead.
func rotatingChain(n int64) map[int64]*types.LightBlock {
	pool := factory.GenPrivKeys(int(n) + 4)
	window := func(h int64) *types.ValidatorSet {
		return factory.PrivKeys(pool[h : h+3]).ToValidators(10)
	}
	blocks := make(map[int64]*types.LightBlock, n)
	for h := int64(1); h <= n; h++ {
		blocks[h] = factory.GenLightBlock(chainID, h, blockTime(h), window(h), window(h+1), pool)
	}
	return blocks
}
