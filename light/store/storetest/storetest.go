// Package storetest holds the behaviour every store.Store implementation
// must have. Backends call Run from their own tests.
package storetest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightcore/internal/test/factory"
	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

const chainID = "store-test"

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	testCases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Empty", testEmpty},
		{"UpdateAndGet", testUpdateAndGet},
		{"UpdateChangesStatus", testUpdateChangesStatus},
		{"HighestLowest", testHighestLowest},
		{"LightBlockBefore", testLightBlockBefore},
		{"All", testAll},
		{"Delete", testDelete},
		{"UpdateRejectsBadInput", testUpdateRejectsBadInput},
		{"Concurrent", testConcurrent},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

var (
	keys = factory.GenPrivKeys(3)
	vals = keys.ToValidators(10)
)

// Block returns a signed light block at height.
func Block(height int64) *types.LightBlock {
	bTime := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(height) * time.Minute)
	return factory.GenLightBlock(chainID, height, bTime, vals, vals, keys)
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	require.True(t, errors.Is(err, store.ErrLightBlockNotFound), "expected not found, got %v", err)
}

func requireSameBlock(t *testing.T, expected, actual *types.LightBlock) {
	t.Helper()
	require.NotNil(t, actual)
	require.Equal(t, expected.Height, actual.Height)
	require.Equal(t, expected.Hash(), actual.Hash())
}

func heights(lbs []*types.LightBlock) []int64 {
	res := make([]int64, len(lbs))
	for i, lb := range lbs {
		res[i] = lb.Height
	}
	return res
}

func testEmpty(t *testing.T, s store.Store) {
	assert.Equal(t, 0, s.Size())
	for _, st := range store.Statuses {
		_, err := s.LightBlock(1, st)
		requireNotFound(t, err)
		_, err = s.Highest(st)
		requireNotFound(t, err)
		_, err = s.Lowest(st)
		requireNotFound(t, err)
		_, err = s.LightBlockBefore(10, st)
		requireNotFound(t, err)
		all, err := s.All(st)
		require.NoError(t, err)
		assert.Empty(t, all)
	}
	_, err := s.Status(1)
	requireNotFound(t, err)
}

func testUpdateAndGet(t *testing.T, s store.Store) {
	lb := Block(5)
	require.NoError(t, s.Update(lb, store.StatusTrusted))

	got, err := s.LightBlock(5, store.StatusTrusted)
	require.NoError(t, err)
	requireSameBlock(t, lb, got)

	for _, st := range []store.Status{store.StatusUnverified, store.StatusVerified, store.StatusFailed} {
		_, err = s.LightBlock(5, st)
		requireNotFound(t, err)
	}

	st, err := s.Status(5)
	require.NoError(t, err)
	assert.Equal(t, store.StatusTrusted, st)
	assert.Equal(t, 1, s.Size())
}

func testUpdateChangesStatus(t *testing.T, s store.Store) {
	lb := Block(7)
	require.NoError(t, s.Update(lb, store.StatusUnverified))
	require.NoError(t, s.Update(lb, store.StatusVerified))

	_, err := s.LightBlock(7, store.StatusUnverified)
	requireNotFound(t, err)
	got, err := s.LightBlock(7, store.StatusVerified)
	require.NoError(t, err)
	requireSameBlock(t, lb, got)

	unverified, err := s.All(store.StatusUnverified)
	require.NoError(t, err)
	assert.Empty(t, unverified)
	_, err = s.Highest(store.StatusUnverified)
	requireNotFound(t, err)

	assert.Equal(t, 1, s.Size())

	// transitions are not policed
	require.NoError(t, s.Update(lb, store.StatusFailed))
	st, err := s.Status(7)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, st)
}

func testHighestLowest(t *testing.T, s store.Store) {
	for _, h := range []int64{30, 10, 20} {
		require.NoError(t, s.Update(Block(h), store.StatusVerified))
	}
	require.NoError(t, s.Update(Block(40), store.StatusUnverified))
	require.NoError(t, s.Update(Block(5), store.StatusTrusted))

	hi, err := s.Highest(store.StatusVerified)
	require.NoError(t, err)
	assert.EqualValues(t, 30, hi.Height)

	lo, err := s.Lowest(store.StatusVerified)
	require.NoError(t, err)
	assert.EqualValues(t, 10, lo.Height)

	hi, err = s.Highest(store.StatusUnverified)
	require.NoError(t, err)
	assert.EqualValues(t, 40, hi.Height)

	lo, err = s.Lowest(store.StatusTrusted)
	require.NoError(t, err)
	assert.EqualValues(t, 5, lo.Height)

	_, err = s.Highest(store.StatusFailed)
	requireNotFound(t, err)
}

func testLightBlockBefore(t *testing.T, s store.Store) {
	for _, h := range []int64{1, 10, 20} {
		require.NoError(t, s.Update(Block(h), store.StatusVerified))
	}
	require.NoError(t, s.Update(Block(15), store.StatusUnverified))

	testCases := []struct {
		height   int64
		expected int64 // 0 = not found
	}{
		{1, 0},
		{2, 1},
		{10, 1},
		{11, 10},
		{16, 10},
		{20, 10},
		{100, 20},
	}
	for _, tc := range testCases {
		lb, err := s.LightBlockBefore(tc.height, store.StatusVerified)
		if tc.expected == 0 {
			requireNotFound(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.expected, lb.Height, "before %d", tc.height)
	}

	lb, err := s.LightBlockBefore(100, store.StatusUnverified)
	require.NoError(t, err)
	assert.EqualValues(t, 15, lb.Height)
}

func testAll(t *testing.T, s store.Store) {
	for _, h := range []int64{9, 3, 6, 12} {
		require.NoError(t, s.Update(Block(h), store.StatusVerified))
	}
	require.NoError(t, s.Update(Block(4), store.StatusFailed))

	all, err := s.All(store.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 6, 9, 12}, heights(all))

	failed, err := s.All(store.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, heights(failed))
	assert.Equal(t, 5, s.Size())
}

func testDelete(t *testing.T, s store.Store) {
	require.NoError(t, s.Update(Block(2), store.StatusVerified))
	require.NoError(t, s.Update(Block(3), store.StatusVerified))

	require.NoError(t, s.Delete(2))
	_, err := s.LightBlock(2, store.StatusVerified)
	requireNotFound(t, err)
	_, err = s.Status(2)
	requireNotFound(t, err)
	assert.Equal(t, 1, s.Size())

	// deleting a missing height is a no-op
	require.NoError(t, s.Delete(2))
	require.NoError(t, s.Delete(99))
	assert.Equal(t, 1, s.Size())

	lo, err := s.Lowest(store.StatusVerified)
	require.NoError(t, err)
	assert.EqualValues(t, 3, lo.Height)
}

func testUpdateRejectsBadInput(t *testing.T, s store.Store) {
	assert.Error(t, s.Update(nil, store.StatusVerified))
	assert.Error(t, s.Update(&types.LightBlock{}, store.StatusVerified))
	assert.Error(t, s.Update(Block(1), store.Status(0)))
	assert.Error(t, s.Update(Block(1), store.Status(42)))
	assert.Equal(t, 0, s.Size())
}

func testConcurrent(t *testing.T, s store.Store) {
	blocks := make([]*types.LightBlock, 20)
	for i := range blocks {
		blocks[i] = Block(int64(i + 1))
	}

	var wg sync.WaitGroup
	for _, lb := range blocks {
		wg.Add(1)
		go func(lb *types.LightBlock) {
			defer wg.Done()
			assert.NoError(t, s.Update(lb, store.StatusUnverified))
			assert.NoError(t, s.Update(lb, store.StatusVerified))
			_, err := s.Highest(store.StatusVerified)
			assert.NoError(t, err)
		}(lb)
	}
	wg.Wait()

	assert.Equal(t, len(blocks), s.Size())
	all, err := s.All(store.StatusVerified)
	require.NoError(t, err)
	assert.Len(t, all, len(blocks))
}
