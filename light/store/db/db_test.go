package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/light/store/storetest"
)

func TestDBStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New(dbm.NewMemDB(), "TestDBStore")
	})
}

func TestDBStoreGoLevelDB(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := dbm.NewGoLevelDB("light", t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return New(db, "")
	})
}

func TestDBStoreSizePersists(t *testing.T) {
	db := dbm.NewMemDB()
	s := New(db, "persist")
	require.NoError(t, s.Update(storetest.Block(1), store.StatusTrusted))
	require.NoError(t, s.Update(storetest.Block(2), store.StatusUnverified))
	require.NoError(t, s.Update(storetest.Block(2), store.StatusVerified))

	reopened := New(db, "persist")
	assert.Equal(t, 2, reopened.Size())

	st, err := reopened.Status(2)
	require.NoError(t, err)
	assert.Equal(t, store.StatusVerified, st)
}

func TestDBStorePrefixesAreIsolated(t *testing.T) {
	db := dbm.NewMemDB()
	a, b := New(db, "a"), New(db, "b")

	require.NoError(t, a.Update(storetest.Block(4), store.StatusVerified))

	_, err := b.LightBlock(4, store.StatusVerified)
	assert.ErrorIs(t, err, store.ErrLightBlockNotFound)
	_, err = b.Highest(store.StatusVerified)
	assert.ErrorIs(t, err, store.ErrLightBlockNotFound)
	assert.Equal(t, 0, b.Size())
}

func TestKeyEncodingOrdersHeights(t *testing.T) {
	s := New(dbm.NewMemDB(), "").(*dbs)
	k1 := s.lbKey(store.StatusVerified, 9)
	k2 := s.lbKey(store.StatusVerified, 10)
	assert.Less(t, string(k1), string(k2))

	h, ok := s.parseLbKey(k2, store.StatusVerified)
	require.True(t, ok)
	assert.EqualValues(t, 10, h)

	_, ok = s.parseLbKey(k2, store.StatusTrusted)
	assert.False(t, ok)
}
