package db

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

const (
	prefixLightBlock = int64(11)
	prefixStatus     = int64(12)
	prefixSize       = int64(13)
)

type dbs struct {
	db     dbm.DB
	prefix string

	mtx  sync.RWMutex
	size int
}

var _ store.Store = (*dbs)(nil)

// New returns a Store that wraps any DB (with an optional prefix in case you
// want to use one DB with many light clients).
//
// Keys are encoded with orderedcode so every status namespace iterates in
// height order. Values use the light block protobuf wire format.
func New(db dbm.DB, prefix string) store.Store {
	s := &dbs{db: db, prefix: prefix}

	bz, err := db.Get(s.sizeKey())
	if err == nil && len(bz) > 0 {
		s.size = unmarshalSize(bz)
	}

	return s
}

// LightBlock loads the block at height if it carries status.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) LightBlock(height int64, status store.Status) (*types.LightBlock, error) {
	if height <= 0 {
		panic("negative or zero height")
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	bz, err := s.db.Get(s.lbKey(status, height))
	if err != nil {
		return nil, fmt.Errorf("reading light block %d: %w", height, err)
	}
	if len(bz) == 0 {
		return nil, store.ErrLightBlockNotFound
	}
	return types.UnmarshalLightBlock(bz)
}

// Update persists lb under status and removes the height from every other
// status namespace in one batch.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Update(lb *types.LightBlock, status store.Status) error {
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return fmt.Errorf("cannot store light block without a header")
	}
	if lb.Height <= 0 {
		return fmt.Errorf("cannot store light block with height %d", lb.Height)
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid status %v", status)
	}

	lbBz, err := lb.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling light block: %w", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, err = s.status(lb.Height)
	isNew := errors.Is(err, store.ErrLightBlockNotFound)
	if err != nil && !isNew {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, other := range store.Statuses {
		if other == status {
			continue
		}
		if err := b.Delete(s.lbKey(other, lb.Height)); err != nil {
			return err
		}
	}
	if err := b.Set(s.lbKey(status, lb.Height), lbBz); err != nil {
		return err
	}
	if err := b.Set(s.statusKey(lb.Height), []byte{byte(status)}); err != nil {
		return err
	}
	size := s.size
	if isNew {
		size++
		if err := b.Set(s.sizeKey(), marshalSize(size)); err != nil {
			return err
		}
	}

	if err := b.WriteSync(); err != nil {
		return fmt.Errorf("writing light block %d: %w", lb.Height, err)
	}
	s.size = size

	return nil
}

// Highest returns the record with the largest height and the given status.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Highest(status store.Status) (*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	itr, err := s.db.ReverseIterator(s.lbKey(status, 1), s.lbEnd(status))
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	return s.first(itr, status)
}

// Lowest returns the record with the smallest height and the given status.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Lowest(status store.Status) (*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	itr, err := s.db.Iterator(s.lbKey(status, 1), s.lbEnd(status))
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	return s.first(itr, status)
}

// LightBlockBefore iterates over records with status starting from height-1
// down and returns the first one.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) LightBlockBefore(height int64, status store.Status) (*types.LightBlock, error) {
	if height <= 0 {
		panic("negative or zero height")
	}
	if height == 1 {
		return nil, store.ErrLightBlockNotFound
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	itr, err := s.db.ReverseIterator(s.lbKey(status, 1), s.lbKey(status, height))
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	return s.first(itr, status)
}

// Status returns the recorded status at height.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Status(height int64) (store.Status, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.status(height)
}

func (s *dbs) status(height int64) (store.Status, error) {
	bz, err := s.db.Get(s.statusKey(height))
	if err != nil {
		return 0, err
	}
	if len(bz) != 1 {
		return 0, store.ErrLightBlockNotFound
	}
	return store.Status(bz[0]), nil
}

// All returns the records with status in ascending height order.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) All(status store.Status) ([]*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	itr, err := s.db.Iterator(s.lbKey(status, 1), s.lbEnd(status))
	if err != nil {
		return nil, err
	}
	defer itr.Close()

	var res []*types.LightBlock
	for ; itr.Valid(); itr.Next() {
		if _, ok := s.parseLbKey(itr.Key(), status); !ok {
			continue
		}
		lb, err := types.UnmarshalLightBlock(itr.Value())
		if err != nil {
			return nil, err
		}
		res = append(res, lb)
	}
	return res, itr.Error()
}

// Delete removes the record at height.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Delete(height int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	status, err := s.status(height)
	if errors.Is(err, store.ErrLightBlockNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Delete(s.lbKey(status, height)); err != nil {
		return err
	}
	if err := b.Delete(s.statusKey(height)); err != nil {
		return err
	}
	if err := b.Set(s.sizeKey(), marshalSize(s.size-1)); err != nil {
		return err
	}
	if err := b.WriteSync(); err != nil {
		return fmt.Errorf("deleting light block %d: %w", height, err)
	}
	s.size--

	return nil
}

// Size returns the number of stored records.
//
// Safe for concurrent use by multiple goroutines.
func (s *dbs) Size() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.size
}

func (s *dbs) first(itr dbm.Iterator, status store.Status) (*types.LightBlock, error) {
	for ; itr.Valid(); itr.Next() {
		if _, ok := s.parseLbKey(itr.Key(), status); !ok {
			continue
		}
		return types.UnmarshalLightBlock(itr.Value())
	}
	if err := itr.Error(); err != nil {
		return nil, err
	}
	return nil, store.ErrLightBlockNotFound
}

func (s *dbs) lbKey(status store.Status, height int64) []byte {
	key, err := orderedcode.Append(nil, s.prefix, prefixLightBlock, uint64(status), height)
	if err != nil {
		panic(err)
	}
	return key
}

func (s *dbs) lbEnd(status store.Status) []byte {
	return append(s.lbKey(status, math.MaxInt64), byte(0x00))
}

func (s *dbs) parseLbKey(key []byte, status store.Status) (int64, bool) {
	var (
		prefix string
		kind   int64
		st     uint64
		height int64
	)
	remaining, err := orderedcode.Parse(string(key), &prefix, &kind, &st, &height)
	if err != nil || len(remaining) != 0 {
		return 0, false
	}
	if prefix != s.prefix || kind != prefixLightBlock || store.Status(st) != status {
		return 0, false
	}
	return height, true
}

func (s *dbs) statusKey(height int64) []byte {
	key, err := orderedcode.Append(nil, s.prefix, prefixStatus, height)
	if err != nil {
		panic(err)
	}
	return key
}

func (s *dbs) sizeKey() []byte {
	key, err := orderedcode.Append(nil, s.prefix, prefixSize)
	if err != nil {
		panic(err)
	}
	return key
}

func marshalSize(size int) []byte {
	key, err := orderedcode.Append(nil, int64(size))
	if err != nil {
		panic(err)
	}
	return key
}

func unmarshalSize(bz []byte) int {
	var size int64
	if _, err := orderedcode.Parse(string(bz), &size); err != nil {
		panic(err)
	}
	return int(size)
}
