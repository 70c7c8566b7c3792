// Package memory provides an in-memory light block store.
package memory

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

const btreeDegree = 32

// heightItem orders records in a per-status index.
type heightItem int64

func (h heightItem) Less(than btree.Item) bool {
	return h < than.(heightItem)
}

type record struct {
	lb     *types.LightBlock
	status store.Status
}

type memStore struct {
	mtx     sync.RWMutex
	records map[int64]record
	index   map[store.Status]*btree.BTree
}

var _ store.Store = (*memStore)(nil)

// New returns an empty in-memory Store. Every status keeps its own ordered
// index so Highest, Lowest and LightBlockBefore are logarithmic.
func New() store.Store {
	s := &memStore{
		records: make(map[int64]record),
		index:   make(map[store.Status]*btree.BTree, len(store.Statuses)),
	}
	for _, st := range store.Statuses {
		s.index[st] = btree.New(btreeDegree)
	}
	return s
}

func (s *memStore) LightBlock(height int64, status store.Status) (*types.LightBlock, error) {
	if height <= 0 {
		panic("negative or zero height")
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	r, ok := s.records[height]
	if !ok || r.status != status {
		return nil, store.ErrLightBlockNotFound
	}
	return r.lb, nil
}

func (s *memStore) Update(lb *types.LightBlock, status store.Status) error {
	if lb == nil || lb.SignedHeader == nil || lb.Header == nil {
		return fmt.Errorf("cannot store light block without a header")
	}
	if lb.Height <= 0 {
		return fmt.Errorf("cannot store light block with height %d", lb.Height)
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid status %v", status)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if prev, ok := s.records[lb.Height]; ok {
		s.index[prev.status].Delete(heightItem(lb.Height))
	}
	s.records[lb.Height] = record{lb: lb, status: status}
	s.index[status].ReplaceOrInsert(heightItem(lb.Height))

	return nil
}

func (s *memStore) Highest(status store.Status) (*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tree, ok := s.index[status]
	if !ok || tree.Len() == 0 {
		return nil, store.ErrLightBlockNotFound
	}
	return s.records[int64(tree.Max().(heightItem))].lb, nil
}

func (s *memStore) Lowest(status store.Status) (*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tree, ok := s.index[status]
	if !ok || tree.Len() == 0 {
		return nil, store.ErrLightBlockNotFound
	}
	return s.records[int64(tree.Min().(heightItem))].lb, nil
}

func (s *memStore) LightBlockBefore(height int64, status store.Status) (*types.LightBlock, error) {
	if height <= 0 {
		panic("negative or zero height")
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tree, ok := s.index[status]
	if !ok {
		return nil, store.ErrLightBlockNotFound
	}

	var found *types.LightBlock
	tree.DescendLessOrEqual(heightItem(height-1), func(i btree.Item) bool {
		found = s.records[int64(i.(heightItem))].lb
		return false
	})
	if found == nil {
		return nil, store.ErrLightBlockNotFound
	}
	return found, nil
}

func (s *memStore) Status(height int64) (store.Status, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	r, ok := s.records[height]
	if !ok {
		return 0, store.ErrLightBlockNotFound
	}
	return r.status, nil
}

func (s *memStore) All(status store.Status) ([]*types.LightBlock, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tree, ok := s.index[status]
	if !ok {
		return nil, nil
	}

	res := make([]*types.LightBlock, 0, tree.Len())
	tree.Ascend(func(i btree.Item) bool {
		res = append(res, s.records[int64(i.(heightItem))].lb)
		return true
	})
	return res, nil
}

func (s *memStore) Delete(height int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if r, ok := s.records[height]; ok {
		s.index[r.status].Delete(heightItem(height))
		delete(s.records, height)
	}
	return nil
}

func (s *memStore) Size() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.records)
}
