package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tendermint/lightcore/light/provider"
	"github.com/tendermint/lightcore/types"
)

// Mock serves light blocks from a map and records every requested height.
type Mock struct {
	id     string
	blocks map[int64]*types.LightBlock

	mtx       sync.Mutex
	requested []int64
}

var _ provider.Provider = (*Mock)(nil)

// New creates a mock provider with the given set of light blocks.
func New(id string, blocks map[int64]*types.LightBlock) *Mock {
	return &Mock{
		id:     id,
		blocks: blocks,
	}
}

func (p *Mock) String() string {
	heights := make([]int64, 0, len(p.blocks))
	for h := range p.blocks {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	var sb strings.Builder
	for _, h := range heights {
		fmt.Fprintf(&sb, " %d:%X", h, p.blocks[h].Hash())
	}
	return fmt.Sprintf("Mock{id: %s, blocks:%s}", p.id, sb.String())
}

// LightBlock returns the block at height or provider.ErrLightBlockNotFound.
func (p *Mock) LightBlock(ctx context.Context, height int64) (*types.LightBlock, error) {
	p.mtx.Lock()
	p.requested = append(p.requested, height)
	p.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lb, ok := p.blocks[height]; ok {
		return lb, nil
	}
	return nil, provider.ErrLightBlockNotFound
}

// Requested returns the heights asked for so far, in call order.
func (p *Mock) Requested() []int64 {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return append([]int64(nil), p.requested...)
}

// Reset forgets the requested heights.
func (p *Mock) Reset() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.requested = nil
}

// deadMock always fails to respond.
type deadMock struct {
	id string
}

// NewDeadMock creates a mock provider that always errors. id is used in
// its String method.
func NewDeadMock(id string) provider.Provider {
	return &deadMock{id: id}
}

func (p *deadMock) String() string { return fmt.Sprintf("DeadMock-%s", p.id) }

func (p *deadMock) LightBlock(_ context.Context, height int64) (*types.LightBlock, error) {
	return nil, provider.ErrNoResponse
}
