package light

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tendermint/lightcore/light/store"
	"github.com/tendermint/lightcore/types"
)

// VerificationTrace maps a target height to the heights of the blocks used
// directly as evidence for it. Every evidence height is <= its target.
type VerificationTrace map[int64]map[int64]struct{}

// State is the mutable object threaded through verification sessions: the
// light block store plus the verification trace.
//
// A State must not be used by two sessions at the same time.
type State struct {
	store store.Store
	trace VerificationTrace
}

// NewState returns a State with an empty trace. The State takes ownership of
// s; callers must not mutate s behind its back.
func NewState(s store.Store) *State {
	return &State{
		store: s,
		trace: make(VerificationTrace),
	}
}

// Store returns the underlying light block store.
func (s *State) Store() store.Store {
	return s.store
}

// TraceBlock records that the block at height was used as evidence for the
// block at targetHeight. Recording the same edge twice is a no-op.
//
// Panics if height > targetHeight.
func (s *State) TraceBlock(targetHeight, height int64) {
	if height > targetHeight {
		panic(fmt.Sprintf("evidence height %d is above target height %d", height, targetHeight))
	}

	evidence, ok := s.trace[targetHeight]
	if !ok {
		evidence = make(map[int64]struct{})
		s.trace[targetHeight] = evidence
	}
	evidence[height] = struct{}{}
}

// TraceHeights returns every evidence height recorded for targetHeight,
// highest first, regardless of the blocks' current status.
func (s *State) TraceHeights(targetHeight int64) []int64 {
	evidence := s.trace[targetHeight]
	heights := make([]int64, 0, len(evidence))
	for h := range evidence {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })
	return heights
}

// Trace returns the verified blocks recorded as evidence for targetHeight,
// highest first. Heights the store no longer reports as verified are left
// out. A target without a trace yields an empty result.
func (s *State) Trace(targetHeight int64) ([]*types.LightBlock, error) {
	heights := s.TraceHeights(targetHeight)
	blocks := make([]*types.LightBlock, 0, len(heights))
	for _, h := range heights {
		// no block lives at height 0
		if h <= 0 {
			continue
		}
		lb, err := s.store.LightBlock(h, store.StatusVerified)
		if errors.Is(err, store.ErrLightBlockNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving evidence #%d for #%d: %w", h, targetHeight, err)
		}
		blocks = append(blocks, lb)
	}
	return blocks, nil
}

// VerificationTrace returns a copy of the whole trace.
func (s *State) VerificationTrace() VerificationTrace {
	res := make(VerificationTrace, len(s.trace))
	for target, evidence := range s.trace {
		cp := make(map[int64]struct{}, len(evidence))
		for h := range evidence {
			cp[h] = struct{}{}
		}
		res[target] = cp
	}
	return res
}
