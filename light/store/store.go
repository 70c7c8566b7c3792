package store

import (
	"errors"
	"fmt"

	"github.com/tendermint/lightcore/types"
)

// ErrLightBlockNotFound is returned when no record with the requested height
// and status exists. It is a normal outcome, not a failure of the store.
var ErrLightBlockNotFound = errors.New("light block not found")

// Status is the verification status of a light block as recorded in a Store.
type Status uint8

const (
	// StatusUnverified - fetched but not (yet) verified.
	StatusUnverified Status = iota + 1
	// StatusVerified - verified against a trusted or verified block.
	StatusVerified
	// StatusTrusted - trusted by fiat, i.e. from a subjective source.
	StatusTrusted
	// StatusFailed - verification failed.
	StatusFailed
)

// Statuses lists every valid status.
var Statuses = []Status{StatusUnverified, StatusVerified, StatusTrusted, StatusFailed}

func (s Status) String() string {
	switch s {
	case StatusUnverified:
		return "unverified"
	case StatusVerified:
		return "verified"
	case StatusTrusted:
		return "trusted"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// IsValid returns true if s is one of Statuses.
func (s Status) IsValid() bool {
	return s >= StatusUnverified && s <= StatusFailed
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(str string) (Status, error) {
	for _, s := range Statuses {
		if s.String() == str {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q (expected one of unverified, verified, trusted, failed)", str)
}

// Store holds light blocks indexed by height, each tagged with a Status.
// A height has at most one record.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// LightBlock returns the block at height iff its recorded status is
	// status. Otherwise ErrLightBlockNotFound is returned.
	//
	// height must be > 0.
	LightBlock(height int64, status Status) (*types.LightBlock, error)

	// Update inserts or overwrites the record at lb.Height with status.
	// Transitions between statuses are not checked.
	Update(lb *types.LightBlock, status Status) error

	// Highest returns the record with the largest height among those with
	// status, or ErrLightBlockNotFound.
	Highest(status Status) (*types.LightBlock, error)

	// Lowest returns the record with the smallest height among those with
	// status, or ErrLightBlockNotFound.
	Lowest(status Status) (*types.LightBlock, error)

	// LightBlockBefore returns the record with the largest height strictly
	// below height among those with status, or ErrLightBlockNotFound.
	LightBlockBefore(height int64, status Status) (*types.LightBlock, error)

	// Status returns the recorded status at height, or
	// ErrLightBlockNotFound.
	Status(height int64) (Status, error)

	// All returns every record with status in ascending height order.
	All(status Status) ([]*types.LightBlock, error)

	// Delete removes the record at height. Deleting a missing height is not
	// an error.
	Delete(height int64) error

	// Size returns the number of records regardless of status.
	Size() int
}
