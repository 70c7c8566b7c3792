package provider

import (
	"context"

	"github.com/tendermint/lightcore/types"
)

//go:generate mockery --case underscore --name Provider

// Provider supplies candidate light blocks to the verifier. Verification
// happens in the light package; a provider only fetches.
type Provider interface {
	// LightBlock returns the LightBlock that corresponds to the given
	// height.
	//
	// height must be > 0.
	//
	// If the provider fails to fetch the LightBlock due to the IO or other
	// issues, an error will be returned.
	// If there's no LightBlock for the given height, ErrLightBlockNotFound
	// error is returned.
	LightBlock(ctx context.Context, height int64) (*types.LightBlock, error)

	// String identifies the provider in logs.
	String() string
}
