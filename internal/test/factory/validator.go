package factory

import (
	"fmt"

	"github.com/tendermint/lightcore/crypto"
	"github.com/tendermint/lightcore/crypto/ed25519"
	"github.com/tendermint/lightcore/types"
)

// PrivKeys is a helper type for testing.
//
// It lets us simulate signing with many keys. The main use case is to create
// a set, and call GenLightBlock to get properly signed light blocks.
type PrivKeys []crypto.PrivKey

// GenPrivKeys produces n deterministic private keys. Key i is derived from
// the secret "validator-i", so two calls return the same keys.
func GenPrivKeys(n int) PrivKeys {
	res := make(PrivKeys, n)
	for i := range res {
		res[i] = ed25519.GenPrivKeyFromSecret([]byte(fmt.Sprintf("validator-%d", i)))
	}
	return res
}

// Subset returns the keys at the given indexes.
func (pkz PrivKeys) Subset(idx ...int) PrivKeys {
	res := make(PrivKeys, len(idx))
	for i, j := range idx {
		res[i] = pkz[j]
	}
	return res
}

// ToValidators produces a valset from the set of keys. Every validator gets
// the same voting power.
func (pkz PrivKeys) ToValidators(power int64) *types.ValidatorSet {
	powers := make([]int64, len(pkz))
	for i := range powers {
		powers[i] = power
	}
	return pkz.ToValidatorsWithPowers(powers...)
}

// ToValidatorsWithPowers produces a valset where key i has powers[i].
func (pkz PrivKeys) ToValidatorsWithPowers(powers ...int64) *types.ValidatorSet {
	if len(powers) != len(pkz) {
		panic(fmt.Sprintf("got %d powers for %d keys", len(powers), len(pkz)))
	}
	res := make([]*types.Validator, len(pkz))
	for i, k := range pkz {
		res[i] = types.NewValidator(k.PubKey(), powers[i])
	}
	vals, err := types.NewValidatorSet(res)
	if err != nil {
		panic(err)
	}
	return vals
}
