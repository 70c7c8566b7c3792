package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenPrivKeysDeterministic(t *testing.T) {
	a, b := GenPrivKeys(3), GenPrivKeys(3)
	for i := range a {
		assert.True(t, a[i].Equals(b[i]))
	}
	assert.False(t, a[0].Equals(a[1]))
}

func TestGenLightBlockIsValid(t *testing.T) {
	keys := GenPrivKeys(4)
	vals := keys.ToValidators(10)
	lb := GenLightBlock("test-chain", 7, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), vals, vals, keys)

	require.NoError(t, lb.ValidateBasic("test-chain"))
	require.NoError(t, vals.VerifyCommitLight("test-chain", lb.Commit.BlockID, 7, lb.Commit))
}
