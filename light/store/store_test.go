package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.IsValid())
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	assert.False(t, Status(0).IsValid())
	assert.Equal(t, "Status(9)", Status(9).String())

	_, err := ParseStatus("bogus")
	assert.Error(t, err)
}
