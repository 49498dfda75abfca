package bucketoracle

import (
	"testing"

	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/stretchr/testify/require"
)

func TestMultiplierMinimumIsOne(t *testing.T) {
	require.Equal(t, uint64(1), Multiplier(0))
	require.Equal(t, uint64(1), Multiplier(megaparams.MinBucketSize))
	require.Equal(t, uint64(4), Multiplier(4*megaparams.MinBucketSize))
}

func TestStaticOracleFallback(t *testing.T) {
	o := NewStaticOracle(megaparams.MinBucketSize * 8)
	m, err := LookupMultiplier(o, AccountBucket([20]byte{1}))
	require.NoError(t, err)
	require.Equal(t, uint64(8), m)

	id := AccountBucket([20]byte{2})
	o.SetCapacity(id, megaparams.MinBucketSize*2)
	m, err = LookupMultiplier(o, id)
	require.NoError(t, err)
	require.Equal(t, uint64(2), m)
}
