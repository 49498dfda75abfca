package volatile

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/megaeth-labs/mega-evm-sub000/megaparams"
	"github.com/stretchr/testify/require"
)

var (
	oracleAddr   = common.HexToAddress("0xf0ac")
	coinbaseAddr = common.HexToAddress("0xc01b")
)

func TestOrderIndependence(t *testing.T) {
	// block-env then oracle
	a := New(oracleAddr, coinbaseAddr, false)
	a.MarkBlockEnv()
	a.MarkOracle(oracleAddr)
	capA, okA := a.CurrentComputeCap()

	// oracle then block-env
	b := New(oracleAddr, coinbaseAddr, false)
	b.MarkOracle(oracleAddr)
	b.MarkBlockEnv()
	capB, okB := b.CurrentComputeCap()

	require.True(t, okA)
	require.True(t, okB)
	require.Equal(t, capA, capB)
	require.Equal(t, megaparams.CapOracle, capA) // oracle cap is the smaller of the two
}

func TestNoTouchNoCap(t *testing.T) {
	tr := New(oracleAddr, coinbaseAddr, false)
	_, ok := tr.CurrentComputeCap()
	require.False(t, ok)
}

func TestMegaSystemExemption(t *testing.T) {
	tr := New(oracleAddr, coinbaseAddr, true)
	tr.MarkBlockEnv()
	tr.MarkOracle(oracleAddr)
	_, ok := tr.CurrentComputeCap()
	require.False(t, ok, "mega-system caller must bypass volatile-data tracking entirely")
}

func TestAccountInspectTouchesCoinbase(t *testing.T) {
	tr := New(oracleAddr, coinbaseAddr, false)
	tr.MaybeMarkAccountInspect(coinbaseAddr)
	blockEnv, oracle := tr.Categories()
	require.True(t, blockEnv)
	require.False(t, oracle)
}
