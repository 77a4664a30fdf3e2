package percpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/riscv"
)

func TestCurrentReturnsBootFallbackBeforeInit(t *testing.T) {
	initialized = false
	cpus = nil

	c1 := Current()
	c2 := Current()
	require.Same(t, c1, c2)
	require.Same(t, &bootCPU, c1)
}

func TestInitInstallsPerCPUStorageAndCarriesBootState(t *testing.T) {
	initialized = false
	cpus = nil
	bootCPU = CPU{}
	bootCPU.Interrupt.EnterIRQ()

	Init(0, 4)
	t.Cleanup(func() { initialized = false; cpus = nil })

	require.Equal(t, 4, NumCPUs())

	riscv.SetHartID(0)
	c0 := Current()
	require.True(t, c0.Interrupt.InInterruptHandler(), "boot CPU's bookkeeping must carry forward into its slot")

	riscv.SetHartID(2)
	c2 := Current()
	require.NotSame(t, c0, c2)
	require.False(t, c2.Interrupt.InInterruptHandler())

	riscv.SetHartID(0)
}
