package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAlignment(t *testing.T) {
	a := NewWithCapacity(1024)

	off1, err := a.Alloc(17)
	require.NoError(t, err)
	off2, err := a.Alloc(64)
	require.NoError(t, err)

	assert.Equal(t, 17, off1.Size())
	assert.Equal(t, 0, off1.Off()%SIMDAlignment)
	assert.Equal(t, 0, off2.Off()%SIMDAlignment)
	assert.GreaterOrEqual(t, off2.Off(), off1.Off()+alignUp(17, SIMDAlignment))

	ptr := a.GetPtr(off1)
	assert.Equal(t, uintptr(0), ptrAddr(ptr)%SIMDAlignment)
}

func TestAllocZeroSizeSentinel(t *testing.T) {
	a := NewWithCapacity(64)
	off, err := a.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, Offset{0, 0}, off)
	assert.Equal(t, 0, a.Used())
}

func TestAllocTooLarge(t *testing.T) {
	a := NewWithCapacity(64)
	_, err := a.Alloc(MaxAllocation + 1)
	require.Error(t, err)
}

func TestCheckpointRestore(t *testing.T) {
	a := NewWithCapacity(4096)

	_, err := a.Alloc(64)
	require.NoError(t, err)
	usedBefore := a.Used()

	cp := a.Checkpoint()
	_, err = a.Alloc(256)
	require.NoError(t, err)
	require.Greater(t, a.Used(), usedBefore)

	require.NoError(t, a.Restore(cp))
	assert.Equal(t, usedBefore, a.Used())
}

func TestRestoreInvalidID(t *testing.T) {
	a := New()
	err := a.Restore(CheckpointID(5))
	require.Error(t, err)
}

func TestRestoreFutureCheckpointFails(t *testing.T) {
	a := NewWithCapacity(4096)
	cp0 := a.Checkpoint()
	_, err := a.Alloc(64)
	require.NoError(t, err)
	cp1 := a.Checkpoint()

	require.NoError(t, a.Restore(cp1))
	// cp0 is now before current (0 <= 64), restoring to it should succeed;
	// but restoring forward from a rewound position to a discarded future
	// checkpoint must fail.
	require.NoError(t, a.Restore(cp0))
	err = a.Restore(cp1)
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	a := NewWithCapacity(4096)
	a.Checkpoint()
	_, err := a.Alloc(128)
	require.NoError(t, err)

	a.Reset()
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, 0, a.TotalHandedOut())

	err = a.Restore(CheckpointID(0))
	require.Error(t, err, "checkpoint stack must be empty after Reset")
}

func TestGrowthDoublesOrFits(t *testing.T) {
	a := NewWithCapacity(128)
	_, err := a.Alloc(1000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.Capacity(), 128+1000)
}

func TestDisjointAllocations(t *testing.T) {
	a := NewWithCapacity(4096)
	seen := map[int]bool{}
	pos := 0
	for i := 0; i < 20; i++ {
		off, err := a.Alloc(33)
		require.NoError(t, err)
		require.False(t, seen[off.Off()], "offsets must be disjoint")
		for b := off.Off(); b < off.Off()+alignUp(33, SIMDAlignment); b++ {
			seen[b] = true
		}
		assert.GreaterOrEqual(t, off.Off(), pos)
		pos = off.Off()
	}
}

func TestIsUnderPressure(t *testing.T) {
	a := NewWithCapacity(WasmCeiling/2 + 1)
	assert.True(t, a.IsUnderPressure())

	b := NewWithCapacity(1024)
	assert.False(t, b.IsUnderPressure())
}
