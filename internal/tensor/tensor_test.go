package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/pstore"
)

func TestCanonicalStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, CanonicalStrides([]int{2, 3, 4}))
	assert.Equal(t, []int{1}, CanonicalStrides([]int{5}))
	assert.Equal(t, []int{}, CanonicalStrides([]int{}))
}

func TestMetaElementAndByteSize(t *testing.T) {
	m := Meta{Dtype: dtype.F32, Shape: []int{2, 3}}
	assert.Equal(t, 6, m.ElementCount())
	assert.Equal(t, 24, m.ByteSize())
}

func TestNewTemporaryIsContiguous(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(2 * 3 * 4)
	require.NoError(t, err)

	tn := NewTemporary(dtype.F32, []int{2, 3}, off)
	assert.True(t, tn.IsTemporary())
	assert.False(t, tn.IsPersistent())
	assert.True(t, tn.IsContiguous())
	assert.Equal(t, []int{3, 1}, tn.Meta.Strides)
	assert.Len(t, tn.Bytes(a), 24)
}

func TestNewPersistent(t *testing.T) {
	s := pstore.New()
	id, _ := s.Store(make([]byte, 16), 16)
	buf, ok := s.Get(id)
	require.True(t, ok)

	tn := NewPersistent(dtype.I32, []int{4}, id, buf)
	assert.True(t, tn.IsPersistent())
	assert.False(t, tn.IsTemporary())
	assert.Len(t, tn.Bytes(nil), 16)
}

func TestIsContiguousDetectsTransposedView(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(2 * 3 * 4)
	require.NoError(t, err)

	tn := NewTemporary(dtype.F32, []int{2, 3}, off)
	tn.Meta.Strides = []int{1, 2} // transposed view, not canonical
	assert.False(t, tn.IsContiguous())
}
