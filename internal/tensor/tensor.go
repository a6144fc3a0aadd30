// Package tensor defines tensor metadata and the tagged-owner handle
// (component C, spec.md §3): a Tensor carries (dtype, shape, strides,
// element count, byte offset) plus exactly one ownership variant —
// Temporary (an arena Offset, valid only until the arena rewinds past
// it) or Persistent (a shared, refcounted hold on a pstore.Buffer).
//
// Grounded on original_source/.../types.rs's WasmTensorMeta field set
// and arena.rs's ArenaOffset/PersistentTensor split, expressed in Go as
// an Owner sum type via a small closed interface.
package tensor

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/pstore"
)

// Owner is the tagged ownership variant of a Tensor: either *Temporary
// or *Persistent. It is a closed sum type — no other implementation is
// valid — enforced by the unexported marker method.
type Owner interface {
	isOwner()
}

// Temporary tensors live in the current arena at a fixed Offset. They
// are implicitly destroyed by checkpoint restore or arena reset; never
// outlive the Arena instance that produced them.
type Temporary struct {
	Offset arena.Offset
}

func (*Temporary) isOwner() {}

// Persistent tensors hold a shared, refcounted reference into the
// persistent store. Lifetime = lifetime of the last holder.
type Persistent struct {
	ID  pstore.ID
	Buf *pstore.Buffer
}

func (*Persistent) isOwner() {}

// Meta is a tensor's shape/stride/dtype metadata, independent of how
// its bytes are owned.
type Meta struct {
	Dtype      dtype.Dtype
	Shape      []int
	Strides    []int
	ByteOffset int // offset in elements*dtype-size within the owner's region
}

// ElementCount returns the product of Shape (1 for a 0-rank/scalar
// tensor with an empty shape).
func (m Meta) ElementCount() int {
	n := 1
	for _, s := range m.Shape {
		n *= s
	}
	return n
}

// ByteSize returns ElementCount()*dtype size.
func (m Meta) ByteSize() int {
	return m.ElementCount() * m.Dtype.Size()
}

// CanonicalStrides computes the row-major strides for shape, in
// elements: strides[i] = product(shape[i+1:]).
func CanonicalStrides(shape []int) []int {
	n := len(shape)
	strides := make([]int, n)
	acc := 1
	for i := n - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Tensor is the full handle: metadata plus its ownership variant.
type Tensor struct {
	Meta  Meta
	Owner Owner
}

// NewTemporary builds a Tensor with canonical strides backed by an
// arena allocation.
func NewTemporary(dt dtype.Dtype, shape []int, off arena.Offset) *Tensor {
	return &Tensor{
		Meta: Meta{
			Dtype:   dt,
			Shape:   append([]int(nil), shape...),
			Strides: CanonicalStrides(shape),
		},
		Owner: &Temporary{Offset: off},
	}
}

// NewPersistent builds a Tensor with canonical strides backed by a
// persistent store buffer.
func NewPersistent(dt dtype.Dtype, shape []int, id pstore.ID, buf *pstore.Buffer) *Tensor {
	return &Tensor{
		Meta: Meta{
			Dtype:   dt,
			Shape:   append([]int(nil), shape...),
			Strides: CanonicalStrides(shape),
		},
		Owner: &Persistent{ID: id, Buf: buf},
	}
}

// IsTemporary reports whether t is arena-backed.
func (t *Tensor) IsTemporary() bool {
	_, ok := t.Owner.(*Temporary)
	return ok
}

// IsPersistent reports whether t is store-backed.
func (t *Tensor) IsPersistent() bool {
	_, ok := t.Owner.(*Persistent)
	return ok
}

// IsContiguous reports whether Strides equals the canonical row-major
// strides for Shape at ByteOffset-independent element offset 0 — i.e.
// the tensor is not a transposed or broadcast view.
func (t *Tensor) IsContiguous() bool {
	canon := CanonicalStrides(t.Meta.Shape)
	if len(canon) != len(t.Meta.Strides) {
		return false
	}
	for i := range canon {
		if t.Meta.Shape[i] != 1 && canon[i] != t.Meta.Strides[i] {
			return false
		}
	}
	return true
}

// Bytes returns a byte view into the tensor's backing storage, sized to
// Meta.ByteSize(). For Temporary tensors this re-derives the slice from
// the live arena argument each call — callers must pass the arena that
// currently owns this tensor, and must not retain the slice across any
// arena operation that may grow the backing buffer.
func (t *Tensor) Bytes(a *arena.Arena) []byte {
	switch o := t.Owner.(type) {
	case *Temporary:
		return a.GetMutPtr(o.Offset)
	case *Persistent:
		return o.Buf.Bytes()
	default:
		panic("tensor: unknown owner variant")
	}
}
