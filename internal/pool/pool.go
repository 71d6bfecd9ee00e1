// Package pool provides bucketed sync.Pool instances for reducing allocations
// in hot paths. Buffers are organized by size class to minimize waste.
package pool

import "sync"

// Size classes for bucketed pools.
const (
	Size256B = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	switch {
	case size <= Size256B:
		return 0
	case size <= Size1K:
		return 1
	case size <= Size4K:
		return 2
	case size <= Size16K:
		return 3
	case size <= Size64K:
		return 4
	case size <= Size256K:
		return 5
	default:
		return 6
	}
}

var sizes = [7]int{Size256B, Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

var pools [7]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a byte slice of at least the requested size from the pool.
// The returned slice has length == size and may have a larger capacity.
// The caller must call Put when done.
func Get(size int) []byte {
	idx := bucketIndex(size)
	bp := pools[idx].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// Put returns a byte slice to the pool. The slice must have been obtained
// from Get. Slices smaller than Size256B are not pooled.
func Put(b []byte) {
	c := cap(b)
	if c < Size256B {
		return
	}
	idx := bucketIndex(c)
	b = b[:c]
	pools[idx].Put(&b)
}

// GetInt16 returns a freshly allocated int16 slice of the requested
// length; it is not pooled.
func GetInt16(length int) []int16 {
	s := make([]int16, length)
	return s
}

// GetInt32 returns an int32 slice of at least the requested length.
func GetInt32(length int) []int32 {
	s := make([]int32, length)
	return s
}

// GetUint32 returns a uint32 slice of at least the requested length.
func GetUint32(length int) []uint32 {
	s := make([]uint32, length)
	return s
}

// complex128Pools holds one sync.Pool of scratch FFT row/column buffers
// per exact buffer length (not the byte pool's size classes), for
// internal/deconv's per-tile 2D FFT passes (C6): every tile reuses the
// same handful of buffer sizes, so a sync.Pool keyed by exact length
// avoids reallocating them per row.
var complex128Pools sync.Map // length int -> *sync.Pool

func complex128Pool(n int) *sync.Pool {
	if p, ok := complex128Pools.Load(n); ok {
		return p.(*sync.Pool)
	}
	p := &sync.Pool{New: func() any {
		b := make([]complex128, n)
		return &b
	}}
	actual, _ := complex128Pools.LoadOrStore(n, p)
	return actual.(*sync.Pool)
}

// GetComplex128 returns a length-n complex128 slice from the pool,
// zeroed (sync.Pool does not guarantee zeroed reuse, so this clears it
// explicitly since fft2D's column buffer is filled element-by-element
// before every use, but a caller relying on a zero-valued scratch
// buffer elsewhere should not assume more than that).
func GetComplex128(n int) []complex128 {
	bp := complex128Pool(n).Get().(*[]complex128)
	b := *bp
	for i := range b {
		b[i] = 0
	}
	return b
}

// PutComplex128 returns a slice obtained from GetComplex128 to its pool.
func PutComplex128(b []complex128) {
	n := len(b)
	if n == 0 {
		return
	}
	complex128Pool(n).Put(&b)
}
