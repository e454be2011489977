package coreobject

import "sync"

// DefaultFrameBlockSize is the size of one FrameAlloc block (64 KB).
const DefaultFrameBlockSize = 64 * 1024

var framePools sync.Map // block size -> *sync.Pool

func framePool(size int) *sync.Pool {
	if p, ok := framePools.Load(size); ok {
		return p.(*sync.Pool)
	}
	p, _ := framePools.LoadOrStore(size, &sync.Pool{
		New: func() any {
			b := make([]byte, size)
			return &b
		},
	})
	return p.(*sync.Pool)
}

// FrameAlloc is a bump allocator for one frame's sync data. The simulation
// thread allocates from it while building SyncData; the core thread calls
// Release after the last command reading the data has run.
//
// FrameAlloc is not safe for concurrent use.
type FrameAlloc struct {
	blockSize int
	blocks    []*[]byte
	cur       []byte
	off       int
	allocated int
	released  bool
}

// NewFrameAlloc creates an allocator. blockSize <= 0 selects
// DefaultFrameBlockSize.
func NewFrameAlloc(blockSize int) *FrameAlloc {
	if blockSize <= 0 {
		blockSize = DefaultFrameBlockSize
	}
	return &FrameAlloc{blockSize: blockSize}
}

// Alloc returns n zeroed bytes valid until Release.
func (a *FrameAlloc) Alloc(n int) []byte {
	if a.released {
		panic("coreobject: FrameAlloc used after Release")
	}
	if n <= 0 {
		return nil
	}
	a.allocated += n

	// Oversized requests get their own slice; pooled blocks stay uniform.
	if n > a.blockSize {
		return make([]byte, n)
	}
	if a.cur == nil || a.off+n > len(a.cur) {
		b := framePool(a.blockSize).Get().(*[]byte)
		a.blocks = append(a.blocks, b)
		a.cur = *b
		a.off = 0
	}
	out := a.cur[a.off : a.off+n : a.off+n]
	clear(out)
	a.off += n
	return out
}

// Copy allocates len(src) bytes and copies src into them.
func (a *FrameAlloc) Copy(src []byte) []byte {
	dst := a.Alloc(len(src))
	copy(dst, src)
	return dst
}

// Allocated returns the total number of bytes handed out.
func (a *FrameAlloc) Allocated() int { return a.allocated }

// Release returns the blocks for reuse. Every slice handed out becomes
// invalid. Releasing twice is a no-op.
func (a *FrameAlloc) Release() {
	if a.released {
		return
	}
	a.released = true
	pool := framePool(a.blockSize)
	for _, b := range a.blocks {
		pool.Put(b)
	}
	a.blocks = nil
	a.cur = nil
}
