package mesh

import (
	"fmt"
	"math"
	"sort"
)

// chunk is a range of elements (vertices or indices) in a heap buffer.
type chunk struct {
	start uint32
	size  uint32
}

func (c chunk) end() uint32 { return c.start + c.size }

// chunkList partitions [0, capacity) into chunks. Chunk indices are stable:
// a live allocation keeps its index until released. Slots of chunks
// swallowed by a merge are recycled through the empty stack.
type chunkList struct {
	chunks []chunk
	free   []int
	empty  []int
}

func newChunkList(capacity uint32) chunkList {
	return chunkList{
		chunks: []chunk{{start: 0, size: capacity}},
		free:   []int{0},
	}
}

// alloc reserves n elements from the lowest-addressed free chunk large
// enough to hold them and returns its index.
func (l *chunkList) alloc(n uint32) (int, bool) {
	best := -1
	for pos, idx := range l.free {
		c := l.chunks[idx]
		if c.size < n {
			continue
		}
		if best < 0 || c.start < l.chunks[l.free[best]].start {
			best = pos
		}
	}
	if best < 0 {
		return 0, false
	}

	idx := l.free[best]
	l.removeFreeAt(best)

	c := &l.chunks[idx]
	if rem := c.size - n; rem > 0 {
		start := c.start + n
		c.size = n
		l.free = append(l.free, l.newChunk(chunk{start: start, size: rem}))
	}
	return idx, true
}

// release returns chunk idx to the free list and merges it with adjacent
// free chunks. Returns the number of merges performed.
func (l *chunkList) release(idx int) int {
	c := l.chunks[idx]
	left, right := -1, -1
	for _, fi := range l.free {
		f := l.chunks[fi]
		if f.end() == c.start {
			left = fi
		}
		if c.end() == f.start {
			right = fi
		}
	}

	merges := 0
	if right >= 0 {
		l.chunks[idx].size += l.chunks[right].size
		l.removeFree(right)
		l.retire(right)
		merges++
	}
	if left >= 0 {
		l.chunks[left].size += l.chunks[idx].size
		l.retire(idx)
		merges++
		return merges
	}
	l.free = append(l.free, idx)
	return merges
}

// grow extends the list from oldCap to newCap elements. A free chunk ending
// at oldCap absorbs the new space; otherwise a new free chunk is added.
func (l *chunkList) grow(oldCap, newCap uint32) {
	if newCap <= oldCap {
		return
	}
	extra := newCap - oldCap
	for _, fi := range l.free {
		if l.chunks[fi].end() == oldCap {
			l.chunks[fi].size += extra
			return
		}
	}
	l.free = append(l.free, l.newChunk(chunk{start: oldCap, size: extra}))
}

func (l *chunkList) get(idx int) chunk { return l.chunks[idx] }

// freeElements returns the total size of free chunks.
func (l *chunkList) freeElements() uint32 {
	var n uint32
	for _, fi := range l.free {
		n += l.chunks[fi].size
	}
	return n
}

// isFree reports whether idx is in the free list.
func (l *chunkList) isFree(idx int) bool {
	for _, fi := range l.free {
		if fi == idx {
			return true
		}
	}
	return false
}

// validate checks that non-empty chunks tile [0, capacity) exactly.
func (l *chunkList) validate(capacity uint32) error {
	live := make([]chunk, 0, len(l.chunks))
	for _, c := range l.chunks {
		if c.size > 0 {
			live = append(live, c)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].start < live[j].start })

	var next uint32
	for _, c := range live {
		if c.start != next {
			if c.start < next {
				return fmt.Errorf("chunk [%d, %d) overlaps previous ending at %d", c.start, c.end(), next)
			}
			return fmt.Errorf("gap [%d, %d) not covered by any chunk", next, c.start)
		}
		next = c.end()
	}
	if next != capacity {
		return fmt.Errorf("chunks cover %d elements, capacity is %d", next, capacity)
	}
	for _, fi := range l.free {
		if l.chunks[fi].size == 0 {
			return fmt.Errorf("free list references empty chunk %d", fi)
		}
	}
	return nil
}

func (l *chunkList) newChunk(c chunk) int {
	if n := len(l.empty); n > 0 {
		idx := l.empty[n-1]
		l.empty = l.empty[:n-1]
		l.chunks[idx] = c
		return idx
	}
	l.chunks = append(l.chunks, c)
	return len(l.chunks) - 1
}

func (l *chunkList) retire(idx int) {
	l.chunks[idx] = chunk{start: l.chunks[idx].start}
	l.empty = append(l.empty, idx)
}

func (l *chunkList) removeFree(idx int) {
	for pos, fi := range l.free {
		if fi == idx {
			l.removeFreeAt(pos)
			return
		}
	}
}

func (l *chunkList) removeFreeAt(pos int) {
	last := len(l.free) - 1
	l.free[pos] = l.free[last]
	l.free = l.free[:last]
}

// growCapacity returns the capacity after growing old to fit needed more
// elements: old is multiplied by growPercent until it holds old+needed.
func growCapacity(old, needed uint32, growPercent float64) (uint32, error) {
	target := uint64(old) + uint64(needed)
	if target > math.MaxUint32 {
		return 0, fmt.Errorf("capacity %d + %d overflows", old, needed)
	}
	n := uint64(max(old, 1))
	for n < target {
		next := uint64(math.Round(float64(n) * growPercent))
		if next <= n {
			next = n + 1
		}
		n = next
	}
	return uint32(min(n, math.MaxUint32)), nil
}
