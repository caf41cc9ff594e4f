package driver

import "math/bits"

// bitset is a fixed-width occupancy map.
type bitset struct {
	width int
	words []uint64
}

func newBitset(width int) *bitset {
	return &bitset{width: width, words: make([]uint64, (width+63)/64)}
}

func (b *bitset) clone() *bitset {
	c := &bitset{width: b.width, words: make([]uint64, len(b.words))}
	copy(c.words, b.words)
	return c
}

// firstSet returns the lowest set bit in [lo, hi), or -1.
func (b *bitset) firstSet(lo, hi int) int {
	for i := lo; i < hi; {
		w := i / 64
		word := b.words[w] >> uint(i%64)
		if word != 0 {
			bit := i + bits.TrailingZeros64(word)
			if bit < hi {
				return bit
			}
			return -1
		}
		i = (w + 1) * 64
	}
	return -1
}

func (b *bitset) set(lo, hi int) {
	for i := lo; i < hi; i++ {
		b.words[i/64] |= 1 << uint(i%64)
	}
}

func (b *bitset) union(o *bitset) {
	for i := range b.words {
		b.words[i] |= o.words[i]
	}
}

// count returns the number of set bits.
func (b *bitset) count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}
