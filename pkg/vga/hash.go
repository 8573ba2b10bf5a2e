package vga

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash returns a SHA-256 digest of the grid geometry and every neighbor
// list in row-major order. Graphs with the same edges added in a different
// order hash differently, since neighbor order decides ties during
// propagation.
func (v *Graph) Hash() string {
	h := sha256.New()
	var buf [8]byte
	putFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	putInt := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}

	r := v.grid.Region()
	putFloat(r.Min.X)
	putFloat(r.Min.Y)
	putFloat(r.Max.X)
	putFloat(r.Max.Y)
	putFloat(v.grid.Spacing())
	for _, nbrs := range v.adj {
		putInt(len(nbrs))
		for _, j := range nbrs {
			putInt(int(j))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
