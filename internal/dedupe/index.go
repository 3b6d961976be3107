// Package dedupe suppresses semantic near-duplicate leads using an
// embedding index of everything accepted so far.
package dedupe

// index is a flat L2 vector index: a brute-force scan over every stored
// vector. It only grows; entries are never removed or updated, so a
// decision taken against it can never be invalidated later.
type index struct {
	vectors [][]float32
}

// add appends a vector. Vectors of mismatched dimension are the caller's
// bug; the scan treats missing dimensions as zero.
func (ix *index) add(vec []float32) {
	ix.vectors = append(ix.vectors, vec)
}

// size returns the number of stored vectors.
func (ix *index) size() int {
	return len(ix.vectors)
}

// nearest returns the smallest squared Euclidean distance between vec and
// any stored vector. ok is false when the index is empty.
func (ix *index) nearest(vec []float32) (float64, bool) {
	if len(ix.vectors) == 0 {
		return 0, false
	}

	best := squaredL2(vec, ix.vectors[0])
	for _, stored := range ix.vectors[1:] {
		if d := squaredL2(vec, stored); d < best {
			best = d
		}
	}
	return best, true
}

func squaredL2(a, b []float32) float64 {
	longer := a
	if len(b) > len(a) {
		longer = b
	}

	var sum float64
	for i := range longer {
		var av, bv float64
		if i < len(a) {
			av = float64(a[i])
		}
		if i < len(b) {
			bv = float64(b[i])
		}
		d := av - bv
		sum += d * d
	}
	return sum
}
