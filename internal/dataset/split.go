package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Split shuffles 0..n-1 with a PCG source seeded by seed and holds out
// round(n*testFraction) indices, keeping at least one sample on each side.
// Both slices are returned sorted.
func Split(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFraction)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 samples to split, have %d", ErrNoSamples, n)
	}

	nTest := int(math.Round(float64(n) * testFraction))
	nTest = max(1, min(nTest, n-1))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)

	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}
