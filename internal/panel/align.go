package panel

import (
	"fmt"
	"sort"
)

// Years returns the sorted distinct years produced by year.
func Years[T any](obs []T, year func(T) int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, o := range obs {
		y := year(o)
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

// CommonYears returns the sorted intersection of the given year sets.
func CommonYears(sets ...[]int) ([]int, error) {
	if len(sets) == 0 {
		return nil, ErrNoCommonYears
	}

	counts := make(map[int]int)
	for _, set := range sets {
		seen := make(map[int]bool, len(set))
		for _, y := range set {
			if !seen[y] {
				seen[y] = true
				counts[y]++
			}
		}
	}

	var out []int
	for y, n := range counts {
		if n == len(sets) {
			out = append(out, y)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCommonYears
	}
	sort.Ints(out)
	return out, nil
}

// ChooseWindow returns the most recent run of length consecutive years in
// common, which must be sorted. For {2015..2019, 2021, 2022, 2023} and a
// length of 5 that is 2015-2019: the later run is too short.
func ChooseWindow(common []int, length int) (start, end int, err error) {
	if length <= 0 {
		return 0, 0, fmt.Errorf("window length must be positive, got %d", length)
	}
	if len(common) == 0 {
		return 0, 0, ErrNoCommonYears
	}

	run := 1
	best := -1
	for i := 1; i <= len(common); i++ {
		if i < len(common) && common[i] == common[i-1]+1 {
			run++
			continue
		}
		// run ends at i-1
		if run >= length {
			best = i - 1
		}
		run = 1
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("%w of %d years in %v", ErrNoContiguousWindow, length, common)
	}
	return common[best] - length + 1, common[best], nil
}
