package outline

import (
	"math"
	"sort"
)

// RoundSize rounds a font size to 2 decimals so equal sizes group together.
func RoundSize(size float64) float64 {
	return math.Round(size*100) / 100
}

// clusterSizes partitions the distinct sizes into at most k contiguous bands
// and returns the band id of every size. The cut points are the k-1 widest
// gaps between neighbouring sizes; equal gaps are cut nearer the large end.
// Band ids are opaque: callers rank bands by mean size, never by id.
func clusterSizes(sizes []float64, k int) map[float64]int {
	distinct := make([]float64, 0, len(sizes))
	seen := make(map[float64]bool, len(sizes))
	for _, s := range sizes {
		if !seen[s] {
			seen[s] = true
			distinct = append(distinct, s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))

	if k > len(distinct) {
		k = len(distinct)
	}
	if k < 1 {
		k = 1
	}

	// gaps[i] is the distance between distinct[i] and distinct[i+1].
	gapIdx := make([]int, 0, len(distinct))
	for i := 0; i+1 < len(distinct); i++ {
		gapIdx = append(gapIdx, i)
	}
	sort.SliceStable(gapIdx, func(a, b int) bool {
		return distinct[gapIdx[a]]-distinct[gapIdx[a]+1] > distinct[gapIdx[b]]-distinct[gapIdx[b]+1]
	})
	cut := make(map[int]bool, k-1)
	for _, i := range gapIdx[:k-1] {
		cut[i] = true
	}

	bands := make(map[float64]int, len(distinct))
	band := 0
	for i, s := range distinct {
		bands[s] = band
		if cut[i] {
			band++
		}
	}
	return bands
}

// rankBands orders band ids by the mean size of their members, largest
// first, and returns the 1-based level of each band.
func rankBands(spanSizes []float64, bands map[float64]int) map[int]int {
	sum := make(map[int]float64)
	count := make(map[int]int)
	for _, s := range spanSizes {
		b := bands[s]
		sum[b] += s
		count[b]++
	}

	ids := make([]int, 0, len(count))
	for b := range count {
		ids = append(ids, b)
	}
	sort.Slice(ids, func(i, j int) bool {
		mi := sum[ids[i]] / float64(count[ids[i]])
		mj := sum[ids[j]] / float64(count[ids[j]])
		if mi != mj {
			return mi > mj
		}
		return ids[i] < ids[j]
	})

	levels := make(map[int]int, len(ids))
	for rank, b := range ids {
		levels[b] = rank + 1
	}
	return levels
}
