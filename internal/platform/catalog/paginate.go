package catalog

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// Paginate returns the 1-based page of items and the total page count.
// An empty input is one empty page; a page out of range is empty.
func Paginate[T any](items []T, page, perPage int) ([]T, int) {
	if len(items) == 0 {
		return []T{}, 1
	}
	if perPage <= 0 {
		perPage = len(items)
	}

	totalPages := (len(items) + perPage - 1) / perPage
	if page < 1 {
		return []T{}, totalPages
	}

	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}, totalPages
	}
	end := min(start+perPage, len(items))

	return items[start:end], totalPages
}

// Shuffle returns a copy of items in an order fixed by seed. Numeric seeds
// are used as-is; anything else is hashed.
func Shuffle[T any](items []T, seed string) []T {
	out := append([]T{}, items...)
	r := rand.New(rand.NewPCG(seedValue(seed), 0))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// NewSeed picks a fresh shuffle seed
func NewSeed() string {
	return strconv.Itoa(rand.IntN(1_000_000_000))
}

func seedValue(seed string) uint64 {
	if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return uint64(n)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}
