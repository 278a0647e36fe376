// Package position assigns coarse position buckets to the tokens of a single
// sample. A resolution of 1 keeps absolute positions; a larger resolution
// partitions the sample into that many consecutive slots.
package position

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
)

// Placement is one token of a sample together with the bucket it fell into.
type Placement struct {
	Token  string
	Bucket int
}

// Map converts a sample into (token, bucket) placements in input order.
//
// With resolution > 1 the sample is cut into resolution buckets of
// floor(len/resolution) tokens each. Tokens left over when the length is not
// a multiple of resolution all land in the last bucket, resolution-1. A
// sample shorter than resolution falls back to absolute positions.
//
// Empty tokens keep their slot but produce no placement.
func Map(sample []string, resolution int) ([]Placement, error) {
	if resolution < 1 {
		return nil, apperrors.InvalidParameterf("resolution must be >= 1, got %d", resolution)
	}
	jump, slots := Layout(len(sample), resolution)

	placements := make([]Placement, 0, len(sample))
	k := 0
	bucket := 0
	for i := 0; i < slots; i++ {
		bucket = i
		for j := 0; j < jump; j++ {
			if tok := sample[k]; tok != "" {
				placements = append(placements, Placement{Token: tok, Bucket: bucket})
			}
			k++
		}
	}
	for ; k < len(sample); k++ {
		if tok := sample[k]; tok != "" {
			placements = append(placements, Placement{Token: tok, Bucket: bucket})
		}
	}
	return placements, nil
}

// Layout returns the number of tokens per bucket and the number of buckets
// used for a sample of length n. resolution must be >= 1.
func Layout(n int, resolution int) (jump int, slots int) {
	if resolution > 1 {
		if jump = n / resolution; jump > 0 {
			return jump, resolution
		}
	}
	return 1, n
}
