package compute

import (
	"errors"
	"math"
)

// ErrEmpty is returned by Mean for an empty list
var ErrEmpty = errors.New("compute: mean of empty list")

// Mean returns the arithmetic mean of xs as sum/len. If the running sum
// overflows it falls back to summing x/len so finite inputs give a finite
// result.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}

	n := float64(len(xs))
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	if !math.IsInf(sum, 0) {
		return sum / n, nil
	}

	mean := 0.0
	for _, x := range xs {
		mean += x / n
	}
	return mean, nil
}
