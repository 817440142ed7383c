package matcher

import (
	"math"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// EuclideanDistance computes the L2 distance between two descriptors.
// Mismatched or empty inputs report +Inf so they can never be accepted.
func EuclideanDistance(a, b types.Descriptor) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
