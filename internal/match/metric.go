// Package match implements the identity-matching decision engine: distance
// metrics, the acceptance policy, and the scan over enrolled templates.
package match

import (
	"fmt"
	"math"

	"github.com/centbank/facegate/internal/model"
)

// Metric selects the distance function. It is fixed for a whole deployment;
// templates enrolled under one metric are not comparable under another.
type Metric string

const (
	Euclidean Metric = "euclidean"
	Cosine    Metric = "cosine"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Euclidean, Cosine:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

// Distance computes the metric distance between two equal-length vectors.
// Euclidean is the L2 norm of the difference; cosine is 1 - cos(a, b),
// ranging [0, 2].
func (m Metric) Distance(a, b model.Embedding) float64 {
	switch m {
	case Cosine:
		return cosineDistance(a, b)
	default:
		return euclideanDistance(a, b)
	}
}

func euclideanDistance(a, b model.Embedding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func cosineDistance(a, b model.Embedding) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		// A zero vector carries no direction; treat as maximally distant.
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
