package match

import (
	"fmt"
	"math"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// Policy is the acceptance policy applied to the best candidate.
type Policy struct {
	// Threshold is the maximum distance accepted as a match.
	Threshold float64
	// Margin is the minimum separation required between the best and
	// second-best user before the best one is accepted. Near-ties between two
	// different users are never resolved in favor of either.
	Margin float64
}

// Identifier decides which enrolled user, if any, a probe belongs to.
// Implementations must be pure functions over their inputs so that results
// are deterministic and testable; the linear scan below can later be swapped
// for an approximate-nearest-neighbor index behind this interface.
type Identifier interface {
	// Identify returns the accepted candidate or errs.ErrNoMatch. The template
	// slice is an immutable snapshot; Identify must not retain or modify it.
	Identify(probe model.Embedding, templates []model.Template) (model.MatchCandidate, error)
}

// LinearEngine scans every template of every user. A user's score is the
// minimum distance between the probe and any of that user's embeddings, so
// the closest captured pose wins.
type LinearEngine struct {
	metric Metric
	policy Policy
	dim    int
}

// NewLinearEngine constructs the scan engine for a fixed metric, policy and
// embedding dimension.
func NewLinearEngine(metric Metric, policy Policy, dim int) (*LinearEngine, error) {
	if policy.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %v", policy.Threshold)
	}
	if policy.Margin < 0 {
		return nil, fmt.Errorf("margin must be non-negative, got %v", policy.Margin)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &LinearEngine{metric: metric, policy: policy, dim: dim}, nil
}

// Identify scores the probe against every enrolled template and applies the
// acceptance policy. Returns errs.ErrNoMatch when the store is empty, when no
// score clears the threshold, or when the two best users are within the
// ambiguity margin of each other.
func (e *LinearEngine) Identify(probe model.Embedding, templates []model.Template) (model.MatchCandidate, error) {
	if len(probe) != e.dim {
		return model.MatchCandidate{}, fmt.Errorf("probe length %d: %w", len(probe), errs.ErrDimensionMismatch)
	}

	best := model.MatchCandidate{Distance: math.Inf(1)}
	second := math.Inf(1)

	for _, t := range templates {
		score := math.Inf(1)
		for _, ref := range t.Embeddings {
			if len(ref) != e.dim {
				continue
			}
			if d := e.metric.Distance(probe, ref); d < score {
				score = d
			}
		}
		switch {
		case score < best.Distance:
			second = best.Distance
			best = model.MatchCandidate{UserID: t.UserID, Distance: score}
		case score < second:
			second = score
		}
	}

	if math.IsInf(best.Distance, 1) || best.Distance >= e.policy.Threshold {
		return model.MatchCandidate{}, errs.ErrNoMatch
	}
	if second-best.Distance < e.policy.Margin {
		// Two different users scored too close together to decide.
		return model.MatchCandidate{}, errs.ErrNoMatch
	}
	return best, nil
}
