// Package enroll builds enrollment templates from captured frames.
package enroll

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/biometric"
	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/match"
	"github.com/centbank/facegate/internal/model"
	"github.com/centbank/facegate/internal/repository"
)

// Service aggregates a batch of registration frames into a stored template.
// All valid embeddings are kept verbatim (no averaging) so the matcher can
// compare a probe against every captured pose independently.
type Service struct {
	source     biometric.Source
	templates  repository.TemplateRepository
	store      *match.Store
	minSamples int
	log        *zap.Logger
}

// NewService constructs the enrollment aggregator. minSamples is the minimum
// number of frames with a detectable face required to accept a batch.
func NewService(source biometric.Source, templates repository.TemplateRepository, store *match.Store, minSamples int, log *zap.Logger) *Service {
	if minSamples <= 0 {
		minSamples = 5
	}
	return &Service{source: source, templates: templates, store: store, minSamples: minSamples, log: log}
}

// Enroll extracts embeddings from the submitted frames and replaces the
// user's template. Frames without a detectable face are skipped; if fewer
// than minSamples remain the batch is rejected with errs.ErrInsufficientSamples
// and any previous template is retained unchanged. Returns the number of
// embeddings stored.
func (s *Service) Enroll(ctx context.Context, userID int64, frames []string) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("validation: user id %d", userID)
	}

	embeddings := make([]model.Embedding, 0, len(frames))
	for i, frame := range frames {
		emb, err := s.source.Extract(ctx, frame)
		if err != nil {
			if errors.Is(err, errs.ErrNoFace) {
				s.log.Debug("enroll frame skipped, no face",
					zap.Int64("user_id", userID), zap.Int("frame", i))
				continue
			}
			return 0, fmt.Errorf("extract frame %d: %w", i, err)
		}
		embeddings = append(embeddings, emb)
	}

	if len(embeddings) < s.minSamples {
		return 0, fmt.Errorf("%d of %d frames usable, need %d: %w",
			len(embeddings), len(frames), s.minSamples, errs.ErrInsufficientSamples)
	}

	// Durable replace first; the in-process snapshot follows only once the
	// new generation is committed.
	if err := s.templates.Replace(ctx, userID, embeddings); err != nil {
		return 0, fmt.Errorf("replace template: %w", err)
	}
	s.store.Replace(userID, embeddings)

	s.log.Info("template enrolled",
		zap.Int64("user_id", userID),
		zap.Int("samples", len(embeddings)))
	return len(embeddings), nil
}
