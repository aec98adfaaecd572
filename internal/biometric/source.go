// Package biometric abstracts the external face-localization and embedding
// model. The core never touches pixels; it sees either one embedding per
// frame or a no-face signal.
package biometric

import (
	"context"

	"github.com/centbank/facegate/internal/model"
)

// Source extracts a single embedding for the most prominent face in a frame.
// Frames arrive as base64-encoded images (optionally with a data-URL prefix,
// which implementations strip). Returns errs.ErrNoFace when the model finds
// no usable face.
type Source interface {
	Extract(ctx context.Context, imageB64 string) (model.Embedding, error)
}
