package repository

import (
	"context"

	"github.com/centbank/facegate/internal/model"
)

// TemplateRepository persists enrollment templates.
type TemplateRepository interface {
	// Replace atomically swaps the user's template for the given embeddings.
	// Readers never observe a partially replaced template.
	Replace(ctx context.Context, userID int64, embeddings []model.Embedding) error
	// Get loads one user's template.
	Get(ctx context.Context, userID int64) (*model.Template, error)
	// All loads every stored template, one per enrolled user.
	All(ctx context.Context) ([]model.Template, error)
}
