package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// TemplateRepo implements TemplateRepository using PostgreSQL. One row per
// reference embedding; a user's rows always belong to a single enrollment
// generation because Replace swaps them inside one transaction.
type TemplateRepo struct{ db *DB }

// NewTemplateRepo constructs a template repository.
func NewTemplateRepo(db *DB) *TemplateRepo { return &TemplateRepo{db: db} }

// Replace swaps the user's template wholesale. Readers inside their own
// transactions never observe a partially replaced set.
func (r *TemplateRepo) Replace(ctx context.Context, userID int64, embeddings []model.Embedding) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	const del = `DELETE FROM face_templates WHERE user_id=$1`
	if _, err = tx.Exec(ctx, del, userID); err != nil {
		return err
	}
	const ins = `INSERT INTO face_templates (user_id, idx, embedding, enrolled_at) VALUES ($1,$2,$3,now())`
	for i, emb := range embeddings {
		if _, err = tx.Exec(ctx, ins, userID, i, []float32(emb)); err != nil {
			return err
		}
	}
	return nil
}

// Get loads one user's template.
func (r *TemplateRepo) Get(ctx context.Context, userID int64) (*model.Template, error) {
	const q = `
SELECT embedding, enrolled_at FROM face_templates
WHERE user_id=$1 ORDER BY idx`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := model.Template{UserID: userID}
	for rows.Next() {
		var emb []float32
		var at time.Time
		if err := rows.Scan(&emb, &at); err != nil {
			return nil, err
		}
		t.Embeddings = append(t.Embeddings, model.Embedding(emb))
		t.EnrolledAt = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t.Embeddings) == 0 {
		return nil, errs.ErrNotFound
	}
	return &t, nil
}

// All loads every stored template, grouped per user, ordered for stable scans.
func (r *TemplateRepo) All(ctx context.Context) ([]model.Template, error) {
	const q = `
SELECT user_id, embedding, enrolled_at FROM face_templates
ORDER BY user_id, idx`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var userID int64
		var emb []float32
		var at time.Time
		if err := rows.Scan(&userID, &emb, &at); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].UserID != userID {
			out = append(out, model.Template{UserID: userID, EnrolledAt: at})
		}
		last := &out[len(out)-1]
		last.Embeddings = append(last.Embeddings, model.Embedding(emb))
	}
	return out, rows.Err()
}
