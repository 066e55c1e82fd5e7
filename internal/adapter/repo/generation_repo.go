package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"chatmatch/internal/domain"
	"chatmatch/internal/infra"
	"chatmatch/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository backed by PostgreSQL.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a new GenerationRepositoryPG.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create persists a generation result and fills in its id and timestamp.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGeneration,
		gen.UserID, gen.Tone, gen.Messages, gen.Responses, gen.TokensUsed, gen.Model)
	return row.Scan(&gen.ID, &gen.CreatedAt)
}

// GetForUser fetches a generation scoped to its owner.
func (r *GenerationRepositoryPG) GetForUser(ctx context.Context, id, userID string) (*domain.Generation, error) {
	var g domain.Generation
	row := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationForUser, id, userID)
	if err := row.Scan(&g.ID, &g.UserID, &g.Tone, &g.Messages, &g.Responses,
		&g.SelectedResponse, &g.TokensUsed, &g.Model, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListByUser returns a page of the user's generations, newest first.
func (r *GenerationRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Generation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationsByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Generation
	for rows.Next() {
		var g domain.Generation
		if err := rows.Scan(&g.ID, &g.Tone, &g.Responses, &g.SelectedResponse, &g.TokensUsed, &g.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// CountByUser returns the total number of generations for the user.
func (r *GenerationRepositoryPG) CountByUser(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountGenerationsByUser, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// SelectResponse marks which suggested reply the user picked.
func (r *GenerationRepositoryPG) SelectResponse(ctx context.Context, id, userID, response string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSelectGenerationResponse, id, userID, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
