package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"chatmatch/internal/domain"
	"chatmatch/internal/infra"
	"chatmatch/internal/sqlinline"
)

// PaymentRepositoryPG implements domain.PaymentRepository backed by PostgreSQL.
type PaymentRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPaymentRepository creates a new PaymentRepositoryPG.
func NewPaymentRepository(sql infra.SQLExecutor) *PaymentRepositoryPG {
	return &PaymentRepositoryPG{sql: sql}
}

// Create persists a payment record and fills in its id.
func (r *PaymentRepositoryPG) Create(ctx context.Context, payment *domain.Payment) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertPayment,
		payment.UserID, payment.Amount, payment.Currency, string(payment.Provider),
		string(payment.Status), string(payment.SubscriptionType), payment.SubscriptionPeriod,
		payment.ExpiresAt, payment.StripePaymentIntentID)
	return row.Scan(&payment.ID)
}

// GetByID fetches a payment by UUID.
func (r *PaymentRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	var provider, status, subType string
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPaymentByID, id)
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &provider, &status,
		&subType, &p.SubscriptionPeriod, &p.ExpiresAt, &p.StripePaymentIntentID,
		&p.TelegramChargeID, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Provider = domain.PaymentProvider(provider)
	p.Status = domain.PaymentStatus(status)
	p.SubscriptionType = domain.SubscriptionType(subType)
	return &p, nil
}

// MarkSucceeded finalizes a pending payment.
func (r *PaymentRepositoryPG) MarkSucceeded(ctx context.Context, id, telegramChargeID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkPaymentSucceeded, id, telegramChargeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByUser returns a page of the user's payments, newest first.
func (r *PaymentRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Payment, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPaymentsByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var provider, status, subType string
		if err := rows.Scan(&p.ID, &p.Amount, &p.Currency, &provider, &status,
			&subType, &p.SubscriptionPeriod, &p.ExpiresAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Provider = domain.PaymentProvider(provider)
		p.Status = domain.PaymentStatus(status)
		p.SubscriptionType = domain.SubscriptionType(subType)
		items = append(items, p)
	}
	return items, rows.Err()
}

// CountByUser returns the total number of payments for the user.
func (r *PaymentRepositoryPG) CountByUser(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountPaymentsByUser, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
