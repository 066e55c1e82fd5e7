package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"chatmatch/internal/domain"
	"chatmatch/internal/entitlement"
	"chatmatch/internal/infra"
	"chatmatch/internal/sqlinline"
)

// usageCommitAttempts bounds the optimistic-update retry loop in CommitUsage.
const usageCommitAttempts = 3

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql    infra.SQLExecutor
	engine *entitlement.Engine
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor, engine *entitlement.Engine) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql, engine: engine}
}

// UpsertByTelegramID inserts or refreshes a user keyed by Telegram id. New
// rows start with zero counters and last_reset_at = now.
func (r *UserRepositoryPG) UpsertByTelegramID(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertTelegramUser,
		user.TelegramID, user.Username, user.FirstName, user.LastName, user.PhotoURL)
	return scanUser(row)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// GetByTelegramID fetches a user by Telegram identifier.
func (r *UserRepositoryPG) GetByTelegramID(ctx context.Context, telegramID string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByTelegramID, telegramID))
}

// GetByStripeCustomerID fetches a user by its Stripe customer id.
func (r *UserRepositoryPG) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByStripeCustomer, customerID))
}

// SetStripeCustomerID stores the Stripe customer reference for the user.
func (r *UserRepositoryPG) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetStripeCustomerID, userID, customerID)
	return err
}

// SetSubscription rewrites the subscription fields. Only webhook and cancel
// flows call this.
func (r *UserRepositoryPG) SetSubscription(ctx context.Context, userID string, subType domain.SubscriptionType, active bool, expiresAt *time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetSubscription, userID, string(subType), active, expiresAt)
	return err
}

// CommitUsage charges one completed generation against the user's counters.
// The delta is computed by the entitlement engine from a fresh snapshot and
// written with a conditional update; when a concurrent commit got there
// first the condition fails and the read-compute-write cycle is retried on
// the new counters, so no increment is ever lost.
func (r *UserRepositoryPG) CommitUsage(ctx context.Context, userID string, now time.Time) (*domain.User, error) {
	for attempt := 0; attempt < usageCommitAttempts; attempt++ {
		user, err := r.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		delta := r.engine.ApplyUsage(user.EntitlementSnapshot(), now)
		updated, err := scanUser(r.sql.QueryRow(ctx, sqlinline.QConditionalUsageUpdate,
			userID, delta.DailyUsed, delta.MonthlyUsed, delta.LastResetAt,
			user.DailyGenerations, user.MonthlyGenerations, user.LastResetAt))
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("commit usage for user %s: %w", userID, domain.ErrConflict)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var subType string
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.PhotoURL, &subType, &u.SubscriptionActive, &u.SubscriptionExpiresAt,
		&u.StripeCustomerID, &u.DailyGenerations, &u.MonthlyGenerations,
		&u.LastResetAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.SubscriptionType = domain.SubscriptionType(subType)
	return &u, nil
}
