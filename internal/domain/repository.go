package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	UpsertByTelegramID(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	SetSubscription(ctx context.Context, userID string, subType SubscriptionType, active bool, expiresAt *time.Time) error
	// CommitUsage charges one completed generation against the user's
	// counters atomically. It must be called only after the billable
	// action itself succeeded.
	CommitUsage(ctx context.Context, userID string, now time.Time) (*User, error)
}

// GenerationRepository defines persistence for generation results.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	GetForUser(ctx context.Context, id, userID string) (*Generation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	SelectResponse(ctx context.Context, id, userID, response string) error
}

// PaymentRepository defines persistence for payment records.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	MarkSucceeded(ctx context.Context, id, telegramChargeID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Payment, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
