package domain

import (
	"time"

	"chatmatch/internal/entitlement"
)

// SubscriptionType enumerates billing plans.
type SubscriptionType string

const (
	SubscriptionFree SubscriptionType = "free"
	SubscriptionPro  SubscriptionType = "pro"
)

// User represents a Telegram account authenticated against the platform.
// Subscription fields are written only by the payment webhook and cancel
// flows; usage counters are written only through CommitUsage.
type User struct {
	ID                    string
	TelegramID            string
	Username              string
	FirstName             string
	LastName              string
	PhotoURL              string
	SubscriptionType      SubscriptionType
	SubscriptionActive    bool
	SubscriptionExpiresAt *time.Time
	StripeCustomerID      string
	DailyGenerations      int
	MonthlyGenerations    int
	LastResetAt           time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EntitlementSnapshot projects the user onto the entitlement engine's view.
func (u User) EntitlementSnapshot() entitlement.Snapshot {
	return entitlement.Snapshot{
		SubscriptionActive:    u.SubscriptionActive,
		SubscriptionExpiresAt: u.SubscriptionExpiresAt,
		DailyUsed:             u.DailyGenerations,
		MonthlyUsed:           u.MonthlyGenerations,
		LastResetAt:           u.LastResetAt,
	}
}
