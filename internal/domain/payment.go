package domain

import "time"

// PaymentProvider enumerates supported payment channels.
type PaymentProvider string

const (
	PaymentProviderStripe        PaymentProvider = "stripe"
	PaymentProviderTelegramStars PaymentProvider = "telegram_stars"
)

// PaymentStatus enumerates payment lifecycle states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one subscription purchase attempt.
type Payment struct {
	ID                    string
	UserID                string
	Amount                int64
	Currency              string
	Provider              PaymentProvider
	Status                PaymentStatus
	SubscriptionType      SubscriptionType
	SubscriptionPeriod    string
	ExpiresAt             time.Time
	StripePaymentIntentID string
	TelegramChargeID      string
	CreatedAt             time.Time
}
