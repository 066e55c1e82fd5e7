package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chatmatch/internal/domain"
	"chatmatch/internal/entitlement"
	"chatmatch/internal/infra"
	"chatmatch/internal/middleware"
	"chatmatch/internal/payments"
	"chatmatch/internal/providers/replies"
)

// ReplyGenerator is the slice of the suggestion generator handlers call;
// tests substitute a fake.
type ReplyGenerator interface {
	Generate(ctx context.Context, msgs []replies.Message, tone replies.Tone) (*replies.Result, error)
}

// BotAPI is the slice of the Telegram Bot API the webhook handler calls.
type BotAPI interface {
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
}

// App is the handler container: every route is a method on it.
type App struct {
	Cfg    *infra.Config
	Logger zerolog.Logger

	Users       domain.UserRepository
	Generations domain.GenerationRepository
	Payments    domain.PaymentRepository

	Engine  *entitlement.Engine
	Replies ReplyGenerator
	Stripe  *payments.StripeService
	Bot     BotAPI
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// userDTO is the client-facing user profile shared by the auth and
// profile responses.
type userDTO struct {
	ID           string            `json:"id"`
	TelegramID   string            `json:"telegram_id"`
	Username     string            `json:"username,omitempty"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	PhotoURL     string            `json:"photo_url,omitempty"`
	Subscription subscriptionDTO   `json:"subscription"`
	Usage        entitlement.Usage `json:"usage"`
}

type subscriptionDTO struct {
	Type      domain.SubscriptionType `json:"type"`
	Active    bool                    `json:"active"`
	ExpiresAt *time.Time              `json:"expires_at,omitempty"`
}

func (a *App) userDTO(u *domain.User, now time.Time) userDTO {
	return userDTO{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		PhotoURL:   u.PhotoURL,
		Subscription: subscriptionDTO{
			Type:      u.SubscriptionType,
			Active:    u.SubscriptionActive,
			ExpiresAt: u.SubscriptionExpiresAt,
		},
		Usage: a.Engine.UsageInfo(u.EntitlementSnapshot(), now),
	}
}
