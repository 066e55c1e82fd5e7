package payments

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"chatmatch/internal/domain"
)

// ErrStripeDisabled is returned when the service was constructed without a
// secret key; handlers translate it to a 503 for the payment routes.
var ErrStripeDisabled = errors.New("stripe is not configured")

// StripeService wraps the Stripe API surface the subscription flows need:
// customers, checkout sessions, cancellation and webhook verification.
type StripeService struct {
	sc            *client.API
	webhookSecret string
	priceID       string
	frontendURL   string
}

// NewStripeService builds the service; a missing secret key yields a
// disabled service rather than an error so deployments without Stripe
// still boot.
func NewStripeService(secretKey, webhookSecret, priceID, frontendURL string) *StripeService {
	svc := &StripeService{
		webhookSecret: webhookSecret,
		priceID:       priceID,
		frontendURL:   frontendURL,
	}
	if secretKey != "" {
		svc.sc = &client.API{}
		svc.sc.Init(secretKey, nil)
	}
	return svc
}

// Enabled reports whether Stripe calls can be made.
func (s *StripeService) Enabled() bool { return s != nil && s.sc != nil }

// EnsureCustomer returns the user's Stripe customer id, creating the
// customer on first use. Telegram users have no real email, so a
// synthetic one keyed by telegram id is used, matching the dashboard
// convention the payment flows rely on.
func (s *StripeService) EnsureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if !s.Enabled() {
		return "", ErrStripeDisabled
	}
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(fmt.Sprintf("%s@telegram.user", user.TelegramID)),
	}
	params.AddMetadata("telegramId", user.TelegramID)
	params.AddMetadata("userId", user.ID)
	customer, err := s.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return customer.ID, nil
}

// CheckoutSession is the subset of the created session the API returns to
// clients.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a subscription checkout for the pro plan.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, customerID string, user *domain.User) (*CheckoutSession, error) {
	if !s.Enabled() {
		return nil, ErrStripeDisabled
	}
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.priceID), Quantity: stripe.Int64(1)},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.frontendURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.frontendURL + "/subscription/cancel"),
	}
	params.AddMetadata("userId", user.ID)
	params.AddMetadata("telegramId", user.TelegramID)
	session, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// SessionInfo is the client-facing view of a checkout session's state.
type SessionInfo struct {
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email,omitempty"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
}

// GetSession retrieves the payment status of a checkout session.
func (s *StripeService) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if !s.Enabled() {
		return nil, ErrStripeDisabled
	}
	session, err := s.sc.CheckoutSessions.Get(sessionID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	info := &SessionInfo{
		Status:      string(session.PaymentStatus),
		AmountTotal: session.AmountTotal,
		Currency:    string(session.Currency),
	}
	if session.CustomerDetails != nil {
		info.CustomerEmail = session.CustomerDetails.Email
	}
	return info, nil
}

// CancelAtPeriodEnd flags every active subscription of the customer for
// cancellation at period end; access continues until the paid-for period
// expires.
func (s *StripeService) CancelAtPeriodEnd(ctx context.Context, customerID string) error {
	if !s.Enabled() {
		return ErrStripeDisabled
	}
	iter := s.sc.Subscriptions.List(&stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Status:     stripe.String(string(stripe.SubscriptionStatusActive)),
	})
	for iter.Next() {
		sub := iter.Subscription()
		_, err := s.sc.Subscriptions.Update(sub.ID, &stripe.SubscriptionParams{
			Params:            stripe.Params{Context: ctx},
			CancelAtPeriodEnd: stripe.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
		}
	}
	return iter.Err()
}

// VerifyWebhook authenticates a webhook delivery against the endpoint
// signing secret and returns the parsed event.
func (s *StripeService) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	if s == nil || s.webhookSecret == "" {
		return stripe.Event{}, ErrStripeDisabled
	}
	event, err := webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("verify stripe webhook: %w", err)
	}
	return event, nil
}
