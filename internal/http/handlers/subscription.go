package handlers

import (
	"errors"
	"net/http"
	"time"

	"chatmatch/internal/domain"
	"chatmatch/internal/payments"
)

type planDTO struct {
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Generations int      `json:"generations"`
	Period      string   `json:"period"`
	Features    []string `json:"features"`
}

// SubscriptionInfo returns the user's current subscription, quota view and
// the plan catalog.
func (a *App) SubscriptionInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	now := time.Now()
	a.json(w, http.StatusOK, map[string]any{
		"subscription": subscriptionDTO{
			Type:      user.SubscriptionType,
			Active:    user.SubscriptionActive,
			ExpiresAt: user.SubscriptionExpiresAt,
		},
		"usage": a.Engine.UsageInfo(user.EntitlementSnapshot(), now),
		"plans": map[string]planDTO{
			"free": {
				Name:        "Free",
				Price:       0,
				Currency:    "RUB",
				Generations: a.Engine.FreeDailyLimit,
				Period:      "day",
				Features: []string{
					"5 генераций в день",
					"3 тона общения",
					"История последних генераций",
				},
			},
			"pro": {
				Name:        "Pro",
				Price:       a.Cfg.ProPriceRub,
				Currency:    "RUB",
				Generations: a.Engine.ProMonthlyLimit,
				Period:      "month",
				Features: []string{
					"300 генераций в месяц",
					"3 тона общения",
					"Полная история генераций",
					"Приоритетная поддержка",
					"Новые функции первыми",
				},
			},
		},
	})
}

// StripeCreateCheckout opens a Stripe checkout session for the pro plan
// and records a pending payment keyed by the session id.
func (a *App) StripeCreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	customerID, err := a.Stripe.EnsureCustomer(r.Context(), user)
	if err != nil {
		a.stripeError(w, err, "create stripe customer failed")
		return
	}
	if customerID != user.StripeCustomerID {
		if err := a.Users.SetStripeCustomerID(r.Context(), user.ID, customerID); err != nil {
			a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("store stripe customer id failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to persist customer")
			return
		}
		user.StripeCustomerID = customerID
	}

	session, err := a.Stripe.CreateCheckoutSession(r.Context(), customerID, user)
	if err != nil {
		a.stripeError(w, err, "create checkout session failed")
		return
	}

	a.json(w, http.StatusOK, map[string]string{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// StripeSession reports the payment status of a checkout session, used by
// the success page to confirm activation.
func (a *App) StripeSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}
	info, err := a.Stripe.GetSession(r.Context(), sessionID)
	if err != nil {
		a.stripeError(w, err, "get checkout session failed")
		return
	}
	a.json(w, http.StatusOK, info)
}

// StarsCreateInvoice records a pending Telegram Stars payment and hands
// back the invoice link carrying its id.
func (a *App) StarsCreateInvoice(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if a.Cfg.StarsInvoiceLink == "" {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "telegram stars payments are not configured")
		return
	}
	payment := &domain.Payment{
		UserID:             user.ID,
		Amount:             payments.StarsAmount,
		Currency:           payments.StarsCurrency,
		Provider:           domain.PaymentProviderTelegramStars,
		Status:             domain.PaymentPending,
		SubscriptionType:   domain.SubscriptionPro,
		SubscriptionPeriod: "month",
		ExpiresAt:          time.Now().AddDate(0, a.Cfg.SubscriptionPeriodMonths, 0),
	}
	if err := a.Payments.Create(r.Context(), payment); err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("store pending payment failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record payment")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"invoice_link": payments.StarsInvoiceLink(a.Cfg.StarsInvoiceLink, payment.ID),
		"payment_id":   payment.ID,
		"amount":       payments.StarsAmount,
		"currency":     "stars",
	})
}

// SubscriptionCancel flags the user's Stripe subscriptions for
// cancellation at period end. The subscription record stays active so
// access continues until the already-paid expiry passes.
func (a *App) SubscriptionCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if user.StripeCustomerID != "" && a.Stripe.Enabled() {
		if err := a.Stripe.CancelAtPeriodEnd(r.Context(), user.StripeCustomerID); err != nil {
			a.stripeError(w, err, "cancel subscription failed")
			return
		}
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Subscription cancelled. Access will continue until the end of billing period.",
	})
}

type paymentDTO struct {
	ID                 string                  `json:"id"`
	Amount             int64                   `json:"amount"`
	Currency           string                  `json:"currency"`
	Provider           domain.PaymentProvider  `json:"provider"`
	Status             domain.PaymentStatus    `json:"status"`
	SubscriptionType   domain.SubscriptionType `json:"subscription_type"`
	SubscriptionPeriod string                  `json:"subscription_period"`
	ExpiresAt          time.Time               `json:"expires_at"`
	CreatedAt          time.Time               `json:"created_at"`
}

// PaymentHistory lists the user's payments, newest first.
func (a *App) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	page, limit := pagination(r, 10)
	offset := (page - 1) * limit

	list, err := a.Payments.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("list payments failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to get payment history")
		return
	}
	total, err := a.Payments.CountByUser(r.Context(), user.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("count payments failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to get payment history")
		return
	}

	items := make([]paymentDTO, 0, len(list))
	for _, p := range list {
		items = append(items, paymentDTO{
			ID:                 p.ID,
			Amount:             p.Amount,
			Currency:           p.Currency,
			Provider:           p.Provider,
			Status:             p.Status,
			SubscriptionType:   p.SubscriptionType,
			SubscriptionPeriod: p.SubscriptionPeriod,
			ExpiresAt:          p.ExpiresAt,
			CreatedAt:          p.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"payments": items,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// requireUser resolves the authenticated user or writes the error response.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("load user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user")
		return nil, false
	}
	return user, true
}

func (a *App) stripeError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, payments.ErrStripeDisabled) {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "card payments are not configured")
		return
	}
	a.Logger.Error().Err(err).Msg(logMsg)
	a.error(w, http.StatusBadGateway, "provider_failure", "payment provider error")
}
