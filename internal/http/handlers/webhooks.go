package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v78"

	"chatmatch/internal/domain"
	"chatmatch/internal/payments"
)

const webhookBodyLimit = 1 << 20

// StripeWebhook processes subscription lifecycle events. Signature
// verification happens before any payload field is trusted; unhandled
// event types are acknowledged so Stripe stops retrying them.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	event, err := a.Stripe.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("stripe webhook verification failed")
		a.error(w, http.StatusBadRequest, "bad_request", "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = a.handleCheckoutCompleted(r, event)
	case "invoice.payment_succeeded":
		err = a.handleInvoicePaid(r, event)
	case "invoice.payment_failed":
		err = a.handleInvoiceFailed(r, event)
	case "customer.subscription.updated":
		err = a.handleSubscriptionUpdated(r, event)
	case "customer.subscription.deleted":
		err = a.handleSubscriptionDeleted(r, event)
	default:
		a.Logger.Debug().Str("type", string(event.Type)).Msg("unhandled stripe event")
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("type", string(event.Type)).Msg("stripe event handling failed")
		a.error(w, http.StatusInternalServerError, "internal", "event handling failed")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

func (a *App) handleCheckoutCompleted(r *http.Request, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}
	userID := session.Metadata["userId"]
	if userID == "" {
		a.Logger.Warn().Str("session", session.ID).Msg("checkout session without userId metadata")
		return nil
	}
	expiresAt := time.Now().AddDate(0, a.Cfg.SubscriptionPeriodMonths, 0)

	payment := &domain.Payment{
		UserID:             userID,
		Amount:             session.AmountTotal,
		Currency:           string(session.Currency),
		Provider:           domain.PaymentProviderStripe,
		Status:             domain.PaymentSucceeded,
		SubscriptionType:   domain.SubscriptionPro,
		SubscriptionPeriod: "month",
		ExpiresAt:          expiresAt,
	}
	if session.PaymentIntent != nil {
		payment.StripePaymentIntentID = session.PaymentIntent.ID
	}
	if err := a.Payments.Create(r.Context(), payment); err != nil {
		return err
	}
	if err := a.Users.SetSubscription(r.Context(), userID, domain.SubscriptionPro, true, &expiresAt); err != nil {
		return err
	}
	a.Logger.Info().Str("user_id", userID).Msg("subscription activated")
	return nil
}

func (a *App) handleInvoicePaid(r *http.Request, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}
	if invoice.Customer == nil {
		return nil
	}
	user, err := a.Users.GetByStripeCustomerID(r.Context(), invoice.Customer.ID)
	if err != nil {
		a.Logger.Warn().Err(err).Str("customer", invoice.Customer.ID).Msg("invoice for unknown customer")
		return nil
	}
	expiresAt := time.Now().AddDate(0, a.Cfg.SubscriptionPeriodMonths, 0)
	if err := a.Users.SetSubscription(r.Context(), user.ID, domain.SubscriptionPro, true, &expiresAt); err != nil {
		return err
	}
	a.Logger.Info().Str("user_id", user.ID).Msg("subscription renewed")
	return nil
}

func (a *App) handleInvoiceFailed(r *http.Request, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}
	if invoice.Customer == nil {
		return nil
	}
	user, err := a.Users.GetByStripeCustomerID(r.Context(), invoice.Customer.ID)
	if err != nil {
		return nil
	}
	// Access continues until the already-paid expiry; nothing is revoked here.
	a.Logger.Warn().Str("user_id", user.ID).Msg("payment failed, subscription will lapse at expiry")
	return nil
}

func (a *App) handleSubscriptionUpdated(r *http.Request, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}
	user, err := a.Users.GetByStripeCustomerID(r.Context(), sub.Customer.ID)
	if err != nil {
		a.Logger.Warn().Err(err).Str("customer", sub.Customer.ID).Msg("subscription update for unknown customer")
		return nil
	}
	active := sub.Status == stripe.SubscriptionStatusActive
	expiresAt := time.Unix(sub.CurrentPeriodEnd, 0)
	return a.Users.SetSubscription(r.Context(), user.ID, domain.SubscriptionPro, active, &expiresAt)
}

func (a *App) handleSubscriptionDeleted(r *http.Request, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}
	user, err := a.Users.GetByStripeCustomerID(r.Context(), sub.Customer.ID)
	if err != nil {
		return nil
	}
	if err := a.Users.SetSubscription(r.Context(), user.ID, domain.SubscriptionFree, false, nil); err != nil {
		return err
	}
	a.Logger.Info().Str("user_id", user.ID).Msg("subscription deleted")
	return nil
}

// telegramUpdate is the slice of the Bot API update the webhook consumes.
type telegramUpdate struct {
	PreCheckoutQuery *struct {
		ID             string `json:"id"`
		InvoicePayload string `json:"invoice_payload"`
		TotalAmount    int64  `json:"total_amount"`
		Currency       string `json:"currency"`
	} `json:"pre_checkout_query"`
	Message *struct {
		SuccessfulPayment *struct {
			InvoicePayload          string `json:"invoice_payload"`
			TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
			TotalAmount             int64  `json:"total_amount"`
			Currency                string `json:"currency"`
		} `json:"successful_payment"`
	} `json:"message"`
}

// TelegramWebhook handles Stars payment updates: pre-checkout approval and
// the final successful_payment confirmation. Telegram expects a 200 for
// every update, including ones this service ignores.
func (a *App) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, webhookBodyLimit)).Decode(&update); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid update")
		return
	}

	if q := update.PreCheckoutQuery; q != nil {
		a.answerPreCheckout(r, q.ID, q.InvoicePayload)
	}
	if update.Message != nil && update.Message.SuccessfulPayment != nil {
		a.applyStarsPayment(r, update.Message.SuccessfulPayment.InvoicePayload,
			update.Message.SuccessfulPayment.TelegramPaymentChargeID)
	}
	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) answerPreCheckout(r *http.Request, queryID, payload string) {
	paymentID, ok := payments.PaymentIDFromPayload(payload)
	if !ok {
		a.rejectPreCheckout(r, queryID, "Unknown payment reference")
		return
	}
	payment, err := a.Payments.GetByID(r.Context(), paymentID)
	if err != nil || payment.Status != domain.PaymentPending {
		a.rejectPreCheckout(r, queryID, "Payment is no longer valid")
		return
	}
	if err := a.Bot.AnswerPreCheckoutQuery(r.Context(), queryID, true, ""); err != nil {
		a.Logger.Error().Err(err).Str("query_id", queryID).Msg("answer pre-checkout failed")
	}
}

func (a *App) rejectPreCheckout(r *http.Request, queryID, reason string) {
	if err := a.Bot.AnswerPreCheckoutQuery(r.Context(), queryID, false, reason); err != nil {
		a.Logger.Error().Err(err).Str("query_id", queryID).Msg("reject pre-checkout failed")
	}
}

func (a *App) applyStarsPayment(r *http.Request, payload, chargeID string) {
	paymentID, ok := payments.PaymentIDFromPayload(payload)
	if !ok {
		a.Logger.Warn().Str("payload", payload).Msg("successful_payment with foreign payload")
		return
	}
	if err := a.Payments.MarkSucceeded(r.Context(), paymentID, chargeID); err != nil {
		a.Logger.Error().Err(err).Str("payment_id", paymentID).Msg("mark payment succeeded failed")
		return
	}
	payment, err := a.Payments.GetByID(r.Context(), paymentID)
	if err != nil {
		a.Logger.Error().Err(err).Str("payment_id", paymentID).Msg("load payment failed")
		return
	}
	expiresAt := payment.ExpiresAt
	if err := a.Users.SetSubscription(r.Context(), payment.UserID, domain.SubscriptionPro, true, &expiresAt); err != nil {
		a.Logger.Error().Err(err).Str("user_id", payment.UserID).Msg("activate subscription failed")
		return
	}
	a.Logger.Info().Str("user_id", payment.UserID).Msg("stars payment applied")
}
