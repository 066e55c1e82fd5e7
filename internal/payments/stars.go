package payments

import "fmt"

// Telegram Stars purchases go through a bot-generated invoice link; the
// pending payment id rides along in the start parameter and comes back in
// the invoice payload of the successful_payment update.

const (
	// StarsAmount is the pro subscription price in Telegram Stars (XTR).
	StarsAmount = 499
	// StarsCurrency is the Bot API currency code for Stars.
	StarsCurrency = "XTR"
)

// StarsInvoiceLink appends the payment reference to the configured
// invoice link.
func StarsInvoiceLink(baseLink, paymentID string) string {
	return fmt.Sprintf("%s&start_parameter=pay_%s", baseLink, paymentID)
}

// PaymentIDFromPayload recovers the payment id from an invoice payload of
// the form "pay_<id>"; ok is false for foreign payloads.
func PaymentIDFromPayload(payload string) (string, bool) {
	const prefix = "pay_"
	if len(payload) <= len(prefix) || payload[:len(prefix)] != prefix {
		return "", false
	}
	return payload[len(prefix):], true
}
