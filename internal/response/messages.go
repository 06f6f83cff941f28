package response

import "fmt"

// MessageKey names one entry of the platform acknowledgement catalogue.
type MessageKey string

const (
	MsgAuthFail        MessageKey = "auth_fail"
	MsgPaymentOK       MessageKey = "payment_ok"
	MsgPaymentFail     MessageKey = "payment_ko"
	MsgPaymentReplayed MessageKey = "payment_ok_already_done"
	MsgReplayFailed    MessageKey = "payment_ko_already_done"
	MsgConflict        MessageKey = "payment_ko_on_order_ok"
	MsgOrderNotFound   MessageKey = "order_not_found"
	MsgKeyMismatch     MessageKey = "order_key_mismatch"
	MsgMalformed       MessageKey = "malformed_payload"
	MsgInternal        MessageKey = "internal_error"
)

var catalogue = map[MessageKey]string{
	MsgAuthFail:        "An error occurred while computing the signature.",
	MsgPaymentOK:       "Accepted payment, order has been updated.",
	MsgPaymentFail:     "Payment failure, order has been cancelled.",
	MsgPaymentReplayed: "Accepted payment, already registered.",
	MsgReplayFailed:    "Payment failure, already registered.",
	MsgConflict:        "Payment failure on already registered order.",
	MsgOrderNotFound:   "Order not found.",
	MsgKeyMismatch:     "Order key does not match the notification.",
	MsgMalformed:       "Notification could not be decoded.",
	MsgInternal:        "Notification could not be processed, please retry.",
}

// Text returns the message for k, or k itself when it is not catalogued.
func Text(k MessageKey) string {
	if s, ok := catalogue[k]; ok {
		return s
	}
	return string(k)
}

// Shopper facing notices, browser channel only.
const (
	NoticePaymentRefused = "Your payment was not accepted. Please try again."
	NoticeOrderCancelled = "Your order has been cancelled."
	NoticeAuthFail       = "An error occurred while checking the payment result. Please contact the shop."
	NoticeProcessFailed  = "Your payment could not be confirmed yet. Please contact the shop if you were charged."
	NoticeTestMode       = "The shop runs in TEST mode: no real payment was made. Switch to PRODUCTION mode before going live."
	NoticeIPNInactive    = "The instant payment notification does not seem to reach the shop. Check the notification URL from https://secure.payzen.eu/vads-merchant/."
)

// ProcessStart and ProcessEnd are the audit log lines framing one notification.
func ProcessStart(channel fmt.Stringer) string {
	return fmt.Sprintf("start of %s side payment processing", channel)
}

func ProcessEnd(channel fmt.Stringer) string {
	return fmt.Sprintf("end of %s side payment processing", channel)
}
