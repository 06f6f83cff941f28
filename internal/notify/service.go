package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-payzen-notify/internal/ledger"
	"github.com/imrishuroy/go-payzen-notify/internal/metrics"
	"github.com/imrishuroy/go-payzen-notify/internal/orders"
	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
	"github.com/imrishuroy/go-payzen-notify/internal/reconcile"
	"github.com/imrishuroy/go-payzen-notify/internal/response"
	"github.com/imrishuroy/go-payzen-notify/internal/validation"
)

// Reconciler applies a verified notification to its order.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error)
}

// Ledger records deliveries. Optional.
type Ledger interface {
	Open(ctx context.Context, d ledger.Delivery) (bool, error)
	MarkDone(ctx context.Context, key, action, message string) error
	MarkFailed(ctx context.Context, key, note string) error
}

// Publisher emits outcome events. Optional.
type Publisher interface {
	Publish(ctx context.Context, event any, attributes map[string]string) error
}

// Settings are the merchant settings the pipeline needs.
type Settings struct {
	Key       string
	Algorithm payzen.Algorithm
	TestMode  bool
	// ReturnURL is used for orders without one; %s is the order id.
	ReturnURL   string
	CheckoutURL string
}

// Inbound is one notification call, independent of the transport.
type Inbound struct {
	Method string
	Body   []byte
	Query  url.Values
}

// Service runs the notification pipeline.
type Service struct {
	settings   Settings
	validate   *validator.Validate
	reconciler Reconciler
	ledger     Ledger
	publisher  Publisher
	metrics    *metrics.Metrics
	nowFunc    func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

func WithLedger(l Ledger) Option            { return func(s *Service) { s.ledger = l } }
func WithPublisher(p Publisher) Option      { return func(s *Service) { s.publisher = p } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService returns a Service. Metrics default to a private registry.
func NewService(settings Settings, r Reconciler, opts ...Option) *Service {
	s := &Service{
		settings:   settings,
		validate:   validation.New(),
		reconciler: r,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// Process verifies, classifies and reconciles one notification and renders
// the answer for the channel it came through. It never fails: every error
// ends in an acknowledgement or a safe redirect.
func (s *Service) Process(ctx context.Context, in Inbound) response.Response {
	log := zerolog.Ctx(ctx)

	n, err := payzen.Parse(in.Body, in.Query)
	if err != nil {
		channel := payzen.ChannelOf(in.Body)
		log.Error().Err(err).Str("channel", channel.String()).Msg("notification rejected")
		s.reject(channel, "malformed")
		return response.Format(channel, s.verdict(in, response.MsgMalformed, ""))
	}

	channel := n.Channel()
	l := log.With().Str("channel", channel.String()).Str("order_id", n.OrderID()).Str("trans_id", n.TransID()).Logger()
	ctx = l.WithContext(ctx)
	l.Info().Interface("fields", n.LogFields()).Msg(response.ProcessStart(channel))

	res := s.process(ctx, in, n)
	l.Info().Int("status", res.Status).Str("location", res.Location).Msg(response.ProcessEnd(channel))
	return res
}

func (s *Service) process(ctx context.Context, in Inbound, n *payzen.Notification) response.Response {
	log := zerolog.Ctx(ctx)
	channel := n.Channel()

	if !n.Verify(s.settings.Key, s.settings.Algorithm) {
		log.Error().Err(payzen.ErrSignatureInvalid).Msg("signature verification failed")
		s.reject(channel, "signature")
		return response.Format(channel, s.verdict(in, response.MsgAuthFail, n.OrderID()))
	}

	if err := validation.Notification(s.validate, n.Fields()); err != nil {
		log.Error().Err(err).Msg("notification fields invalid")
		s.reject(channel, "malformed")
		return response.Format(channel, s.verdict(in, response.MsgMalformed, n.OrderID()))
	}

	outcome := n.Outcome()
	log.Info().Str("trans_status", n.TransStatus()).Str("outcome", outcome.String()).Bool("accepted", outcome.IsAccepted()).Msg("transaction classified")

	delivery := ledger.Delivery{OrderID: n.OrderID(), TransID: n.TransID(), TransStatus: n.TransStatus(), Channel: channel.String()}
	s.openDelivery(ctx, delivery)

	result, err := s.reconciler.Reconcile(ctx, reconcile.Request{
		OrderID:     n.OrderID(),
		OrderKey:    n.OrderInfo(),
		TransStatus: n.TransStatus(),
		Outcome:     outcome,
		Payment: orders.Payment{
			TransactionID: n.TransID(),
			CardNumber:    n.Get("card_number"),
			CardBrand:     n.Get("card_brand"),
			CardExpiry:    n.CardExpiry(),
		},
	})
	if err != nil {
		return s.failed(ctx, in, n, delivery, result, err)
	}

	v := s.verdict(in, messageFor(result), n.OrderID())
	v.Success = result.Outcome.IsAccepted()
	v.Cancelled = result.Outcome.IsCancelled()
	if result.Order != nil && result.Order.ReturnURL != "" {
		v.ReturnURL = result.Order.ReturnURL
	}

	if result.Action == reconcile.ActionSettled && !n.FromServer() {
		log.Warn().Msg("payment settled through the browser return: the instant payment notification URL is not reaching the shop")
		if s.settings.TestMode {
			v.Notices = append(v.Notices, response.Notice{Message: response.NoticeIPNInactive, Severity: response.SeverityError})
		}
	}

	s.metrics.NotificationsTotal.WithLabelValues(channel.String(), result.Action.String()).Inc()
	if result.Mutated {
		s.publish(ctx, n, result)
		if result.Action == reconcile.ActionSettled {
			s.observeAmount(ctx, n)
		}
	}
	s.closeDelivery(ctx, delivery.Key(), result.Action.String(), string(v.Message))

	return response.Format(channel, v)
}

// failed maps reconciliation errors onto a verdict.
func (s *Service) failed(ctx context.Context, in Inbound, n *payzen.Notification, d ledger.Delivery, result reconcile.Result, err error) response.Response {
	log := zerolog.Ctx(ctx)
	channel := n.Channel()

	var (
		msg    response.MessageKey
		reason string
	)
	switch {
	case errors.Is(err, payzen.ErrOrderNotFound):
		msg, reason = response.MsgOrderNotFound, "order_not_found"
	case errors.Is(err, payzen.ErrOrderKeyMismatch):
		msg, reason = response.MsgKeyMismatch, "key_mismatch"
	case errors.Is(err, payzen.ErrStateConflict):
		msg, reason = response.MsgConflict, "conflict"
	default:
		msg, reason = response.MsgInternal, "internal"
	}

	ev := log.Error().Err(err).Str("reason", reason)
	if result.Order != nil {
		ev = ev.Str("order_status", result.Order.Status).Str("stored_trans_id", result.Order.TransactionID)
	}
	ev.Msg("notification not applied")

	s.reject(channel, reason)
	if s.ledger != nil {
		if lerr := s.ledger.MarkFailed(ctx, d.Key(), err.Error()); lerr != nil {
			log.Warn().Err(lerr).Msg("ledger update failed")
		}
	}

	v := s.verdict(in, msg, n.OrderID())
	v.Retry = msg == response.MsgInternal
	v.Cancelled = msg == response.MsgConflict && n.Outcome().IsCancelled()
	return response.Format(channel, v)
}

func messageFor(r reconcile.Result) response.MessageKey {
	accepted := r.Outcome.IsAccepted()
	switch r.Action {
	case reconcile.ActionSettled:
		return response.MsgPaymentOK
	case reconcile.ActionReplayed:
		if accepted {
			return response.MsgPaymentReplayed
		}
		return response.MsgReplayFailed
	}
	return response.MsgPaymentFail
}

// verdict fills the channel independent parts of a verdict.
func (s *Service) verdict(in Inbound, msg response.MessageKey, orderID string) response.Verdict {
	v := response.Verdict{
		Message:     msg,
		Method:      in.Method,
		ReturnURL:   s.returnURL(orderID),
		CheckoutURL: s.settings.CheckoutURL,
	}
	if s.settings.TestMode {
		v.Notices = append(v.Notices, response.Notice{Message: response.NoticeTestMode, Severity: response.SeverityNotice})
	}
	return v
}

func (s *Service) returnURL(orderID string) string {
	if strings.Contains(s.settings.ReturnURL, "%s") {
		return fmt.Sprintf(s.settings.ReturnURL, url.PathEscape(orderID))
	}
	return s.settings.ReturnURL
}

func (s *Service) reject(channel payzen.Channel, reason string) {
	s.metrics.RejectedTotal.WithLabelValues(channel.String(), reason).Inc()
}

func (s *Service) openDelivery(ctx context.Context, d ledger.Delivery) {
	if s.ledger == nil {
		return
	}
	created, err := s.ledger.Open(ctx, d)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ledger open failed")
		return
	}
	if !created {
		zerolog.Ctx(ctx).Info().Str("delivery_key", d.Key()).Msg("notification already delivered")
		s.metrics.RedeliveriesTotal.WithLabelValues(d.Channel).Inc()
	}
}

func (s *Service) closeDelivery(ctx context.Context, key, action, message string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.MarkDone(ctx, key, action, message); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ledger update failed")
	}
}

func (s *Service) publish(ctx context.Context, n *payzen.Notification, r reconcile.Result) {
	if s.publisher == nil {
		return
	}
	ev := PaymentEvent{
		EventID:     uuid.NewString(),
		OrderID:     n.OrderID(),
		TransID:     n.TransID(),
		TransStatus: n.TransStatus(),
		Outcome:     r.Outcome.String(),
		Action:      r.Action.String(),
		Channel:     n.Channel().String(),
		CtxMode:     n.Get("ctx_mode"),
		OccurredAt:  s.nowFunc().UTC(),
	}
	if r.Order != nil {
		ev.OrderStatus = r.Order.Status
	}
	if n.Has("amount") {
		if amount, cur, err := n.Amount(); err == nil {
			ev.Amount = amount.StringFixed(cur.Exponent)
			ev.Currency = cur.Alpha3
		}
	}

	attrs := map[string]string{
		"event_type": PaymentEventType,
		"event_id":   ev.EventID,
		"order_id":   ev.OrderID,
		"action":     ev.Action,
	}
	if err := s.publisher.Publish(ctx, ev, attrs); err != nil {
		// the order is already updated; the event is best effort
		zerolog.Ctx(ctx).Error().Err(err).Msg("publish payment event failed")
	}
}

func (s *Service) observeAmount(ctx context.Context, n *payzen.Notification) {
	if !n.Has("amount") {
		return
	}
	amount, cur, err := n.Amount()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("amount not decoded")
		return
	}
	f, _ := amount.Float64()
	s.metrics.PaymentAmounts.WithLabelValues(cur.Alpha3).Observe(f)
}
