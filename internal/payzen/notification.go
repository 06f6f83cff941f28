package payzen

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds the form body read from an inbound notification.
const maxBodyBytes = 64 << 10

// serverMarker is only present on server to server (IPN) calls.
const serverMarker = ParamPrefix + "hash"

// Channel tells which route a notification took.
type Channel int

const (
	ChannelBrowser Channel = iota
	ChannelServer
)

func (c Channel) String() string {
	if c == ChannelServer {
		return "server"
	}
	return "browser"
}

// Notification is one parsed platform callback. Keys are stored raw (with the
// prefix) for signature verification; accessors take the unprefixed name.
type Notification struct {
	params    map[string]string
	signature string
	channel   Channel
}

// Fields is the typed view of the fields reconciliation depends on.
type Fields struct {
	OrderID     string `validate:"required"`
	OrderInfo   string `validate:"required"`
	TransID     string `validate:"required"`
	TransStatus string `validate:"required"`
	Amount      string `validate:"omitempty,numeric"`
	Currency    string `validate:"omitempty,numeric,len=3"`
	CardNumber  string
	CardBrand   string
	ExpiryMonth string `validate:"omitempty,numeric"`
	ExpiryYear  string `validate:"omitempty,numeric,len=4"`
	CtxMode     string `validate:"omitempty,oneof=TEST PRODUCTION"`
}

// NewNotification builds a notification from already decoded params. The
// unprefixed signature field is split off the signed set.
func NewNotification(params map[string]string) *Notification {
	n := &Notification{params: make(map[string]string, len(params))}
	for k, v := range params {
		if k == SignatureField {
			n.signature = v
			continue
		}
		n.params[k] = v
	}
	if _, ok := n.params[serverMarker]; ok {
		n.channel = ChannelServer
	}
	return n
}

// ReadBody reads at most 64KB of the request body.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrMalformedPayload, err)
	}
	return b, nil
}

// ChannelOf guesses the channel of a body Parse refused, so the failure can
// still be answered in the right shape.
func ChannelOf(body []byte) Channel {
	if v, err := url.ParseQuery(string(body)); err == nil && v.Has(serverMarker) {
		return ChannelServer
	}
	if strings.Contains(string(body), serverMarker+"=") {
		return ChannelServer
	}
	return ChannelBrowser
}

// Parse decodes a form encoded body and the request query. Server calls are
// read from the body only; browser returns may use the query string too.
func Parse(body []byte, query url.Values) (*Notification, error) {
	form := url.Values{}
	if len(body) > 0 {
		v, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		form = v
	}

	merged := map[string]string{}
	if form.Get(serverMarker) == "" {
		for k, vs := range query {
			addParam(merged, k, vs)
		}
	}
	for k, vs := range form {
		addParam(merged, k, vs)
	}

	if !hasPlatformFields(merged) {
		return nil, fmt.Errorf("%w: no %s fields", ErrMalformedPayload, ParamPrefix)
	}
	return NewNotification(merged), nil
}

func addParam(dst map[string]string, key string, values []string) {
	if len(values) == 0 {
		return
	}
	dst[stripSlashes(key)] = stripSlashes(values[0])
}

func hasPlatformFields(params map[string]string) bool {
	for k := range params {
		if strings.HasPrefix(k, ParamPrefix) {
			return true
		}
	}
	return false
}

// stripSlashes removes backslash escaping: `\x` becomes `x`, `\\` becomes `\`.
func stripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get returns the value of the prefixed field name.
func (n *Notification) Get(name string) string {
	return n.params[ParamPrefix+name]
}

// Has reports whether the prefixed field name was sent.
func (n *Notification) Has(name string) bool {
	_, ok := n.params[ParamPrefix+name]
	return ok
}

// Params returns a copy of the raw signed params.
func (n *Notification) Params() map[string]string {
	out := make(map[string]string, len(n.params))
	for k, v := range n.params {
		out[k] = v
	}
	return out
}

func (n *Notification) Signature() string { return n.signature }
func (n *Notification) Channel() Channel  { return n.channel }
func (n *Notification) FromServer() bool  { return n.channel == ChannelServer }

// Verify checks the carried signature against key.
func (n *Notification) Verify(key string, algo Algorithm) bool {
	return Verify(n.params, n.signature, key, algo)
}

func (n *Notification) OrderID() string     { return n.Get("order_id") }
func (n *Notification) OrderInfo() string   { return n.Get("order_info") }
func (n *Notification) TransID() string     { return n.Get("trans_id") }
func (n *Notification) TransStatus() string { return n.Get("trans_status") }

// Outcome classifies the carried transaction status.
func (n *Notification) Outcome() Outcome {
	return Classify(n.TransStatus())
}

// CardExpiry formats the expiry as MM/YYYY, or "" when no month was sent.
func (n *Notification) CardExpiry() string {
	month := n.Get("expiry_month")
	if month == "" {
		return ""
	}
	if len(month) < 2 {
		month = strings.Repeat("0", 2-len(month)) + month
	}
	return month + "/" + n.Get("expiry_year")
}

// Amount converts vads_amount from minor units using vads_currency.
func (n *Notification) Amount() (decimal.Decimal, Currency, error) {
	num, err := strconv.Atoi(n.Get("currency"))
	if err != nil {
		return decimal.Zero, Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, n.Get("currency"))
	}
	cur, ok := CurrencyByNumeric(num)
	if !ok {
		return decimal.Zero, Currency{}, fmt.Errorf("%w: %d", ErrUnsupportedCurrency, num)
	}
	minor, err := strconv.ParseInt(n.Get("amount"), 10, 64)
	if err != nil {
		return decimal.Zero, cur, fmt.Errorf("%w: amount %q", ErrMalformedPayload, n.Get("amount"))
	}
	return cur.ToDecimal(minor), cur, nil
}

// Fields returns the typed view used for validation.
func (n *Notification) Fields() Fields {
	return Fields{
		OrderID:     n.OrderID(),
		OrderInfo:   n.OrderInfo(),
		TransID:     n.TransID(),
		TransStatus: n.TransStatus(),
		Amount:      n.Get("amount"),
		Currency:    n.Get("currency"),
		CardNumber:  n.Get("card_number"),
		CardBrand:   n.Get("card_brand"),
		ExpiryMonth: n.Get("expiry_month"),
		ExpiryYear:  n.Get("expiry_year"),
		CtxMode:     n.Get("ctx_mode"),
	}
}

// LogFields is the subset safe to log: no signature, no card number.
func (n *Notification) LogFields() map[string]string {
	out := make(map[string]string, len(n.params))
	for k, v := range n.params {
		switch k {
		case ParamPrefix + "card_number", serverMarker:
			continue
		}
		out[k] = v
	}
	return out
}
