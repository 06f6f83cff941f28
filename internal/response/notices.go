package response

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// NoticeCookie carries pending shopper notices across the redirect.
const NoticeCookie = "payzen_notices"

// NoticeSink receives shopper notices.
type NoticeSink interface {
	Add(message, severity string)
	Clear()
}

// Deliver replaces whatever the sink holds with the notices of r.
func (r Response) Deliver(sink NoticeSink) {
	sink.Clear()
	for _, n := range r.Notices {
		sink.Add(n.Message, n.Severity)
	}
}

// FlashCookie is a NoticeSink kept in a cookie read once by the shop page.
type FlashCookie struct {
	notices []Notice
}

func (f *FlashCookie) Add(message, severity string) {
	f.notices = append(f.notices, Notice{Message: message, Severity: severity})
}

func (f *FlashCookie) Clear() { f.notices = nil }

func (f *FlashCookie) Notices() []Notice { return f.notices }

// Cookie encodes the notices. An empty sink yields an expiring cookie so a
// stale notice is not shown again.
func (f *FlashCookie) Cookie() *http.Cookie {
	c := &http.Cookie{
		Name:     NoticeCookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if len(f.notices) == 0 {
		c.MaxAge = -1
		return c
	}
	b, _ := json.Marshal(f.notices)
	c.Value = base64.RawURLEncoding.EncodeToString(b)
	c.MaxAge = 300
	return c
}

// ReadNotices decodes the notices carried by r, if any.
func ReadNotices(r *http.Request) []Notice {
	c, err := r.Cookie(NoticeCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var out []Notice
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
