package response

import (
	"net/http"

	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

// Notice severities.
const (
	SeverityError   = "error"
	SeverityNotice  = "notice"
	SeveritySuccess = "success"
)

// Notice is one transient message shown to the shopper.
type Notice struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Ack is the JSON body returned to the platform.
type Ack struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

// Verdict is what the pipeline concluded, independent of the channel.
type Verdict struct {
	Success bool
	// Cancelled suppresses the generic refusal notice.
	Cancelled bool
	// Retry asks the platform to deliver again (infrastructure failure).
	Retry   bool
	Message MessageKey
	// Notices are extra shopper notices, dropped on the server channel.
	Notices     []Notice
	ReturnURL   string
	CheckoutURL string
	// Method of the inbound request, selects 303 or 302.
	Method string
}

// Response is the rendered, transport ready answer.
type Response struct {
	Status   int
	Ack      *Ack
	Location string
	Notices  []Notice
}

// IsRedirect reports whether the response sends the browser elsewhere.
func (r Response) IsRedirect() bool { return r.Location != "" }

// Format renders v for channel. The server channel gets an acknowledgement
// and never a redirect or notice; the browser channel always gets a redirect.
func Format(channel payzen.Channel, v Verdict) Response {
	if channel == payzen.ChannelServer {
		status := http.StatusOK
		if v.Retry {
			status = http.StatusServiceUnavailable
		}
		return Response{
			Status: status,
			Ack:    &Ack{Success: v.Success, Data: Text(v.Message)},
		}
	}

	status := http.StatusFound
	if v.Method == http.MethodPost {
		status = http.StatusSeeOther
	}

	var notices []Notice
	location := v.CheckoutURL
	switch {
	case v.Success:
		location = v.ReturnURL
	case v.Message == MsgAuthFail:
		notices = append(notices, Notice{Message: NoticeAuthFail, Severity: SeverityError})
	case v.Cancelled:
		notices = append(notices, Notice{Message: NoticeOrderCancelled, Severity: SeverityNotice})
	case v.Retry:
		notices = append(notices, Notice{Message: NoticeProcessFailed, Severity: SeverityError})
	default:
		notices = append(notices, Notice{Message: NoticePaymentRefused, Severity: SeverityError})
	}
	notices = append(notices, v.Notices...)
	if location == "" {
		location = "/"
	}

	return Response{Status: status, Location: location, Notices: notices}
}
