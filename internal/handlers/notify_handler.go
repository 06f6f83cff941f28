package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-payzen-notify/internal/notify"
	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
	"github.com/imrishuroy/go-payzen-notify/internal/response"
)

// NotifyPath is the endpoint configured as both IPN and return URL.
const NotifyPath = "/payzen/notify"

// Processor runs one notification.
type Processor interface {
	Process(ctx context.Context, in notify.Inbound) response.Response
}

// RegisterNotifyRoutes registers the notification endpoint for GET and POST.
func RegisterNotifyRoutes(r gin.IRoutes, p Processor) {
	h := notifyHandler(p)
	r.GET(NotifyPath, h)
	r.POST(NotifyPath, h)
}

// RegisterHealthRoutes registers GET /health.
func RegisterHealthRoutes(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func notifyHandler(p Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		body, err := payzen.ReadBody(c.Request)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("notification body truncated")
		}

		res := p.Process(ctx, notify.Inbound{
			Method: c.Request.Method,
			Body:   body,
			Query:  c.Request.URL.Query(),
		})

		if res.IsRedirect() {
			sink := &response.FlashCookie{}
			res.Deliver(sink)
			http.SetCookie(c.Writer, sink.Cookie())
			c.Redirect(res.Status, res.Location)
			return
		}
		c.JSON(res.Status, res.Ack)
	}
}
