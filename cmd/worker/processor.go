package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-payzen-notify/internal/aws"
	"github.com/imrishuroy/go-payzen-notify/internal/notify"
)

// maxDatums is the PutMetricData limit per call.
const maxDatums = 1000

// Processor turns payment events from SQS into CloudWatch metrics.
type Processor struct {
	cloudwatch aws.CloudWatchAPI
	namespace  string
	logger     zerolog.Logger
}

// NewProcessor creates a new worker processor with AWS clients injected.
func NewProcessor(clients *aws.Clients, namespace string, logger zerolog.Logger) *Processor {
	return &Processor{
		cloudwatch: clients.CloudWatch,
		namespace:  namespace,
		logger:     logger,
	}
}

// Handle receives an SQS batch and publishes the metrics of every event in
// it. Undecodable messages are logged and dropped since a retry cannot fix
// them; a CloudWatch failure fails the batch so Lambda retries it.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	var data []cwtypes.MetricDatum
	for _, rec := range ev.Records {
		event, err := decode(rec)
		if err != nil {
			p.logger.Error().Err(err).Str("message_id", rec.MessageId).Msg("dropping message")
			continue
		}
		p.logger.Info().
			Str("event_id", event.EventID).
			Str("order_id", event.OrderID).
			Str("action", event.Action).
			Str("channel", event.Channel).
			Msg("payment event received")
		data = append(data, datums(event)...)
	}

	for start := 0; start < len(data); start += maxDatums {
		end := start + maxDatums
		if end > len(data) {
			end = len(data)
		}
		_, err := p.cloudwatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  sdkaws.String(p.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			p.logger.Error().Err(err).Int("datums", end-start).Msg("put metric data failed")
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}

func decode(rec events.SQSMessage) (notify.PaymentEvent, error) {
	var event notify.PaymentEvent
	if err := json.Unmarshal([]byte(rec.Body), &event); err != nil {
		return event, fmt.Errorf("invalid message body: %w", err)
	}
	if event.OrderID == "" || event.Action == "" {
		return event, fmt.Errorf("invalid message body: missing order_id or action")
	}
	return event, nil
}

func datums(event notify.PaymentEvent) []cwtypes.MetricDatum {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	out := []cwtypes.MetricDatum{{
		MetricName: sdkaws.String("PaymentsReconciled"),
		Dimensions: []cwtypes.Dimension{
			{Name: sdkaws.String("Action"), Value: sdkaws.String(event.Action)},
			{Name: sdkaws.String("Channel"), Value: sdkaws.String(event.Channel)},
		},
		Value:     sdkaws.Float64(1),
		Unit:      cwtypes.StandardUnitCount,
		Timestamp: sdkaws.Time(ts),
	}}

	if event.Action != "settled" || event.Amount == "" {
		return out
	}
	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		return out
	}
	value, _ := amount.Float64()
	return append(out, cwtypes.MetricDatum{
		MetricName: sdkaws.String("SettledAmount"),
		Dimensions: []cwtypes.Dimension{
			{Name: sdkaws.String("Currency"), Value: sdkaws.String(event.Currency)},
		},
		Value:     sdkaws.Float64(value),
		Unit:      cwtypes.StandardUnitNone,
		Timestamp: sdkaws.Time(ts),
	})
}
