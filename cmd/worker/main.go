package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-payzen-notify/internal/aws"
	"github.com/imrishuroy/go-payzen-notify/internal/logging"
)

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))

	namespace := os.Getenv("METRICS_NAMESPACE")
	if namespace == "" {
		namespace = "PayzenNotify"
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init aws clients")
	}
	p := NewProcessor(clients, namespace, logger)

	// If RUN_LOCAL=true, we can optionally simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"event_id":"local-1","order_id":"local-order-1","action":"settled","channel":"server","amount":"30.00","currency":"EUR"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					MessageId: "local",
					Body:      testBody,
				},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Fatal().Err(err).Msg("local handler error")
		}
		return
	}

	lambda.Start(p.Handle)
}
