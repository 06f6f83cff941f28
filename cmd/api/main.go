package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-payzen-notify/internal/aws"
	"github.com/imrishuroy/go-payzen-notify/internal/config"
	"github.com/imrishuroy/go-payzen-notify/internal/handlers"
	"github.com/imrishuroy/go-payzen-notify/internal/ledger"
	"github.com/imrishuroy/go-payzen-notify/internal/logging"
	"github.com/imrishuroy/go-payzen-notify/internal/metrics"
	"github.com/imrishuroy/go-payzen-notify/internal/notify"
	"github.com/imrishuroy/go-payzen-notify/internal/orders"
	"github.com/imrishuroy/go-payzen-notify/internal/reconcile"
)

func setupRouter(logger zerolog.Logger, svc handlers.Processor, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(logger))

	handlers.RegisterHealthRoutes(r)
	m.Register(r)
	handlers.RegisterNotifyRoutes(r, svc)

	return r
}

func newLocker(cfg *config.Config, logger zerolog.Logger) reconcile.Locker {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("REDIS_ADDR not set, using in-process order lock")
		return reconcile.NewLocalLocker()
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return reconcile.NewRedisLocker(rdb, cfg.LockTTL)
}

func main() {
	bootLog := logging.New(os.Getenv("LOG_LEVEL"))

	cfg, err := config.New()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	clients, err := aws.NewClients(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init aws clients")
	}

	m := metrics.New()
	engine := reconcile.NewEngine(
		orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		newLocker(cfg, logger),
		cfg.SuccessStatus,
	)

	opts := []notify.Option{
		notify.WithMetrics(m),
		notify.WithLedger(ledger.NewStore(clients.DynamoDB, cfg.LedgerTable, cfg.LedgerTTL)),
	}
	if cfg.EventsQueueURL != "" {
		opts = append(opts, notify.WithPublisher(aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)))
	}

	svc := notify.NewService(notify.Settings{
		Key:         cfg.ActiveKey(),
		Algorithm:   cfg.Algorithm(),
		TestMode:    cfg.IsTest(),
		ReturnURL:   cfg.ReturnURL,
		CheckoutURL: cfg.CheckoutURL,
	}, engine, opts...)

	r := setupRouter(logger, svc, m)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.PORT
		logger.Info().Str("addr", addr).Str("ctx_mode", cfg.CtxMode).Msg("running local server")
		if err := r.Run(addr); err != nil {
			logger.Fatal().Err(err).Msg("failed to run local server")
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
