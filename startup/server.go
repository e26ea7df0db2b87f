package startup

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/devops-ftn-2024/accommodations/authorization"
	"github.com/devops-ftn-2024/accommodations/domain"
	"github.com/devops-ftn-2024/accommodations/events"
	"github.com/devops-ftn-2024/accommodations/handlers"
	"github.com/devops-ftn-2024/accommodations/metrics"
	application "github.com/devops-ftn-2024/accommodations/service"
	"github.com/devops-ftn-2024/accommodations/startup/config"
	"github.com/devops-ftn-2024/accommodations/store"
)

const serviceName = "accommodations_service"

type Server struct {
	config *config.Config
	logger *logrus.Logger
}

func NewServer(config *config.Config) *Server {
	return &Server{
		config: config,
	}
}

func (server *Server) Start() {
	logger, err := NewLogger(server.config.LogFilePath)
	if err != nil {
		logrus.Fatal(err)
	}
	server.logger = logger

	if err := server.config.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	tp, err := server.initTracerProvider()
	if err != nil {
		logger.Fatalf("Failed to Initialize Exporter: %v", err)
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := tp.Tracer(serviceName)

	mongoClient := server.initMongoClient()
	accommodationStore := server.initAccommodationStore(mongoClient, tracer)

	var cache domain.AccommodationCache
	var ledger domain.MessageLedger
	if server.config.CacheEnabled() {
		redisClient := server.initRedisClient()
		cache = store.NewAccommodationRedisCache(redisClient, server.config.AccommodationCacheTTL, tracer, logger)
		ledger = store.NewMessageRedisLedger(redisClient, server.config.MessageLedgerTTL)
	}

	conn := server.initBrokerConnection()
	publisher := events.NewPublisher(conn, tracer, logger)
	accommodationService := application.NewAccommodationService(accommodationStore, cache, publisher, tracer, logger)

	subscriberCtx, stopSubscribers := context.WithCancel(context.Background())
	subscriber := server.initSubscriber(subscriberCtx, conn, ledger, accommodationService, tracer)

	accommodationHandler := handlers.NewAccommodationHandler(accommodationService, tracer, logger)
	server.start(accommodationHandler)

	stopSubscribers()
	subscriber.Close()
	if err := conn.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close broker connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mongoClient.Disconnect(ctx); err != nil {
		logger.WithError(err).Warn("Failed to disconnect from mongo")
	}
	if err := tp.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}
	logger.Info("Server Gracefully Stopped")
}

type tracerProvider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
}

type noopTracerProvider struct {
	trace.TracerProvider
}

func (noopTracerProvider) Shutdown(context.Context) error { return nil }

func (server *Server) initTracerProvider() (tracerProvider, error) {
	if server.config.JaegerAddress == "" {
		server.logger.Info("JAEGER_ADDRESS not set, tracing disabled")
		return noopTracerProvider{trace.NewNoopTracerProvider()}, nil
	}
	exp, err := newExporter(server.config.JaegerAddress)
	if err != nil {
		return nil, err
	}
	return newTraceProvider(exp)
}

func (server *Server) initMongoClient() *mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := store.GetClient(ctx, server.config.MongoAddress())
	if err != nil {
		server.logger.Fatal(err)
	}
	return client
}

func (server *Server) initAccommodationStore(client *mongo.Client, tracer trace.Tracer) domain.AccommodationStore {
	accommodationStore := store.NewAccommodationMongoDBStore(client, server.config.MongoDBName, server.config.MongoCollectionName, tracer, server.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := accommodationStore.EnsureIndexes(ctx); err != nil {
		server.logger.WithError(err).Warn("Failed to create owner index")
	}
	return accommodationStore
}

func (server *Server) initRedisClient() *redis.Client {
	client, err := store.GetRedisClient(server.config.AccommodationCacheHost, server.config.AccommodationCachePort)
	if err != nil {
		server.logger.Fatal(err)
	}
	server.logger.WithField("host", server.config.AccommodationCacheHost).Info("Redis cache connected")
	return client
}

func (server *Server) initBrokerConnection() *events.Connection {
	conn, err := events.Dial(events.DialConfig{
		Username:   server.config.RabbitMQUsername,
		Password:   server.config.RabbitMQPassword,
		Host:       server.config.RabbitMQHost,
		Port:       server.config.RabbitMQPort,
		Attempts:   server.config.RabbitMQAttempts,
		RetryDelay: server.config.RabbitMQRetryDelay,
	}, server.logger)
	if err != nil {
		server.logger.Fatal(err)
	}
	return conn
}

func (server *Server) initSubscriber(ctx context.Context, conn events.Connector, ledger domain.MessageLedger, applier events.IdentityChangeApplier, tracer trace.Tracer) *events.Subscriber {
	subscriber := events.NewSubscriber(conn, ledger, events.SubscriberOptions{
		Workers:        server.config.EventWorkers,
		QueueSize:      server.config.EventQueueSize,
		HandlerTimeout: server.config.EventHandlerTimeout,
	}, tracer, server.logger)

	if err := subscriber.Subscribe(ctx, domain.UsernameUpdatedExchange, events.RenameHandler(applier, server.logger)); err != nil {
		server.logger.Fatal(err)
	}
	if err := subscriber.Subscribe(ctx, domain.UserDeletedExchange, events.DeletionHandler(applier, server.logger)); err != nil {
		server.logger.Fatal(err)
	}
	return subscriber
}

func (server *Server) initRouter(accommodationHandler *handlers.AccommodationHandler) http.Handler {
	authenticator, err := authorization.NewAuthenticator([]byte(server.config.SecretKey), server.logger)
	if err != nil {
		server.logger.Fatal(err)
	}
	enforcer, err := authorization.NewEnforcer(server.config.RBACModelPath, server.config.RBACPolicyPath)
	if err != nil {
		server.logger.Fatal(err)
	}

	router := mux.NewRouter()
	router.Use(
		handlers.ExtractTraceInfoMiddleware,
		handlers.MiddlewareContentTypeSet,
		authenticator.Middleware,
		authorization.CasbinMiddleware(enforcer, server.logger),
	)
	accommodationHandler.Init(router)

	// /metrics sits outside the casbin chain so scrapers need no identity.
	httpMetrics := metrics.NewHTTPMetrics()
	root := mux.NewRouter()
	root.Handle("/metrics", httpMetrics.Handler()).Methods(http.MethodGet)
	root.PathPrefix("/").Handler(router)

	cors := handlers.CORS(server.config.AllowedOrigins)
	return cors(httpMetrics.Middleware(root))
}

func (server *Server) start(accommodationHandler *handlers.AccommodationHandler) {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", server.config.Port),
		Handler:      server.initRouter(accommodationHandler),
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		server.logger.WithField("port", server.config.Port).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.logger.Fatal(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	server.logger.WithField("signal", sig.String()).Info("Received terminate, graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.logger.WithError(err).Error("Error Shutting Down Server")
	}
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newTraceProvider(exp sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	), nil
}
