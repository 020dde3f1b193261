package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appOrder "github.com/commercelab/orderflow/internal/application/order"
	domainCatalog "github.com/commercelab/orderflow/internal/domain/catalog"
	domainCustomer "github.com/commercelab/orderflow/internal/domain/customer"
	"github.com/commercelab/orderflow/internal/infrastructure/id"
	"github.com/commercelab/orderflow/internal/infrastructure/memory"
	"github.com/commercelab/orderflow/internal/infrastructure/observability/oteltrace"
	"github.com/commercelab/orderflow/internal/infrastructure/observability/prometrics"
	"github.com/commercelab/orderflow/internal/infrastructure/observability/telemetry"
	"github.com/commercelab/orderflow/internal/infrastructure/observability/zaplogger"
	"github.com/commercelab/orderflow/internal/infrastructure/outbox"
	"github.com/commercelab/orderflow/internal/observability"
	"github.com/commercelab/orderflow/internal/pkg/logging"
	httppresentation "github.com/commercelab/orderflow/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "orderflow")
	env := getenvDefault("ENV", "dev")
	addr := getenvDefault("ADDR", ":8080")

	baseLogger := logging.MustNewLogger(serviceName, env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	// W3C trace context for inbound/outbound header propagation.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log := zaplogger.New(baseLogger)

	registry := prometrics.New("orderflow", "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests), "Total number of use case invocations.",
			"use_case", "outcome"),
		observability.MOrdersCreated: registry.Counter(
			string(observability.MOrdersCreated), "Total number of orders created."),
		observability.MEventPublishFailed: registry.Counter(
			string(observability.MEventPublishFailed), "Count of event publish failures.",
			"event"),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests), "Total number of HTTP requests.",
			"method", "route", "status"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration), "Duration of use case execution in seconds.",
			nil, "use_case"),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.",
			nil, "method", "route", "status"),
	}
	tel := telemetry.New(oteltrace.New(serviceName), log, counters, histograms)

	customerRepo := memory.NewCustomerRepository()
	productRepo := memory.NewProductRepository()
	orderRepo := memory.NewOrderRepository()
	seedDemoData(customerRepo, productRepo, systemLogger)

	bus := outbox.NewBus(log)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	orderService := appOrder.NewService(
		customerRepo,
		productRepo,
		orderRepo,
		id.NewUUIDGenerator(),
		bus,
		tel,
	)

	auditWorker := appOrder.NewAuditWorker(bus, tel)
	auditWorker.Start()

	handler := httppresentation.NewHandler(orderService, log, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// seedDemoData loads a small fixed data set so the service is usable out of
// the box. Real deployments replace the memory repositories entirely.
func seedDemoData(customers *memory.CustomerRepository, products *memory.ProductRepository, logger *zap.Logger) {
	ctx := context.Background()

	_ = customers.Add(ctx, &domainCustomer.Customer{ID: "c1", Name: "Demo Customer"})

	seed := []struct {
		id        string
		unitPrice int64
		available int
	}{
		{"p1", 1000, 50},
		{"p2", 2000, 10},
		{"p3", 499, 0},
	}
	for _, s := range seed {
		p, err := domainCatalog.NewProduct(s.id, s.unitPrice, s.available)
		if err != nil {
			logger.Error("seed_product_failed", zap.String("product_id", s.id), zap.Error(err))
			continue
		}
		_ = products.Save(ctx, p)
	}

	logger.Info("demo_data_seeded",
		zap.Int("customers", 1),
		zap.Int("products", len(seed)),
	)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
