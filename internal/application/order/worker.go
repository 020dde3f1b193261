package order

import (
	"context"
	"time"

	domorder "github.com/commercelab/orderflow/internal/domain/order"
	domoutbox "github.com/commercelab/orderflow/internal/domain/outbox"
	"github.com/commercelab/orderflow/internal/observability"
	"github.com/commercelab/orderflow/internal/observability/logctx"
)

const auditService = "order-audit"

// AuditWorker consumes order.created events and writes an audit log entry
// per created order. It is a passive consumer; the creation workflow never
// depends on it.
type AuditWorker struct {
	subscriber domoutbox.Subscriber
	tel        observability.Telemetry

	log          observability.Logger
	durHistogram observability.Histogram
}

func NewAuditWorker(subscriber domoutbox.Subscriber, tel observability.Telemetry) *AuditWorker {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &AuditWorker{
		subscriber:   subscriber,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", auditService)),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *AuditWorker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handleOrderCreated)
}

func (w *AuditWorker) handleOrderCreated(ctx context.Context, e domoutbox.Event) error {
	const useCase = "order.audit.created"

	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}

	start := time.Now()
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
	)

	logger.Info("order_audit",
		observability.F("order_id", evt.OrderID),
		observability.F("customer_id", evt.CustomerID),
		observability.F("item_count", len(evt.Items)),
		observability.F("total", evt.Total),
	)

	w.durHistogram.Observe(time.Since(start).Seconds(),
		observability.L("use_case", useCase),
	)
	return nil
}
