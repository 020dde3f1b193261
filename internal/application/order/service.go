package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/commercelab/orderflow/internal/domain/catalog"
	domcustomer "github.com/commercelab/orderflow/internal/domain/customer"
	domorder "github.com/commercelab/orderflow/internal/domain/order"
	domoutbox "github.com/commercelab/orderflow/internal/domain/outbox"
	"github.com/commercelab/orderflow/internal/observability"
	"github.com/commercelab/orderflow/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	spanPrefix         = "UC."
)

// Service orchestrates validation, pricing, and persistence for a single
// order-creation request. Each call is independent; the service holds no
// state across requests beyond its collaborator handles.
type Service struct {
	customers   domcustomer.Repository
	products    domcatalog.Repository
	orders      domorder.Repository
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
	tel         observability.Telemetry

	log observability.Logger

	reqCounter     observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram   observability.Histogram // usecase_duration_seconds{use_case}
	createdCounter observability.Counter   // orders_created_total
}

// NewService wires the collaborators required to execute the use case. The
// publisher may be nil; event publication is then skipped.
func NewService(
	customers domcustomer.Repository,
	products domcatalog.Repository,
	orders domorder.Repository,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	metrics := tel.Metrics()

	return &Service{
		customers:      customers,
		products:       products,
		orders:         orders,
		idGenerator:    idGen,
		publisher:      publisher,
		tel:            tel,
		log:            tel.Logger().With(observability.F("service", orderService)),
		reqCounter:     metrics.Counter(observability.MUsecaseRequests),
		durHistogram:   metrics.Histogram(observability.MUsecaseDuration),
		createdCounter: metrics.Counter(observability.MOrdersCreated),
	}
}

// ItemRequest is one requested line of an order as given by the caller.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID string
	Items      []ItemRequest
}

// CreateOrder runs the order-creation workflow: resolve the customer,
// batch-resolve the requested products, validate availability, snapshot
// prices, persist the order, then decrement stock. Collaborator calls happen
// strictly in that sequence. The stock decrement is not transactional with
// the order save; if it fails the order has already been persisted and the
// error is surfaced as-is.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (_ *domorder.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseOrderCreate))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
		attribute.String("order.customer_id", input.CustomerID),
		attribute.Int("order.item_count", len(input.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		s.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderCreate),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCaseOrderCreate),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	if input.CustomerID == "" {
		outcome, statusText = "error", "CUSTOMER_ID_REQUIRED"
		return nil, domorder.ErrCustomerIDRequired
	}
	if len(input.Items) == 0 {
		outcome, statusText = "error", "NO_LINE_ITEMS"
		return nil, domorder.ErrNoLineItems
	}

	cust, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, domcustomer.ErrNotFound) {
			outcome, statusText = "error", "CUSTOMER_NOT_FOUND"
			return nil, err
		}
		outcome, statusText = "error", "CUSTOMER_LOOKUP_FAILED"
		return nil, fmt.Errorf("order: customer lookup: %w", err)
	}

	// Single batched lookup over the distinct requested product ids.
	distinct := make([]string, 0, len(input.Items))
	seen := make(map[string]struct{}, len(input.Items))
	for _, item := range input.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		distinct = append(distinct, item.ProductID)
	}

	found, err := s.products.FindAllByIDs(ctx, distinct)
	if err != nil {
		outcome, statusText = "error", "CATALOG_LOOKUP_FAILED"
		return nil, fmt.Errorf("order: catalog lookup: %w", err)
	}

	// All-or-nothing: any unknown id rejects the whole request rather than
	// creating a partially fulfilled order.
	if len(found) != len(distinct) {
		outcome, statusText = "error", "PRODUCT_NOT_FOUND"
		return nil, domcatalog.ErrNotFound
	}

	byID := make(map[string]*domcatalog.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	// Availability check in caller-supplied order; only the first violation
	// is reported.
	for _, item := range input.Items {
		available := 0
		if p, ok := byID[item.ProductID]; ok {
			available = p.Available
		}
		if item.Quantity > available {
			outcome, statusText = "error", "INSUFFICIENT_STOCK"
			return nil, &domcatalog.InsufficientStockError{ProductID: item.ProductID}
		}
	}

	// Price snapshot: the catalog price at this moment travels with the
	// order; later catalog changes must not affect it.
	lineItems := make([]domorder.LineItem, 0, len(input.Items))
	for _, item := range input.Items {
		var price int64
		if p, ok := byID[item.ProductID]; ok {
			price = p.UnitPrice
		}
		lineItems = append(lineItems, domorder.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	entity, err := domorder.New(s.idGenerator.NewID(), cust.ID, lineItems)
	if err != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("order: construct: %w", err)
	}

	// Single commit point.
	if err := s.orders.Save(ctx, entity); err != nil {
		outcome, statusText = "error", "REPO_SAVE_FAILED"
		logger.Error("order_save_failed", observability.F("order_id", entity.ID), observability.F("error", err.Error()))
		return nil, fmt.Errorf("order: save: %w", err)
	}

	decrements := make([]domcatalog.Decrement, 0, len(input.Items))
	for _, item := range input.Items {
		decrements = append(decrements, domcatalog.Decrement{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err := s.products.DecrementStock(ctx, decrements); err != nil {
		// The order is already persisted; no compensation is attempted here.
		outcome, statusText = "error", "STOCK_DECREMENT_FAILED"
		logger.Error("stock_decrement_failed", observability.F("order_id", entity.ID), observability.F("error", err.Error()))
		return nil, fmt.Errorf("order: stock decrement: %w", err)
	}

	s.publishCreated(ctx, logger, entity)

	s.createdCounter.Add(1)
	span.SetAttributes(attribute.String("order.id", entity.ID))
	span.AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)

	return entity, nil
}

// publishCreated emits the created event on a best-effort basis; a publish
// failure is recorded but does not fail the already-committed request.
func (s *Service) publishCreated(ctx context.Context, logger observability.Logger, entity *domorder.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domorder.NewOrderCreatedEvent(entity)); err != nil {
		s.tel.Metrics().Counter(observability.MEventPublishFailed).Add(1,
			observability.L("event", domorder.OrderCreatedEvent{}.EventName()))
		logger.Warn("event_publish_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", err.Error()),
		)
	}
}

// Get returns a previously created order.
func (s *Service) Get(ctx context.Context, id string) (*domorder.Order, error) {
	if id == "" {
		return nil, domorder.ErrNotFound
	}
	return s.orders.FindByID(ctx, id)
}
