package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	appOrder "github.com/commercelab/orderflow/internal/application/order"
	domainCatalog "github.com/commercelab/orderflow/internal/domain/catalog"
	domainCustomer "github.com/commercelab/orderflow/internal/domain/customer"
	domainOrder "github.com/commercelab/orderflow/internal/domain/order"
	"github.com/commercelab/orderflow/internal/observability"
	"github.com/commercelab/orderflow/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	orderService *appOrder.Service
	log          observability.Logger
	tel          observability.Telemetry
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

func NewHandler(orderSvc *appOrder.Service, logger observability.Logger, tel observability.Telemetry) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		orderService: orderSvc,
		log:          logger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → request logger → HTTP metrics → access log → handler
	h.muxHandle(mux, http.MethodPost, "/orders", h.handleCreateOrder)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Store the stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), route)
		r = r.WithContext(ctx)

		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				h.tel,
			)(
				h.withAccessLog(
					h.withHTTPMetrics(http.HandlerFunc(handler)),
				),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type orderProductRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string                `json:"customer_id"`
	Products   []orderProductRequest `json:"products"`
}

type lineItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderResponse struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Items      []lineItemResponse `json:"items"`
	Total      int64              `json:"total"`
	CreatedAt  time.Time          `json:"created_at"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, lineItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orderResponse{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		Total:      o.Total(),
		CreatedAt:  o.CreatedAt,
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]appOrder.ItemRequest, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, appOrder.ItemRequest{ProductID: p.ID, Quantity: p.Quantity})
	}

	created, err := h.orderService.CreateOrder(r.Context(), appOrder.CreateOrderInput{
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	found, err := h.orderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(found))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("orderflow.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := route
		if spanName == "unknown" {
			spanName = r.Method + " " + r.URL.Path
		}
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}
		if template == "unknown" || template == "" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records request count and duration with low-cardinality
// labels. Metric vectors are injected; none are created here.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		route := routeFromContext(r.Context())
		statusLabel := strconv.Itoa(lrw.status)

		metrics := h.tel.Metrics()
		metrics.Counter(observability.MHTTPRequests).Add(1,
			observability.L("method", r.Method),
			observability.L("route", route),
			observability.L("status", statusLabel),
		)
		metrics.Histogram(observability.MHTTPRequestDuration).Observe(time.Since(start).Seconds(),
			observability.L("method", r.Method),
			observability.L("route", route),
			observability.L("status", statusLabel),
		)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainCustomer.ErrNotFound),
		errors.Is(err, domainCatalog.ErrNotFound),
		errors.Is(err, domainCatalog.ErrInsufficientStock),
		errors.Is(err, domainOrder.ErrCustomerIDRequired),
		errors.Is(err, domainOrder.ErrNoLineItems):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
