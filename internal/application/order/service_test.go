package order_test

import (
	"context"
	"errors"
	"testing"

	apporder "github.com/commercelab/orderflow/internal/application/order"
	"github.com/commercelab/orderflow/internal/domain/catalog"
	"github.com/commercelab/orderflow/internal/domain/customer"
	domorder "github.com/commercelab/orderflow/internal/domain/order"
	domoutbox "github.com/commercelab/orderflow/internal/domain/outbox"
	"github.com/commercelab/orderflow/internal/infrastructure/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedIDGen struct{ id string }

func (g fixedIDGen) NewID() string { return g.id }

type recordingPublisher struct {
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	customers *memory.CustomerRepository
	products  *memory.ProductRepository
	orders    *memory.OrderRepository
	publisher *recordingPublisher
	service   *apporder.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p1, err := catalog.NewProduct("p1", 10, 5)
	require.NoError(t, err)
	p2, err := catalog.NewProduct("p2", 20, 1)
	require.NoError(t, err)

	customers := memory.NewCustomerRepository(&customer.Customer{ID: "c1", Name: "Alice"})
	products := memory.NewProductRepository(p1, p2)
	orders := memory.NewOrderRepository()
	publisher := &recordingPublisher{}

	return &fixture{
		customers: customers,
		products:  products,
		orders:    orders,
		publisher: publisher,
		service:   apporder.NewService(customers, products, orders, fixedIDGen{id: "order-1"}, publisher, nil),
	}
}

func (f *fixture) available(t *testing.T, productID string) int {
	t.Helper()
	found, err := f.products.FindAllByIDs(context.Background(), []string{productID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	return found[0].Available
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "order-1", created.ID)
	assert.Equal(t, "c1", created.CustomerID)
	require.Len(t, created.Items, 2)
	assert.Equal(t, domorder.LineItem{ProductID: "p1", Quantity: 2, UnitPrice: 10}, created.Items[0])
	assert.Equal(t, domorder.LineItem{ProductID: "p2", Quantity: 1, UnitPrice: 20}, created.Items[1])

	assert.Equal(t, 3, f.available(t, "p1"))
	assert.Equal(t, 0, f.available(t, "p2"))

	persisted, err := f.orders.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, created.Items, persisted.Items)
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "nobody",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, customer.ErrNotFound)

	assert.Equal(t, 0, f.orders.Count())
	assert.Equal(t, 5, f.available(t, "p1"))
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newFixture(t)

	// One unknown id rejects the whole request, valid items notwithstanding.
	_, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "ghost", Quantity: 1},
		},
	})
	require.ErrorIs(t, err, catalog.ErrNotFound)

	assert.Equal(t, 0, f.orders.Count())
	assert.Equal(t, 5, f.available(t, "p1"))
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 2},
		},
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)

	assert.Equal(t, 0, f.orders.Count())
	assert.Equal(t, 5, f.available(t, "p1"))
	assert.Equal(t, 1, f.available(t, "p2"))
}

func TestCreateOrder_FirstViolationWins(t *testing.T) {
	f := newFixture(t)

	// Both items exceed stock; the one earliest in caller order is reported.
	_, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p2", Quantity: 9},
			{ProductID: "p1", Quantity: 9},
		},
	})
	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
}

func TestCreateOrder_PriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, apporder.CreateOrderInput{
		CustomerID: "c1",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), created.Items[0].UnitPrice)

	// A later catalog price change must not leak into the stored order.
	repriced, err := catalog.NewProduct("p1", 999, 4)
	require.NoError(t, err)
	require.NoError(t, f.products.Save(ctx, repriced))

	persisted, err := f.orders.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), persisted.Items[0].UnitPrice)

	// A second order picks up the price current at its own call time.
	second, err := apporder.NewService(f.customers, f.products, f.orders, fixedIDGen{id: "order-2"}, nil, nil).
		CreateOrder(ctx, apporder.CreateOrderInput{
			CustomerID: "c1",
			Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
		})
	require.NoError(t, err)
	assert.Equal(t, int64(999), second.Items[0].UnitPrice)
}

func TestCreateOrder_DuplicateProductIDs(t *testing.T) {
	f := newFixture(t)

	// Duplicates are de-duplicated for the catalog lookup but decremented
	// once per requested line.
	created, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p1", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Items, 2)

	assert.Equal(t, 2, f.available(t, "p1"))
}

func TestCreateOrder_DuplicateLinesExceedingStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Each line fits the available stock of 5 on its own, so the per-line
	// availability check passes and the order is committed; the combined
	// decrement of 6 then fails after the save, with no rollback.
	_, err := f.service.CreateOrder(ctx, apporder.CreateOrderInput{
		CustomerID: "c1",
		Items: []apporder.ItemRequest{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p1", Quantity: 3},
		},
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	assert.Equal(t, 1, f.orders.Count())
	assert.Equal(t, 5, f.available(t, "p1"))
}

func TestCreateOrder_InputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateOrder(ctx, apporder.CreateOrderInput{
		CustomerID: "",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domorder.ErrCustomerIDRequired)

	_, err = f.service.CreateOrder(ctx, apporder.CreateOrderInput{CustomerID: "c1"})
	assert.ErrorIs(t, err, domorder.ErrNoLineItems)

	assert.Equal(t, 0, f.orders.Count())
}

func TestCreateOrder_ZeroQuantityPasses(t *testing.T) {
	f := newFixture(t)

	// No lower-bound check: a zero quantity never exceeds availability and
	// goes through as a priced no-op line.
	created, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items:      []apporder.ItemRequest{{ProductID: "p2", Quantity: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, created.Items[0].Quantity)
	assert.Equal(t, 1, f.available(t, "p2"))
}

func TestCreateOrder_PublishesCreatedEvent(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(domorder.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, created.ID, evt.OrderID)
	assert.Equal(t, "c1", evt.CustomerID)
	assert.Equal(t, int64(10), evt.Total)
}

type failingCatalog struct {
	products []*catalog.Product
}

func (c *failingCatalog) FindAllByIDs(_ context.Context, ids []string) ([]*catalog.Product, error) {
	found := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		for _, p := range c.products {
			if p.ID == id {
				found = append(found, p)
			}
		}
	}
	return found, nil
}

func (c *failingCatalog) DecrementStock(context.Context, []catalog.Decrement) error {
	return errors.New("catalog unavailable")
}

func TestCreateOrder_DecrementFailureAfterSave(t *testing.T) {
	p1, err := catalog.NewProduct("p1", 10, 5)
	require.NoError(t, err)

	customers := memory.NewCustomerRepository(&customer.Customer{ID: "c1"})
	orders := memory.NewOrderRepository()
	svc := apporder.NewService(customers, &failingCatalog{products: []*catalog.Product{p1}}, orders, fixedIDGen{id: "order-1"}, nil, nil)

	_, err = svc.CreateOrder(context.Background(), apporder.CreateOrderInput{
		CustomerID: "c1",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.Error(t, err)

	// The order was committed before the decrement ran; no rollback happens.
	assert.Equal(t, 1, orders.Count())
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateOrder(ctx, apporder.CreateOrderInput{
		CustomerID: "c1",
		Items:      []apporder.ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	found, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.service.Get(ctx, "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)

	_, err = f.service.Get(ctx, "")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}
