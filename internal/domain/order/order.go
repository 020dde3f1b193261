package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("order: not found")
	ErrCustomerIDRequired = errors.New("order: customer id is required")
	ErrNoLineItems        = errors.New("order: at least one line item is required")
)

// LineItem binds a product to an order with the unit price captured at
// creation time. The price is a snapshot; later catalog changes never
// affect it.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// Order is the aggregate root: a customer plus its priced line items.
// It is created once and never mutated afterwards.
type Order struct {
	ID         string
	CustomerID string
	Items      []LineItem
	CreatedAt  time.Time
}

func New(id, customerID string, items []LineItem) (*Order, error) {
	if customerID == "" {
		return nil, ErrCustomerIDRequired
	}
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	return &Order{
		ID:         id,
		CustomerID: customerID,
		Items:      append([]LineItem(nil), items...),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Total returns the order value derived from the snapshotted prices.
func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	return &clone
}
