package order

import "time"

// OrderCreatedEvent is a domain event emitted after a new order has been
// persisted and stock has been decremented. It is intended for downstream
// consumers such as audit or notification handlers.
type OrderCreatedEvent struct {
	OrderID    string
	CustomerID string
	Items      []LineItem
	Total      int64
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      append([]LineItem(nil), o.Items...),
		Total:      o.Total(),
		OccurredAt: time.Now().UTC(),
	}
}
