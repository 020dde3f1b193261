package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidPrice      = errors.New("catalog: unit price must be zero or greater")
	ErrInvalidStock      = errors.New("catalog: available quantity must be zero or greater")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)

// InsufficientStockError carries the product whose availability was exceeded.
// It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("catalog: insufficient stock for product %s", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Product is the catalog's current view of a product. The unit price is in
// the smallest currency unit. Callers receive a point-in-time snapshot; the
// catalog may change underneath once the lookup returns.
type Product struct {
	ID        string
	UnitPrice int64
	Available int
	UpdatedAt time.Time
}

func NewProduct(id string, unitPrice int64, available int) (*Product, error) {
	if unitPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if available < 0 {
		return nil, ErrInvalidStock
	}
	return &Product{
		ID:        id,
		UnitPrice: unitPrice,
		Available: available,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (p *Product) Decrement(quantity int) error {
	if quantity > p.Available {
		return &InsufficientStockError{ProductID: p.ID}
	}
	p.Available -= quantity
	p.UpdatedAt = time.Now().UTC()
	return nil
}
