package catalog

import "context"

// Decrement is a single stock reduction to apply against a product.
type Decrement struct {
	ProductID string
	Quantity  int
}

// Repository is the catalog port consumed by the order-creation workflow.
// FindAllByIDs may return fewer products than requested when some ids are
// unknown. DecrementStock applies all reductions atomically or not at all.
type Repository interface {
	FindAllByIDs(ctx context.Context, ids []string) ([]*Product, error)
	DecrementStock(ctx context.Context, decrements []Decrement) error
}
