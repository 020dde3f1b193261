package memory

import (
	"context"
	"sync"

	domain "github.com/commercelab/orderflow/internal/domain/catalog"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository(seed ...*domain.Product) *ProductRepository {
	r := &ProductRepository{
		products: make(map[string]*domain.Product, len(seed)),
	}
	for _, p := range seed {
		if p != nil {
			r.products[p.ID] = cloneProduct(p)
		}
	}
	return r
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = cloneProduct(p)
	return nil
}

// FindAllByIDs returns snapshots of the known products among ids. Unknown
// ids are skipped, so the result may be shorter than the request.
func (r *ProductRepository) FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found = append(found, cloneProduct(p))
		}
	}
	return found, nil
}

// DecrementStock applies all reductions under one lock, verifying every
// product and quantity before mutating anything. Either all decrements
// apply or none do.
func (r *ProductRepository) DecrementStock(ctx context.Context, decrements []domain.Decrement) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	need := make(map[string]int, len(decrements))
	for _, d := range decrements {
		need[d.ProductID] += d.Quantity
	}

	for id, qty := range need {
		p, ok := r.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		if qty > p.Available {
			return &domain.InsufficientStockError{ProductID: id}
		}
	}

	for id, qty := range need {
		if err := r.products[id].Decrement(qty); err != nil {
			return err
		}
	}
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
