package memory

import (
	"context"
	"sync"

	domain "github.com/commercelab/orderflow/internal/domain/customer"
)

type CustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
}

func NewCustomerRepository(seed ...*domain.Customer) *CustomerRepository {
	r := &CustomerRepository{
		customers: make(map[string]*domain.Customer, len(seed)),
	}
	for _, c := range seed {
		if c != nil {
			r.customers[c.ID] = cloneCustomer(c)
		}
	}
	return r
}

func (r *CustomerRepository) Add(ctx context.Context, c *domain.Customer) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.customers[c.ID] = cloneCustomer(c)
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCustomer(c), nil
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
