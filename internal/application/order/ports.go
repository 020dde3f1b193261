package order

// IDGenerator supplies identifiers for newly created orders.
type IDGenerator interface {
	NewID() string
}
