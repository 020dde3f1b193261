package customer

import "errors"

var ErrNotFound = errors.New("customer: not found")

type Customer struct {
	ID   string
	Name string
}
