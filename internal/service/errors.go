package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ConfigurationError signals that catalog or pricing data violates an
// invariant (a product with neither a price category nor a direct price).
// It is a bug signal, not a user-recoverable condition.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// InvalidTransitionError is returned when an order cannot move to the
// requested status from its current one. Its message is shown to staff
// verbatim, so the wording is part of the API contract.
type InvalidTransitionError struct {
	OrderNumber int
	Action      string // past participle: "rejected", "confirmed", "completed"
	Status      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Order %d could not be %s because it is already in state %s",
		e.OrderNumber, e.Action, e.Status)
}

// InsufficientStockError blocks a completion when an item quantity exceeds
// the product's on-hand balance. The first shortfall found is reported.
type InsufficientStockError struct {
	OrderNumber int
	ProductName string
	Requested   int
	OnHand      int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Order %d could not be completed: insufficient stock of %s (requested %d, on hand %d)",
		e.OrderNumber, e.ProductName, e.Requested, e.OnHand)
}

// GatewayError wraps a non-success outcome from the invoicing gateway.
// Local state is never changed when one is returned.
type GatewayError struct {
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoicing gateway failure: %v", e.Err)
	}
	return fmt.Sprintf("invoicing gateway returned status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
