// Package services defines the business logic for the retail ledger: the
// order mutation pipeline, the activity fan-out stage, aggregation functions,
// composite reports, catalog management, and maintenance jobs. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrInsufficientStock is the pipeline's single hard abort: the order's
	// requested quantity exceeds the product's current stock. The whole
	// mutation transaction rolls back.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConstraintViolation rejects an order before the pipeline runs:
	// quantity <= 0 or cost < 0, or a catalog row whose sell price is below
	// its buy price.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrClientNotFound indicates the referenced client does not exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrEmployeeNotFound indicates the referenced employee does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotificationNotFound indicates the requested notification does not
	// exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidActivityType is returned when an activity event carries a
	// type outside the allowed set.
	ErrInvalidActivityType = errors.New("invalid activity type")
)
