package handler

import (
	"errors"
	"net/http"

	"pastahub/internal/service"
)

// statusFor maps service errors onto HTTP status codes. Unknown errors are
// treated as bad requests so validation messages reach the client.
func statusFor(err error) int {
	var transitionErr *service.InvalidTransitionError
	var stockErr *service.InsufficientStockError
	var configErr *service.ConfigurationError
	var gatewayErr *service.GatewayError

	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transitionErr), errors.As(err, &stockErr):
		return http.StatusConflict
	case errors.As(err, &configErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
