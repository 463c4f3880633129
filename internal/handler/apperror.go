package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken        = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken        = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest      = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request"}
	ErrResourceNotFound    = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrCustomerNotLinked   = &AppError{http.StatusNotFound, "BILLING_CUSTOMER_NOT_FOUND", "No billing customer for this account"}
	ErrProviderUnavailable = &AppError{http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "Payment provider request failed"}
	ErrRateLimited         = &AppError{http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, retry shortly"}
	ErrInternalError       = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
)
