package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrCustomerNotLinked     = errors.New("no billing customer linked to user")
	ErrCustomerLinkConflict  = errors.New("user or customer already linked elsewhere")
	ErrDuplicateGuestSession = errors.New("guest session already exists")
	ErrProviderUnavailable   = errors.New("payment provider request failed")
)
