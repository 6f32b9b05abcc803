package social

import "errors"

var (
	// ErrMissingCredentials is returned when the Reddit client ID or secret is not provided
	ErrMissingCredentials = errors.New("reddit client id and secret are required")

	// ErrUnauthorized is returned when the platform rejects the credentials
	ErrUnauthorized = errors.New("social API rejected credentials")

	// ErrRateLimited is returned when rate limits are exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrProviderUnavailable is returned when the circuit breaker is open or the service is down
	ErrProviderUnavailable = errors.New("social provider is currently unavailable")

	// ErrUnsupportedProvider is returned when an unknown provider is configured
	ErrUnsupportedProvider = errors.New("unsupported social provider")
)
