package sentiment

import "errors"

var (
	// ErrResultMismatch is returned when a classifier returns a different number of predictions than inputs
	ErrResultMismatch = errors.New("classifier returned wrong number of predictions")

	// ErrUnknownLabel is returned when a prediction carries a label other than POSITIVE or NEGATIVE
	ErrUnknownLabel = errors.New("unknown sentiment label")

	// ErrMissingAPIKey is returned when a hosted classifier has no credentials
	ErrMissingAPIKey = errors.New("classifier API key is required")

	// ErrUnsupportedProvider is returned when an unknown classifier is configured
	ErrUnsupportedProvider = errors.New("unsupported sentiment provider")
)
