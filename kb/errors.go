package kb

import "errors"

var (
	// ErrStoreRequired is returned when a metadata store is not provided.
	ErrStoreRequired = errors.New("metadata store required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")
)
