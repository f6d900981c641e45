package domain

import "github.com/pkg/errors"

var (
	// ErrSourceUnavailable marks an upstream market data source that is
	// unreachable or rejected credentials. Fatal to the current operation,
	// never retried internally.
	ErrSourceUnavailable = errors.New("market data source unavailable")

	// ErrPersistence marks a failed read or write against a store.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidInput marks a caller contract violation, e.g. unsorted
	// input series handed to the join engine.
	ErrInvalidInput = errors.New("invalid input")
)
