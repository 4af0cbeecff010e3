package session

import (
	"context"
	"errors"
)

// ErrSubstrate marks a failure of the storage backing a substrate.
var ErrSubstrate = errors.New("credential substrate unavailable")

// Substrate is one place credentials are persisted.
type Substrate interface {
	Name() string
	// Get reports whether key holds a non-empty value.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Volatile hands out the volatile substrate of a single client.
type Volatile interface {
	For(clientID string) Substrate
	Ping(ctx context.Context) error
}
