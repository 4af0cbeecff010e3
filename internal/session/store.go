package session

import (
	"context"
	"errors"
	"fmt"
)

// Credentials is what a successful login persists.
type Credentials struct {
	UserID   string
	UserName string
	UserRole string
	Token    string
}

// Store reads credentials from its substrates in preference order and writes
// through to all of them.
type Store struct {
	substrates []Substrate
}

// NewStore builds a store; substrates are listed most preferred first.
func NewStore(substrates ...Substrate) *Store {
	var kept []Substrate
	for _, s := range substrates {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Store{substrates: kept}
}

// Lookup returns the first value found, walking substrates in preference
// order and, inside each substrate, keys in the given order. A failing
// substrate is skipped; its error is reported only when no value was found.
func (s *Store) Lookup(ctx context.Context, keys ...string) (string, error) {
	var errs []error
	for _, substrate := range s.substrates {
		for _, key := range keys {
			value, ok, err := substrate.Get(ctx, key)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", substrate.Name(), err))
				break
			}
			if ok {
				return value, nil
			}
		}
	}
	return "", errors.Join(errs...)
}

// Save writes every credential field to every substrate. Empty fields are
// removed so no stale value survives a partial write.
func (s *Store) Save(ctx context.Context, creds Credentials) error {
	values := map[string]string{
		KeyUserID:      creds.UserID,
		KeyUserName:    creds.UserName,
		KeyUserRole:    creds.UserRole,
		KeyAuthToken:   creds.Token,
		KeyAccessToken: creds.Token,
	}
	var errs []error
	for _, substrate := range s.substrates {
		var empty []string
		for _, key := range AllKeys() {
			value := values[key]
			if value == "" {
				empty = append(empty, key)
				continue
			}
			if err := substrate.Set(ctx, key, value); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", substrate.Name(), err))
			}
		}
		if len(empty) > 0 {
			if err := substrate.Delete(ctx, empty...); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", substrate.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Clear removes every credential key from every substrate.
func (s *Store) Clear(ctx context.Context) error {
	return s.remove(ctx, AllKeys()...)
}

func (s *Store) remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, substrate := range s.substrates {
		if err := substrate.Delete(ctx, keys...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", substrate.Name(), err))
		}
	}
	return errors.Join(errs...)
}
