package session

import (
	"context"
	"fmt"

	"jobfolio/web/internal/rbac"
)

type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
	// StatusIncomplete means identity fields were stored without a token.
	// It is never treated as signed in.
	StatusIncomplete Status = "incomplete"
)

// undefinedID is what a client that serialised a missing id leaves behind.
const undefinedID = "undefined"

type Session struct {
	Status   Status `json:"status"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
	UserRole string `json:"userRole,omitempty"`
	Token    string `json:"-"`
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Resolve derives the session from the store. It never calls the network.
//
// A token without a usable user id is unauthenticated. Identity fields without
// a token make the session incomplete, and every identity key is purged from
// all substrates before returning. On error the returned session is still
// usable and never authenticated.
func Resolve(ctx context.Context, store *Store) (Session, error) {
	anon := Session{Status: StatusUnauthenticated}

	token, err := store.Lookup(ctx, tokenKeys...)
	if err != nil {
		return anon, fmt.Errorf("lookup token: %w", err)
	}
	userID, err := store.Lookup(ctx, KeyUserID)
	if err != nil {
		return anon, fmt.Errorf("lookup user id: %w", err)
	}
	userName, err := store.Lookup(ctx, KeyUserName)
	if err != nil {
		return anon, fmt.Errorf("lookup user name: %w", err)
	}
	userRole, err := store.Lookup(ctx, KeyUserRole)
	if err != nil {
		return anon, fmt.Errorf("lookup user role: %w", err)
	}

	if token == "" {
		if userID == "" && userName == "" && userRole == "" {
			return anon, nil
		}
		incomplete := Session{Status: StatusIncomplete}
		if err := store.remove(ctx, identityKeys...); err != nil {
			return incomplete, fmt.Errorf("purge incomplete session: %w", err)
		}
		return incomplete, nil
	}

	if userID == "" || userID == undefinedID {
		return anon, nil
	}

	return Session{
		Status:   StatusAuthenticated,
		UserID:   userID,
		UserName: userName,
		UserRole: string(rbac.Normalize(userRole)),
		Token:    token,
	}, nil
}
