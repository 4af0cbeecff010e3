// Package gate decides whether a navigation is allowed, sent to the login page
// or sent to the dashboard.
//
// The decision runs twice per page request. Edge runs first on every
// non-static request and can only see cookies. Mount runs when the page
// handler is reached and resolves again from the volatile per-client store
// with cookie fallback. Both use the same session.Resolve and route.Classify,
// so they agree whenever they see the same credentials.
//
// Neither layer verifies tokens. They only decide navigation. API handlers
// that serve or record data confirm the caller with the backend by bearer
// token and take the user id and role from its answer.
package gate
