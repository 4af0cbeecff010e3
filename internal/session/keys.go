// Package session resolves the locally held credentials of a browser client into
// a Session verdict.
//
// Credentials live in two substrates: a volatile per-client key-value store and
// cookies. Reads prefer the volatile substrate and fall back to cookies; writes
// and purges go to both. The verdict is derived from unverified client-held
// claims, so it only decides navigation. The backend re-validates the bearer
// token on every request it serves.
package session

// Persisted credential keys, identical in every substrate.
const (
	KeyUserID      = "userId"
	KeyUserName    = "userName"
	KeyUserRole    = "userRole"
	KeyAuthToken   = "authToken"
	KeyAccessToken = "accessToken"
)

// tokenKeys are synonyms; the first one present wins.
var tokenKeys = []string{KeyAuthToken, KeyAccessToken}

var identityKeys = []string{KeyUserID, KeyUserName, KeyUserRole}

// AllKeys returns every key the credential store may hold.
func AllKeys() []string {
	keys := make([]string, 0, len(identityKeys)+len(tokenKeys))
	keys = append(keys, identityKeys...)
	keys = append(keys, tokenKeys...)
	return keys
}
