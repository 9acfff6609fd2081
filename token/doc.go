// Package token mints and verifies the JWT pair that carries a login.
//
// Access and refresh tokens share one claims shape and differ only in the
// typ claim and TTL. Verification is strict about type: an access token
// never refreshes and a refresh token never authorizes a request.
package token
