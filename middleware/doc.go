// Package middleware provides net/http handlers that gate requests on the
// engine's token verification and permission checks.
package middleware
