// Package permission implements the permission catalog, the role to
// permission-set resolver, and the access decision checker.
//
// The Catalog is the registry of known permissions and is frozen after
// startup; later additions go through the explicit administrative path.
// The Resolver maps role names to permission sets and merges them with
// set-union semantics. The Checker applies the decision order that matters
// for security: inactive accounts are denied before the superuser bypass
// is considered.
package permission
