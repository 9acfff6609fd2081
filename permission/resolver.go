package permission

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownRole is returned when granting or revoking on a role that was
// never defined.
var ErrUnknownRole = errors.New("role not defined")

// ErrDuplicateRole is returned when defining a role name twice.
var ErrDuplicateRole = errors.New("role already defined")

type roleEntry struct {
	// mu serializes grant/revoke per role; different roles mutate concurrently.
	mu    sync.RWMutex
	perms map[string]struct{}
}

// Resolver maps role names to permission sets. Every permission granted to a
// role must exist in the backing Catalog; unknown names are rejected at grant
// time, so a role's set is always a subset of the catalog.
type Resolver struct {
	catalog *Catalog

	mu    sync.RWMutex
	roles map[string]*roleEntry
}

// NewResolver creates a Resolver validating against the given catalog.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		roles:   make(map[string]*roleEntry),
	}
}

// DefineRole registers a role with its initial permission set.
func (r *Resolver) DefineRole(name string, perms []string) error {
	if name == "" {
		return ErrUnknownRole
	}
	for _, p := range perms {
		if !r.catalog.Contains(p) {
			return ErrUnknownPermission
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roles[name]; exists {
		return ErrDuplicateRole
	}

	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	r.roles[name] = &roleEntry{perms: set}
	return nil
}

// Grant adds a permission to a role. The permission must be in the catalog.
func (r *Resolver) Grant(role, perm string) error {
	if !r.catalog.Contains(perm) {
		return ErrUnknownPermission
	}

	entry, ok := r.entry(role)
	if !ok {
		return ErrUnknownRole
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.perms[perm] = struct{}{}
	return nil
}

// Revoke removes a permission from a role. Revoking a permission the role
// does not hold is not an error.
func (r *Resolver) Revoke(role, perm string) error {
	entry, ok := r.entry(role)
	if !ok {
		return ErrUnknownRole
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	delete(entry.perms, perm)
	return nil
}

// Resolve returns the union of the permission sets of the given roles.
// Unknown role names contribute nothing; duplicates across roles collapse.
func (r *Resolver) Resolve(roles []string) map[string]struct{} {
	merged := make(map[string]struct{})

	for _, role := range roles {
		entry, ok := r.entry(role)
		if !ok {
			continue
		}
		entry.mu.RLock()
		for p := range entry.perms {
			merged[p] = struct{}{}
		}
		entry.mu.RUnlock()
	}

	return merged
}

// RolePermissions returns the sorted permission list of one role.
func (r *Resolver) RolePermissions(role string) ([]string, bool) {
	entry, ok := r.entry(role)
	if !ok {
		return nil, false
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	perms := make([]string, 0, len(entry.perms))
	for p := range entry.perms {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms, true
}

// Roles returns the defined role names in sorted order.
func (r *Resolver) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.roles))
	for name := range r.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Resolver) entry(role string) (*roleEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.roles[role]
	return entry, ok
}
