package permission

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownPermission is returned when a permission name is not in the catalog.
	ErrUnknownPermission = errors.New("permission not registered")
	// ErrDuplicatePermission is returned when registering a name twice.
	ErrDuplicatePermission = errors.New("permission already registered")
	// ErrInvalidPermissionName is returned for names not shaped as resource:action.
	ErrInvalidPermissionName = errors.New("invalid permission name")
	// ErrCatalogFrozen is returned by Register after Freeze; use Admit for
	// the administrative registration path.
	ErrCatalogFrozen = errors.New("catalog frozen")
)

// Permission is one registered capability. Group and Description are
// presentation metadata only; access decisions use Name alone.
type Permission struct {
	Name        string
	Group       string
	Description string
}

// Catalog is the registry of known permission names. It is populated during
// startup, frozen, and read-mostly afterwards. Admit is the only mutation
// allowed on a frozen catalog and is reserved for the audited
// register-permission administrative operation.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]Permission
	frozen bool
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]Permission),
	}
}

// ValidateName checks that a permission name is shaped as resource:action
// with both parts non-empty.
func ValidateName(name string) error {
	resource, action, ok := strings.Cut(name, ":")
	if !ok || resource == "" || action == "" || strings.Contains(action, ":") {
		return ErrInvalidPermissionName
	}
	return nil
}

// Register adds a permission during the startup phase. It fails once the
// catalog has been frozen.
func (c *Catalog) Register(p Permission) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrCatalogFrozen
	}
	return c.add(p)
}

// Admit adds a permission to a frozen catalog. Callers are expected to audit
// the operation; the Engine is the only intended call site.
func (c *Catalog) Admit(p Permission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(p)
}

func (c *Catalog) add(p Permission) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if _, exists := c.byName[p.Name]; exists {
		return ErrDuplicatePermission
	}
	c.byName[p.Name] = p
	return nil
}

// Freeze ends the startup registration phase.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Contains reports whether the name is registered.
func (c *Catalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byName[name]
	return ok
}

// Get returns the registered permission for name.
func (c *Catalog) Get(name string) (Permission, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byName[name]
	return p, ok
}

// Count returns the number of registered permissions.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// Names returns all registered permission names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups returns permissions bucketed by group, for presentation. Buckets
// and their contents are sorted by name.
func (c *Catalog) Groups() map[string][]Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()

	groups := make(map[string][]Permission)
	for _, p := range c.byName {
		groups[p.Group] = append(groups[p.Group], p)
	}
	for _, perms := range groups {
		sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	}
	return groups
}
