package permission

// Subject is the minimal account projection the Checker needs for a
// decision.
type Subject struct {
	Active    bool
	Superuser bool
	Roles     []string
}

// Checker decides whether a subject holds a permission.
type Checker struct {
	resolver *Resolver
}

// NewChecker creates a Checker backed by the given resolver.
func NewChecker(resolver *Resolver) *Checker {
	return &Checker{resolver: resolver}
}

// Allows reports whether the subject holds the named permission.
//
// The order is load-bearing: inactive accounts are denied before the
// superuser bypass, so a disabled superuser never passes. Superusers then
// pass for any name, registered or not. Everyone else needs the name in the
// union of their roles' sets; any failure to resolve denies rather than
// allows.
func (c *Checker) Allows(s Subject, perm string) bool {
	if !s.Active {
		return false
	}
	if s.Superuser {
		return true
	}
	if c == nil || c.resolver == nil {
		return false
	}

	_, ok := c.resolver.Resolve(s.Roles)[perm]
	return ok
}
