package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()

	c := NewCatalog()
	require.NoError(t, c.Register(Permission{Name: "dashboard:view"}))
	require.NoError(t, c.Register(Permission{Name: "user:create"}))
	c.Freeze()

	r := NewResolver(c)
	require.NoError(t, r.DefineRole("viewer", []string{"dashboard:view"}))
	return NewChecker(r)
}

func TestCheckerRoleMembership(t *testing.T) {
	checker := newTestChecker(t)
	alice := Subject{Active: true, Roles: []string{"viewer"}}

	assert.True(t, checker.Allows(alice, "dashboard:view"))
	assert.False(t, checker.Allows(alice, "user:create"))
	assert.False(t, checker.Allows(alice, "not:registered"))
}

func TestCheckerInactiveDeniesEvenSuperuser(t *testing.T) {
	checker := newTestChecker(t)

	disabledRoot := Subject{Active: false, Superuser: true, Roles: []string{"viewer"}}
	assert.False(t, checker.Allows(disabledRoot, "dashboard:view"))
	assert.False(t, checker.Allows(disabledRoot, "user:create"))
}

func TestCheckerSuperuserBypassesResolution(t *testing.T) {
	checker := newTestChecker(t)

	root := Subject{Active: true, Superuser: true}
	assert.True(t, checker.Allows(root, "user:create"))
	// Superuser passes even for names the catalog has never seen.
	assert.True(t, checker.Allows(root, "anything:at-all"))
}

func TestCheckerNoRolesDenies(t *testing.T) {
	checker := newTestChecker(t)

	assert.False(t, checker.Allows(Subject{Active: true}, "dashboard:view"))
}
