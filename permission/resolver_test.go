package permission

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()

	c := NewCatalog()
	for _, name := range []string{"dashboard:view", "user:create", "user:delete", "log:view"} {
		require.NoError(t, c.Register(Permission{Name: name}))
	}
	c.Freeze()

	r := NewResolver(c)
	require.NoError(t, r.DefineRole("viewer", []string{"dashboard:view"}))
	require.NoError(t, r.DefineRole("operator", []string{"dashboard:view", "user:create"}))
	return r
}

func TestResolveUnionCollapsesDuplicates(t *testing.T) {
	r := newTestResolver(t)

	merged := r.Resolve([]string{"viewer", "operator"})
	assert.Len(t, merged, 2)
	assert.Contains(t, merged, "dashboard:view")
	assert.Contains(t, merged, "user:create")
}

func TestResolveSkipsUnknownRoles(t *testing.T) {
	r := newTestResolver(t)

	merged := r.Resolve([]string{"viewer", "ghost"})
	assert.Len(t, merged, 1)
	assert.Empty(t, r.Resolve(nil))
}

func TestGrantRejectsUnknownPermission(t *testing.T) {
	r := newTestResolver(t)

	assert.ErrorIs(t, r.Grant("viewer", "nuclear:launch"), ErrUnknownPermission)
	assert.ErrorIs(t, r.Grant("ghost", "user:create"), ErrUnknownRole)
}

func TestGrantAndRevoke(t *testing.T) {
	r := newTestResolver(t)

	require.NoError(t, r.Grant("viewer", "log:view"))
	perms, ok := r.RolePermissions("viewer")
	require.True(t, ok)
	assert.Equal(t, []string{"dashboard:view", "log:view"}, perms)

	require.NoError(t, r.Revoke("viewer", "log:view"))
	// Revoking an absent permission is idempotent.
	require.NoError(t, r.Revoke("viewer", "log:view"))

	perms, _ = r.RolePermissions("viewer")
	assert.Equal(t, []string{"dashboard:view"}, perms)
}

func TestDefineRoleRejectsDuplicatesAndUnknownPerms(t *testing.T) {
	r := newTestResolver(t)

	assert.ErrorIs(t, r.DefineRole("viewer", nil), ErrDuplicateRole)
	assert.ErrorIs(t, r.DefineRole("broken", []string{"no:such"}), ErrUnknownPermission)
}

func TestConcurrentGrantAcrossRoles(t *testing.T) {
	r := newTestResolver(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Grant("viewer", "log:view")
		}()
		go func() {
			defer wg.Done()
			_ = r.Grant("operator", "user:delete")
			_ = r.Resolve([]string{"viewer", "operator"})
		}()
	}
	wg.Wait()

	merged := r.Resolve([]string{"viewer", "operator"})
	assert.Contains(t, merged, "log:view")
	assert.Contains(t, merged, "user:delete")
}
