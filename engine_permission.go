package adminauth

import (
	"context"
	"sort"

	"github.com/adminkit/adminauth/permission"
)

// Allows reports whether the account holds the named permission. Inactive
// accounts are always denied; active superusers are always allowed.
func (e *Engine) Allows(view *AccountView, perm string) bool {
	if view == nil {
		return false
	}
	return e.checker.Allows(permission.Subject{
		Active:    view.Active,
		Superuser: view.Superuser,
		Roles:     view.Roles,
	}, perm)
}

// Require returns ErrPermissionDenied unless the account holds the
// permission.
func (e *Engine) Require(view *AccountView, perm string) error {
	if !e.Allows(view, perm) {
		return ErrPermissionDenied
	}
	return nil
}

// RegisterPermission admits a new permission into the catalog at runtime.
// The addition is audited with the acting account.
func (e *Engine) RegisterPermission(ctx context.Context, actor string, perm permission.Permission) error {
	if err := e.catalog.Admit(perm); err != nil {
		return err
	}
	e.emit(ctx, AuditEvent{
		EventType: EventPermRegistered,
		AccountID: actor,
		Success:   true,
		Metadata:  map[string]string{"permission": perm.Name},
	})
	return nil
}

// GrantPermission adds a catalog permission to a role.
func (e *Engine) GrantPermission(ctx context.Context, actor, role, perm string) error {
	if err := e.resolver.Grant(role, perm); err != nil {
		return err
	}
	e.emit(ctx, AuditEvent{
		EventType: EventPermGranted,
		AccountID: actor,
		Success:   true,
		Metadata:  map[string]string{"role": role, "permission": perm},
	})
	return nil
}

// RevokePermission removes a permission from a role. Sessions of accounts
// holding the role see the change on their next check; no re-login is
// needed.
func (e *Engine) RevokePermission(ctx context.Context, actor, role, perm string) error {
	if err := e.resolver.Revoke(role, perm); err != nil {
		return err
	}
	e.emit(ctx, AuditEvent{
		EventType: EventPermRevoked,
		AccountID: actor,
		Success:   true,
		Metadata:  map[string]string{"role": role, "permission": perm},
	})
	return nil
}

// Permissions resolves the effective permission names of an account,
// sorted. Superusers get the whole catalog.
func (e *Engine) Permissions(view *AccountView) []string {
	if view == nil || !view.Active {
		return nil
	}
	if view.Superuser {
		return e.catalog.Names()
	}
	merged := e.resolver.Resolve(view.Roles)
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PermissionGroups exposes the catalog bucketed by group for building
// admin UIs.
func (e *Engine) PermissionGroups() map[string][]permission.Permission {
	return e.catalog.Groups()
}

// Roles lists the defined role names.
func (e *Engine) Roles() []string {
	return e.resolver.Roles()
}
