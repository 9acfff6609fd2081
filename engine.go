package adminauth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adminkit/adminauth/lockout"
	"github.com/adminkit/adminauth/password"
	"github.com/adminkit/adminauth/permission"
	"github.com/adminkit/adminauth/session"
	"github.com/adminkit/adminauth/token"
)

// Engine is the authentication core. Construct it through Builder.Build;
// the zero value is not usable.
type Engine struct {
	cfg      Config
	log      *slog.Logger
	accounts AccountRepository
	verifier *password.Verifier
	issuer   *token.Issuer
	sessions session.Store
	guard    *lockout.Guard
	resets   resetStore
	catalog  *permission.Catalog
	resolver *permission.Resolver
	checker  *permission.Checker
	audit    *auditDispatcher
	metrics  *Metrics

	// ownedRedis is set only when Build opened the connection itself from
	// Config.Redis; injected clients stay the caller's to close.
	ownedRedis io.Closer
}

// Close drains the audit dispatcher and releases any Redis connection the
// builder opened from configuration. The engine is unusable afterwards.
func (e *Engine) Close() {
	e.metrics.auditDrop(e.audit.Dropped())
	e.audit.Close()
	if e.ownedRedis != nil {
		if err := e.ownedRedis.Close(); err != nil {
			e.log.Warn("closing redis client failed", "error", err)
		}
	}
}

// Metrics exposes the Prometheus instrumentation, nil when disabled.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// AuditDropped reports audit events shed so far under DropIfFull.
func (e *Engine) AuditDropped() uint64 { return e.audit.Dropped() }

// storeCtx bounds one backing-store call.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.StoreTimeout)
}

// Authenticate verifies credentials and opens a session.
//
// The lockout check runs before any hash work so a locked identifier costs
// nothing, and it is checked even when the password would have been
// correct. Unknown identifier and wrong password both return
// ErrInvalidCredentials; a correct password on a disabled account returns
// ErrAccountInactive and still counts as a failure for lockout purposes.
func (e *Engine) Authenticate(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	ip := clientIPFromContext(ctx)

	if err := e.guard.Check(ctx, identifier, ip); err != nil {
		e.metrics.lockout()
		e.emit(ctx, AuditEvent{
			EventType:  EventLoginBlocked,
			Identifier: identifier,
			IP:         ip,
			Error:      Code(ErrAccountLocked),
		})
		return nil, ErrAccountLocked
	}

	acct, err := e.lookupAccount(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		// Unknown identifier burns lockout budget like a bad password, so
		// probing identifiers is as expensive as probing passwords.
		e.recordFailure(ctx, identifier, ip, "", "unknown identifier")
		return nil, ErrInvalidCredentials
	}

	if !e.verifier.Verify(pass, acct.PasswordHash) {
		e.recordFailure(ctx, identifier, ip, acct.ID, "password mismatch")
		e.recordOutcome(ctx, acct.ID, false)
		return nil, ErrInvalidCredentials
	}

	if !acct.Active {
		e.recordFailure(ctx, identifier, ip, acct.ID, "account inactive")
		e.recordOutcome(ctx, acct.ID, false)
		return nil, ErrAccountInactive
	}

	e.guard.RecordSuccess(ctx, identifier, ip)
	e.maybeUpgradeHash(ctx, acct, pass)

	now := time.Now()
	sess := &session.Session{
		ID:           uuid.NewString(),
		AccountID:    acct.ID,
		IP:           ip,
		UserAgent:    userAgentFromContext(ctx),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(e.cfg.Session.TTL),
	}
	sctx, cancel := e.storeCtx(ctx)
	err = e.sessions.Create(sctx, sess, e.cfg.Session.TTL)
	cancel()
	if err != nil {
		e.metrics.login("error")
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	pair, err := e.issuer.IssuePair(acct.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	e.recordOutcome(ctx, acct.ID, true)
	acct.LastLoginAt = now
	e.metrics.login("success")
	e.emit(ctx, AuditEvent{
		EventType: EventLoginSuccess,
		AccountID: acct.ID,
		SessionID: sess.ID,
		IP:        ip,
		Success:   true,
	})

	return &LoginResult{
		Account:      acct.View(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    sess.ID,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Verify validates an access token and confirms its session is still
// live. The session check fails closed: if the store cannot answer, the
// token is rejected.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*token.Claims, *AccountView, error) {
	start := time.Now()
	defer e.metrics.observeVerify(start)

	claims, err := e.issuer.Verify(accessToken, token.TypeAccess)
	if err != nil {
		e.metrics.tokenRejected(Code(err))
		e.emit(ctx, AuditEvent{
			EventType: EventTokenRejected,
			IP:        clientIPFromContext(ctx),
			Error:     Code(err),
		})
		return nil, nil, err
	}

	sctx, cancel := e.storeCtx(ctx)
	_, err = e.sessions.Touch(sctx, claims.SessionID, e.cfg.Session.TTL)
	cancel()
	if err != nil {
		e.metrics.tokenRejected("session_invalid")
		e.emit(ctx, AuditEvent{
			EventType: EventTokenRejected,
			AccountID: claims.AccountID,
			SessionID: claims.SessionID,
			IP:        clientIPFromContext(ctx),
			Error:     Code(ErrSessionInvalid),
		})
		if errors.Is(err, session.ErrStoreUnavailable) {
			return nil, nil, errors.Join(ErrSessionInvalid, err)
		}
		return nil, nil, ErrSessionInvalid
	}

	view, err := e.accountView(ctx, claims.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return claims, view, nil
}

// Refresh exchanges a live refresh token for a new pair on the same
// session. The session keeps its identity so audit trails and logout
// target the original login.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := e.issuer.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		e.metrics.refresh("invalid")
		e.emit(ctx, AuditEvent{
			EventType: EventRefreshInvalid,
			IP:        clientIPFromContext(ctx),
			Error:     Code(err),
		})
		return nil, err
	}

	sctx, cancel := e.storeCtx(ctx)
	_, err = e.sessions.Touch(sctx, claims.SessionID, e.cfg.Session.TTL)
	cancel()
	if err != nil {
		e.metrics.refresh("invalid")
		e.emit(ctx, AuditEvent{
			EventType: EventRefreshInvalid,
			AccountID: claims.AccountID,
			SessionID: claims.SessionID,
			IP:        clientIPFromContext(ctx),
			Error:     Code(ErrSessionInvalid),
		})
		if errors.Is(err, session.ErrStoreUnavailable) {
			return nil, errors.Join(ErrSessionInvalid, err)
		}
		return nil, ErrSessionInvalid
	}

	pair, err := e.issuer.IssuePair(claims.AccountID, claims.SessionID)
	if err != nil {
		return nil, err
	}

	e.metrics.refresh("success")
	e.emit(ctx, AuditEvent{
		EventType: EventRefreshSuccess,
		AccountID: claims.AccountID,
		SessionID: claims.SessionID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})

	return &RefreshResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    claims.SessionID,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout invalidates one session. Logging out a session that is already
// gone succeeds; the end state is the same.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	claims, err := e.issuer.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return err
	}

	sctx, cancel := e.storeCtx(ctx)
	err = e.sessions.Invalidate(sctx, claims.SessionID)
	cancel()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metrics.sessionEnded("logout", 1)
	e.emit(ctx, AuditEvent{
		EventType: EventLogoutSession,
		AccountID: claims.AccountID,
		SessionID: claims.SessionID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// InvalidateSession revokes one session of an account by id, the
// counterpart to ActiveSessions for admin "revoke this session" actions.
// Revoking a session that is already gone succeeds; a session owned by a
// different account is left untouched and reported as invalid.
func (e *Engine) InvalidateSession(ctx context.Context, accountID, sessionID string) error {
	sctx, cancel := e.storeCtx(ctx)
	sess, err := e.sessions.Get(sctx, sessionID)
	cancel()
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return errors.Join(ErrStoreUnavailable, err)
	}
	if sess.AccountID != accountID {
		return ErrSessionInvalid
	}

	sctx, cancel = e.storeCtx(ctx)
	err = e.sessions.Invalidate(sctx, sessionID)
	cancel()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	e.metrics.sessionEnded("revoked", 1)
	e.emit(ctx, AuditEvent{
		EventType: EventLogoutSession,
		AccountID: accountID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}

// LogoutAll invalidates every session of an account and returns how many
// were removed. Used for forced logout after privilege or password
// changes.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) (int, error) {
	sctx, cancel := e.storeCtx(ctx)
	n, err := e.sessions.InvalidateAll(sctx, accountID)
	cancel()
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}

	e.metrics.sessionEnded("logout_all", n)
	e.emit(ctx, AuditEvent{
		EventType: EventLogoutAll,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
		Metadata:  map[string]string{"sessions": strconv.Itoa(n)},
	})
	return n, nil
}

// ActiveSessions lists the live session IDs of an account.
func (e *Engine) ActiveSessions(ctx context.Context, accountID string) ([]string, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	ids, err := e.sessions.ActiveIDs(sctx, accountID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return ids, nil
}

func (e *Engine) lookupAccount(ctx context.Context, identifier string) (*Account, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	acct, err := e.accounts.FindByIdentifier(sctx, identifier)
	if err != nil {
		e.metrics.login("error")
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return acct, nil
}

func (e *Engine) accountView(ctx context.Context, accountID string) (*AccountView, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	acct, err := e.accounts.FindByID(sctx, accountID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if acct == nil {
		return nil, ErrSessionInvalid
	}
	view := acct.View()
	return &view, nil
}

func (e *Engine) recordFailure(ctx context.Context, identifier, ip, accountID, reason string) {
	e.guard.RecordFailure(ctx, identifier, ip)
	e.metrics.login("failure")
	e.emit(ctx, AuditEvent{
		EventType:  EventLoginFailure,
		AccountID:  accountID,
		Identifier: identifier,
		IP:         ip,
		Error:      reason,
	})
}

func (e *Engine) recordOutcome(ctx context.Context, accountID string, success bool) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.accounts.RecordLoginOutcome(sctx, accountID, success, time.Now()); err != nil {
		e.log.Warn("recording login outcome failed", "account_id", accountID, "error", err)
	}
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, acct *Account, pass string) {
	if !e.cfg.Password.UpgradeOnLogin || !e.verifier.NeedsUpgrade(acct.PasswordHash) {
		return
	}
	newHash, err := e.verifier.Hash(pass)
	if err != nil {
		e.log.Warn("password hash upgrade failed", "account_id", acct.ID, "error", err)
		return
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.accounts.UpdatePasswordHash(sctx, acct.ID, newHash); err != nil {
		e.log.Warn("storing upgraded password hash failed", "account_id", acct.ID, "error", err)
		return
	}
	acct.PasswordHash = newHash
	e.log.Info("password hash upgraded", "account_id", acct.ID)
}

func (e *Engine) onLockoutDegraded(err error) {
	e.emit(context.Background(), AuditEvent{
		EventType: EventLockoutDegraded,
		Error:     err.Error(),
	})
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}
