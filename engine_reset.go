package adminauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/adminkit/adminauth/internal/secret"
)

// ErrResetDisabled is returned when the reset flow is switched off in
// config.
var ErrResetDisabled = errors.New("password reset disabled")

// RequestPasswordReset opens a reset challenge for the identifier. An
// unknown identifier returns a challenge-shaped result with no stored
// record, so the response does not reveal whether the account exists; the
// secret it carries can never confirm.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) (*ResetChallenge, error) {
	if !e.cfg.Reset.Enabled {
		return nil, ErrResetDisabled
	}

	sec, err := secret.New()
	if err != nil {
		return nil, err
	}
	challenge := &ResetChallenge{
		ID:        uuid.NewString(),
		Secret:    sec,
		ExpiresAt: time.Now().Add(e.cfg.Reset.TTL),
	}

	sctx, cancel := e.storeCtx(ctx)
	acct, err := e.accounts.FindByIdentifier(sctx, identifier)
	cancel()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if acct == nil || !acct.Active {
		// Decoy challenge; nothing stored, confirm will fail.
		return challenge, nil
	}

	rec := &resetRecord{
		AccountID:  acct.ID,
		SecretHash: secret.Hash(sec),
		ExpiresAt:  challenge.ExpiresAt.Unix(),
	}
	sctx, cancel = e.storeCtx(ctx)
	err = e.resets.Save(sctx, challenge.ID, rec, e.cfg.Reset.TTL)
	cancel()
	if err != nil {
		return nil, err
	}

	e.emit(ctx, AuditEvent{
		EventType: EventResetRequested,
		AccountID: acct.ID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return challenge, nil
}

// ConfirmPasswordReset consumes a challenge, stores the new password
// hash, and revokes every live session of the account. The challenge is
// single-use whether or not the hash update succeeds.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, challengeID, sec, newPassword string) error {
	if !e.cfg.Reset.Enabled {
		return ErrResetDisabled
	}

	sctx, cancel := e.storeCtx(ctx)
	rec, err := e.resets.Consume(sctx, challengeID, secret.Hash(sec))
	cancel()
	if err != nil {
		e.emit(ctx, AuditEvent{
			EventType: EventResetConfirmed,
			IP:        clientIPFromContext(ctx),
			Error:     Code(err),
		})
		return err
	}

	newHash, err := e.verifier.Hash(newPassword)
	if err != nil {
		return err
	}
	sctx, cancel = e.storeCtx(ctx)
	err = e.accounts.UpdatePasswordHash(sctx, rec.AccountID, newHash)
	cancel()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	// A stolen session must not survive the password change.
	if _, err := e.LogoutAll(ctx, rec.AccountID); err != nil {
		e.log.Warn("revoking sessions after password reset failed",
			"account_id", rec.AccountID, "error", err)
	}

	e.emit(ctx, AuditEvent{
		EventType: EventResetConfirmed,
		AccountID: rec.AccountID,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
	return nil
}
