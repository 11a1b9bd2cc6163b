package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/user-auth-service/internal/model"
)

// Insert retry policy: transient storage failures should not cost the caller
// their session, so inserts are attempted a few times with a short pause.
const (
	insertAttempts = 3
	insertBackoff  = 100 * time.Millisecond
)

// TokenRepo persists refresh token records. Rows are never deleted; revocation
// is a flag flip so the table keeps a full session history.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a new valid refresh token record, retrying transient failures
// a bounded number of times before giving up.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(insertBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?,?,?)",
			userID, token, expiresAt)
		if err == nil {
			return nil
		}
	}
	return err
}

// ReplaceForUser revokes every live record for the user and inserts the new
// one in a single transaction. Two concurrent logins for the same user
// serialize here: the last committed writer owns the only valid record.
func (r *TokenRepo) ReplaceForUser(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(insertBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = r.replaceOnce(ctx, userID, token, expiresAt)
		if err == nil {
			return nil
		}
	}
	return err
}

func (r *TokenRepo) replaceOnce(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND is_revoked=0",
		userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, expiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// FindValid returns the unrevoked record matching the exact token string.
// Expiry is deliberately not checked here: the caller distinguishes an expired
// session (revoke + forced logout) from an unknown token.
func (r *TokenRepo) FindValid(ctx context.Context, token string) (model.RefreshToken, error) {
	var (
		rec       model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at, is_revoked, revoked_at, created_at "+
			"FROM refresh_tokens WHERE token=? AND is_revoked=0 LIMIT 1",
		token).Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt,
		&rec.IsRevoked, &revokedAt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		rec.RevokedAt = &t
	}
	return rec, nil
}

// Revoke marks a specific record revoked. Revoking an already-revoked or
// nonexistent token is a no-op, not an error.
func (r *TokenRepo) Revoke(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, revoked_at=UTC_TIMESTAMP() WHERE token=? AND is_revoked=0",
		token)
	return err
}

// RevokeAllForUser revokes every currently-valid record for the user. Used on
// admin-forced logout and account deletion.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1, revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND is_revoked=0",
		userID)
	return err
}
