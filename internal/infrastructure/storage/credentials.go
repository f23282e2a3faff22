package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetCredential retrieves the credential of a principal
func (s *Storage) GetCredential(ctx context.Context, principalID string) (*Credential, error) {
	c := &Credential{}
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, principal_id, access_token, refresh_token, access_token_expires_at,
		       external_user_id, created_at, updated_at
		FROM credentials WHERE principal_id = ?`, principalID,
	).Scan(&c.ID, &c.PrincipalID, &c.AccessToken, &c.RefreshToken, &expiresAt,
		&c.ExternalUserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("get credential", err)
	}
	if expiresAt.Valid {
		c.AccessTokenExpiresAt = expiresAt.Time
	}
	return c, nil
}

// UpsertCredential creates the credential or overwrites every token field of an existing one
func (s *Storage) UpsertCredential(ctx context.Context, c *Credential) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials
		(principal_id, access_token, refresh_token, access_token_expires_at, external_user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(principal_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			access_token_expires_at = excluded.access_token_expires_at,
			external_user_id = excluded.external_user_id,
			updated_at = excluded.updated_at`,
		c.PrincipalID, c.AccessToken, c.RefreshToken, nullTime(c.AccessTokenExpiresAt),
		c.ExternalUserID, now, now)
	return persistErr("upsert credential", err)
}

// UpdateAccessToken stores a refreshed access token, keeping the refresh token
func (s *Storage) UpdateAccessToken(ctx context.Context, principalID, accessToken string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET access_token = ?, access_token_expires_at = ?, updated_at = ?
		WHERE principal_id = ?`,
		accessToken, nullTime(expiresAt), s.now(), principalID)
	if err != nil {
		return persistErr("update access token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("update access token", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
