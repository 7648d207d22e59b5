package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"video-relay/domain/model"
	"video-relay/infrastructure/utils"
)

type DriveCredentialRepository struct{ db *sql.DB }

func NewDriveCredentialRepository(db *sql.DB) *DriveCredentialRepository {
	return &DriveCredentialRepository{db: db}
}

// EnsureDriveCredentialSchema creates the drive_credentials table and adds
// columns introduced after the first release.
func EnsureDriveCredentialSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS drive_credentials (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create drive_credentials: %w", err)
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"drive_credentials", "scopes", "ALTER TABLE drive_credentials ADD COLUMN scopes TEXT NOT NULL DEFAULT ''"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetUserCredentials returns nil, nil when the user never connected Drive.
func (r *DriveCredentialRepository) GetUserCredentials(ctx context.Context, userID string) (*model.DriveCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, access_token, refresh_token, expires_at, scopes, created_at, updated_at FROM drive_credentials WHERE user_id=$1`, userID)
	cred := &model.DriveCredential{}
	var exp sql.NullTime
	if err := row.Scan(&cred.ID, &cred.UserID, &cred.AccessToken, &cred.RefreshToken, &exp, &cred.Scopes, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if exp.Valid {
		cred.ExpiresAt = &exp.Time
	}
	return cred, nil
}

func (r *DriveCredentialRepository) UpdateUserAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drive_credentials SET access_token=$1, expires_at=$2, updated_at=$3 WHERE user_id=$4`,
		accessToken, nullTime(expiry), utils.GetCurrentTime(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no drive credentials for user %s", userID)
	}
	return nil
}

// UpsertUserCredentials stores a token grant. An empty refresh token keeps the stored one.
func (r *DriveCredentialRepository) UpsertUserCredentials(ctx context.Context, c *model.DriveCredential) error {
	now := utils.GetCurrentTime()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	q := `INSERT INTO drive_credentials (user_id, access_token, refresh_token, expires_at, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7)
		  ON CONFLICT (user_id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=COALESCE(NULLIF(EXCLUDED.refresh_token, ''), drive_credentials.refresh_token),
			expires_at=EXCLUDED.expires_at,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at`
	var exp sql.NullTime
	if c.ExpiresAt != nil {
		exp = nullTime(*c.ExpiresAt)
	}
	_, err := r.db.ExecContext(ctx, q, c.UserID, c.AccessToken, c.RefreshToken, exp, c.Scopes, c.CreatedAt, c.UpdatedAt)
	return err
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
