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

type DriveCredentialRepositoryMSSQL struct{ db *sql.DB }

func NewDriveCredentialRepositoryMSSQL(db *sql.DB) *DriveCredentialRepositoryMSSQL {
	return &DriveCredentialRepositoryMSSQL{db: db}
}

// EnsureDriveCredentialSchemaMSSQL creates the drive_credentials table for SQL Server if it does not exist.
func EnsureDriveCredentialSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.drive_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[drive_credentials] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        expires_at DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_drive_credentials_user ON dbo.[drive_credentials](user_id);
END`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create drive_credentials (mssql): %w", err)
	}

	addIfMissing := func(table, column, ddl string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('%s', '%s') IS NULL BEGIN %s END`, table, column, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", table, column, err)
		}
		return nil
	}
	return addIfMissing("dbo.drive_credentials", "scopes", "ALTER TABLE dbo.[drive_credentials] ADD scopes NVARCHAR(MAX) NOT NULL DEFAULT ''")
}

func (r *DriveCredentialRepositoryMSSQL) GetUserCredentials(ctx context.Context, userID string) (*model.DriveCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, access_token, refresh_token, expires_at, scopes, created_at, updated_at FROM dbo.[drive_credentials] WHERE user_id=@p1`, userID)
	cred := &model.DriveCredential{}
	var exp sql.NullTime
	var refresh sql.NullString
	if err := row.Scan(&cred.ID, &cred.UserID, &cred.AccessToken, &refresh, &exp, &cred.Scopes, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if refresh.Valid {
		cred.RefreshToken = refresh.String
	}
	if exp.Valid {
		cred.ExpiresAt = &exp.Time
	}
	return cred, nil
}

func (r *DriveCredentialRepositoryMSSQL) UpdateUserAccessToken(ctx context.Context, userID, accessToken string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[drive_credentials] SET access_token=@p1, expires_at=@p2, updated_at=@p3 WHERE user_id=@p4`,
		accessToken, nullTime(expiry), utils.GetCurrentTime(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no drive credentials for user %s", userID)
	}
	return nil
}

func (r *DriveCredentialRepositoryMSSQL) UpsertUserCredentials(ctx context.Context, c *model.DriveCredential) error {
	now := utils.GetCurrentTime()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	var exp sql.NullTime
	if c.ExpiresAt != nil {
		exp = nullTime(*c.ExpiresAt)
	}
	var refresh sql.NullString
	if c.RefreshToken != "" {
		refresh = sql.NullString{String: c.RefreshToken, Valid: true}
	}
	// MERGE upsert by user_id; a missing refresh token keeps the stored one
	q := `MERGE dbo.[drive_credentials] AS target
USING (VALUES (@p1)) AS src(user_id)
ON target.user_id = src.user_id
WHEN MATCHED THEN UPDATE SET
    access_token=@p2,
    refresh_token=COALESCE(@p3, target.refresh_token),
    expires_at=@p4,
    scopes=@p5,
    updated_at=@p7
WHEN NOT MATCHED THEN
    INSERT (user_id, access_token, refresh_token, expires_at, scopes, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7);`
	_, err := r.db.ExecContext(ctx, q, c.UserID, c.AccessToken, refresh, exp, c.Scopes, c.CreatedAt, c.UpdatedAt)
	return err
}
