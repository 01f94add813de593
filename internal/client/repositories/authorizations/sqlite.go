package authorizations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/dbx"
	"github.com/ethereum/go-ethereum/common"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Grant(ctx context.Context, account common.Address) error {
	ts := r.now().UnixNano()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorizations (account, granted_at, last_used_at) VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET last_used_at = excluded.last_used_at
	`, account.Hex(), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to grant authorization[%s]: %w", account.Hex(), err)
	}
	return nil
}

func (r *SQLiteRepository) Select(ctx context.Context, account common.Address) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := dbx.Exists(ctx, tx, `SELECT 1 FROM authorizations WHERE account = ?`, account.Hex())
		if err != nil {
			return fmt.Errorf("failed to get authorization[%s]: %w", account.Hex(), err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotAuthorized, account.Hex())
		}

		_, err = tx.ExecContext(ctx, `UPDATE authorizations SET last_used_at = ? WHERE account = ?`,
			r.now().UnixNano(), account.Hex())
		if err != nil {
			return fmt.Errorf("failed to select authorization[%s]: %w", account.Hex(), err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Revoke(ctx context.Context, account common.Address) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorizations WHERE account = ?`, account.Hex())
	if err != nil {
		return fmt.Errorf("failed to revoke authorization[%s]: %w", account.Hex(), err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorizations`)
	if err != nil {
		return fmt.Errorf("failed to clear authorizations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Authorization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account, granted_at, last_used_at FROM authorizations
		ORDER BY last_used_at DESC, account
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorizations: %w", err)
	}
	defer rows.Close()

	var result []models.Authorization
	for rows.Next() {
		var (
			account          string
			granted, lastUse int64
		)
		if err := rows.Scan(&account, &granted, &lastUse); err != nil {
			return nil, fmt.Errorf("failed to scan authorization row: %w", err)
		}
		result = append(result, models.Authorization{
			Account:    common.HexToAddress(account),
			GrantedAt:  time.Unix(0, granted),
			LastUsedAt: time.Unix(0, lastUse),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authorization rows: %w", err)
	}

	return result, nil
}
