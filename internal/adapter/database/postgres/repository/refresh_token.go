package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/postgres"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const refreshTokenColumns = "id, account_id, token_hash, token_preview, expires_at, is_revoked, revoked_at, user_agent, ip_address, created_at, updated_at"

type RefreshTokenRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewRefreshTokenRepository(db *postgres.DB, telemetry port.Telemetry) port.RefreshTokenRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &RefreshTokenRepository{db: db, telemetry: telemetry}
}

func activeTokens(accountID int, now time.Time) sq.And {
	return sq.And{
		sq.Eq{"account_id": accountID},
		sq.Eq{"is_revoked": false},
		sq.Gt{"expires_at": now},
	}
}

func (rr *RefreshTokenRepository) Save(ctx context.Context, token domain.RefreshToken, maxActive int, now time.Time) (domain.RefreshToken, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "Save", "refresh_token", map[string]interface{}{
		"db.system":  "postgresql",
		"db.table":   "refresh_tokens",
		"account.id": token.AccountID,
	})

	saved, err := rr.save(ctx, op, 0, token, maxActive, now)
	return saved, op.End(err)
}

func (rr *RefreshTokenRepository) Replace(ctx context.Context, oldID int, token domain.RefreshToken, maxActive int, now time.Time) (domain.RefreshToken, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "Replace", "refresh_token", map[string]interface{}{
		"db.system":        "postgresql",
		"db.table":         "refresh_tokens",
		"account.id":       token.AccountID,
		"refresh_token.id": oldID,
	})

	saved, err := rr.save(ctx, op, oldID, token, maxActive, now)
	return saved, op.End(err)
}

// save locks the owning account row so concurrent logins of one account
// queue behind each other while the cap is checked. replaced, when non zero,
// is revoked in the same transaction.
func (rr *RefreshTokenRepository) save(ctx context.Context, op *database.Operation, replaced int, token domain.RefreshToken, maxActive int, now time.Time) (domain.RefreshToken, error) {
	err := rr.db.InTx(ctx, func(tx pgx.Tx) error {
		query, args, err := rr.db.QueryBuilder.Select("id").
			From("accounts").
			Where(sq.Eq{"id": token.AccountID}).
			Suffix("FOR UPDATE").
			ToSql()

		if err != nil {
			return err
		}

		op.Query(query, args)

		var accountID int
		if err := tx.QueryRow(ctx, query, args...).Scan(&accountID); err != nil {
			if postgres.IsNoRows(err) {
				return domain.ErrAccountNotFound
			}
			return err
		}

		if replaced > 0 {
			if err := rr.revokeForRotation(ctx, tx, op, replaced, token.AccountID, now); err != nil {
				return err
			}
		}

		query, args, err = rr.db.QueryBuilder.Delete("refresh_tokens").
			Where(sq.Eq{"account_id": token.AccountID}).
			Where(sq.LtOrEq{"expires_at": now}).
			ToSql()

		if err != nil {
			return err
		}

		op.Query(query, args)

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("purge expired tokens: %w", err)
		}

		query, args, err = rr.db.QueryBuilder.Select("id").
			From("refresh_tokens").
			Where(activeTokens(token.AccountID, now)).
			OrderBy("created_at ASC", "id ASC").
			ToSql()

		if err != nil {
			return err
		}

		op.Query(query, args)

		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}

		active, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return err
		}

		if maxActive > 0 && len(active) >= maxActive {
			evict := active[:len(active)-maxActive+1]

			query, args, err = rr.db.QueryBuilder.Delete("refresh_tokens").
				Where(sq.Eq{"id": evict}).
				ToSql()

			if err != nil {
				return err
			}

			op.Query(query, args)

			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("evict oldest token: %w", err)
			}

			op.SetAttributes(map[string]interface{}{"session.evicted": len(evict)})
		}

		query, args, err = rr.db.QueryBuilder.Insert("refresh_tokens").
			Columns("account_id", "token_hash", "token_preview", "expires_at", "is_revoked", "revoked_at", "user_agent", "ip_address", "created_at", "updated_at").
			Values(token.AccountID, token.TokenHash, token.TokenPreview, token.ExpiresAt, token.IsRevoked, token.RevokedAt, token.UserAgent, token.IPAddress, token.CreatedAt, token.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()

		if err != nil {
			return err
		}

		op.Query(query, args)

		return tx.QueryRow(ctx, query, args...).Scan(&token.ID)
	})

	if err != nil {
		return domain.RefreshToken{}, err
	}

	return token, nil
}

// revokeForRotation fails with ErrInvalidOrExpiredToken unless id is an
// active token of accountID.
func (rr *RefreshTokenRepository) revokeForRotation(ctx context.Context, tx pgx.Tx, op *database.Operation, id, accountID int, now time.Time) error {
	query, args, err := rr.db.QueryBuilder.Update("refresh_tokens").
		Set("is_revoked", true).
		Set("revoked_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Where(activeTokens(accountID, now)).
		ToSql()

	if err != nil {
		return err
	}

	op.Query(query, args)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("revoke rotated token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidOrExpiredToken
	}

	return nil
}

func (rr *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (domain.RefreshToken, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "FindByHash", "refresh_token", map[string]interface{}{
		"db.system": "postgresql",
		"db.table":  "refresh_tokens",
	})

	token, err := rr.findOne(ctx, op, sq.Eq{"token_hash": tokenHash})
	return token, op.End(err)
}

func (rr *RefreshTokenRepository) FindByID(ctx context.Context, id int) (domain.RefreshToken, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "FindByID", "refresh_token", map[string]interface{}{
		"db.system":        "postgresql",
		"db.table":         "refresh_tokens",
		"refresh_token.id": id,
	})

	token, err := rr.findOne(ctx, op, sq.Eq{"id": id})
	return token, op.End(err)
}

func (rr *RefreshTokenRepository) findOne(ctx context.Context, op *database.Operation, where sq.Sqlizer) (domain.RefreshToken, error) {
	query, args, err := rr.db.QueryBuilder.Select(refreshTokenColumns).
		From("refresh_tokens").
		Where(where).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.RefreshToken{}, err
	}

	op.Query(query, args)

	token, err := scanRefreshToken(rr.db.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return domain.RefreshToken{}, domain.ErrInvalidOrExpiredToken
		}
		return domain.RefreshToken{}, err
	}

	return token, nil
}

func (rr *RefreshTokenRepository) ListActive(ctx context.Context, accountID int, now time.Time) ([]domain.RefreshToken, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "ListActive", "refresh_token", map[string]interface{}{
		"db.system":  "postgresql",
		"db.table":   "refresh_tokens",
		"account.id": accountID,
	})

	query, args, err := rr.db.QueryBuilder.Select(refreshTokenColumns).
		From("refresh_tokens").
		Where(activeTokens(accountID, now)).
		OrderBy("created_at DESC", "id DESC").
		ToSql()

	if err != nil {
		return nil, op.End(err)
	}

	op.Query(query, args)

	rows, err := rr.db.Query(ctx, query, args...)
	if err != nil {
		return nil, op.End(err)
	}
	defer rows.Close()

	tokens := []domain.RefreshToken{}
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			return nil, op.End(err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, op.End(err)
	}

	return tokens, op.End(nil)
}

func (rr *RefreshTokenRepository) RevokeByID(ctx context.Context, id int, now time.Time) error {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "RevokeByID", "refresh_token", map[string]interface{}{
		"db.system":        "postgresql",
		"db.table":         "refresh_tokens",
		"db.operation":     "UPDATE",
		"refresh_token.id": id,
	})

	query, args, err := rr.db.QueryBuilder.Update("refresh_tokens").
		Set("is_revoked", true).
		Set("revoked_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "is_revoked": false}).
		ToSql()

	if err != nil {
		return op.End(err)
	}

	op.Query(query, args)

	_, err = rr.db.Exec(ctx, query, args...)
	return op.End(err)
}

func (rr *RefreshTokenRepository) RevokeAllForAccount(ctx context.Context, accountID int, exceptHash string, now time.Time) (int, error) {
	ctx, op := database.StartOperation(ctx, rr.telemetry, "RevokeAllForAccount", "refresh_token", map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     "refresh_tokens",
		"db.operation": "UPDATE",
		"account.id":   accountID,
	})

	where := activeTokens(accountID, now)
	if exceptHash != "" {
		where = append(where, sq.NotEq{"token_hash": exceptHash})
	}

	query, args, err := rr.db.QueryBuilder.Update("refresh_tokens").
		Set("is_revoked", true).
		Set("revoked_at", now).
		Set("updated_at", now).
		Where(where).
		ToSql()

	if err != nil {
		return 0, op.End(err)
	}

	op.Query(query, args)

	tag, err := rr.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, op.End(err)
	}

	return int(tag.RowsAffected()), op.End(nil)
}
