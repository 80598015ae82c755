package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/postgres"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const accountColumns = "id, uuid, username, email, password_hash, first_name, last_name, is_active, last_login_at, created_at, updated_at"

type AccountRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewAccountRepository(db *postgres.DB, telemetry port.Telemetry) port.AccountRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &AccountRepository{db: db, telemetry: telemetry}
}

func (ar *AccountRepository) GetByID(ctx context.Context, id int) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "GetByID", "account", map[string]interface{}{
		"db.system":  "postgresql",
		"account.id": id,
	})

	account, err := ar.getOne(ctx, op, sq.Eq{"id": id})
	return account, op.End(err)
}

func (ar *AccountRepository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "GetByUsername", "account", map[string]interface{}{
		"db.system": "postgresql",
	})

	account, err := ar.getOne(ctx, op, sq.Eq{"username": strings.TrimSpace(username)})
	return account, op.End(err)
}

func (ar *AccountRepository) getOne(ctx context.Context, op *database.Operation, where sq.Sqlizer) (domain.Account, error) {
	query, args, err := ar.db.QueryBuilder.Select(accountColumns).
		From("accounts").
		Where(where).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Account{}, err
	}

	op.Query(query, args)

	account, err := scanAccount(ar.db.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		slog.Error("Error getting account", "error", err)
		return domain.Account{}, err
	}

	return account, nil
}

func (ar *AccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "ExistsByUsernameOrEmail", "account", map[string]interface{}{
		"db.system": "postgresql",
	})

	query, args, err := ar.db.QueryBuilder.Select("COUNT(*)").
		From("accounts").
		Where(sq.Or{
			sq.Eq{"username": strings.TrimSpace(username)},
			sq.Eq{"email": domain.NormalizeEmail(email)},
		}).
		ToSql()

	if err != nil {
		return false, op.End(err)
	}

	op.Query(query, args)

	var count int
	if err := ar.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, op.End(err)
	}

	return count > 0, op.End(nil)
}

func (ar *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "Create", "account", map[string]interface{}{
		"db.system":    "postgresql",
		"db.operation": "INSERT",
		"account.uuid": account.UUID.String(),
	})

	query, args, err := ar.db.QueryBuilder.Insert("accounts").
		Columns("uuid", "username", "email", "password_hash", "first_name", "last_name", "is_active", "last_login_at", "created_at", "updated_at").
		Values(account.UUID, account.Username, account.Email, account.PasswordHash, account.FirstName, account.LastName, account.IsActive, account.LastLoginAt, account.CreatedAt, account.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return domain.Account{}, op.End(err)
	}

	op.Query(query, args)

	if err := ar.db.QueryRow(ctx, query, args...).Scan(&account.ID); err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.Account{}, op.End(domain.ErrDuplicateAccount)
		}

		slog.Error("Insert account failed", "error", err, "uuid", account.UUID)
		return domain.Account{}, op.End(err)
	}

	return account, op.End(nil)
}

func (ar *AccountRepository) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "Update", "account", map[string]interface{}{
		"db.system":    "postgresql",
		"db.operation": "UPDATE",
		"account.id":   account.ID,
	})

	query, args, err := ar.db.QueryBuilder.Update("accounts").
		Set("email", account.Email).
		Set("password_hash", account.PasswordHash).
		Set("first_name", account.FirstName).
		Set("last_name", account.LastName).
		Set("is_active", account.IsActive).
		Set("last_login_at", account.LastLoginAt).
		Set("updated_at", account.UpdatedAt).
		Where(sq.Eq{"id": account.ID}).
		ToSql()

	if err != nil {
		return domain.Account{}, op.End(err)
	}

	op.Query(query, args)

	tag, err := ar.db.Exec(ctx, query, args...)
	if err != nil {
		return domain.Account{}, op.End(fmt.Errorf("update account %d: %w", account.ID, err))
	}

	if tag.RowsAffected() == 0 {
		return domain.Account{}, op.End(domain.ErrAccountNotFound)
	}

	return account, op.End(nil)
}

func (ar *AccountRepository) DeleteByID(ctx context.Context, id int) error {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "DeleteByID", "account", map[string]interface{}{
		"db.system":    "postgresql",
		"db.operation": "DELETE",
		"account.id":   id,
	})

	query, args, err := ar.db.QueryBuilder.Delete("accounts").
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return op.End(err)
	}

	op.Query(query, args)

	tag, err := ar.db.Exec(ctx, query, args...)
	if err != nil {
		return op.End(err)
	}

	if tag.RowsAffected() == 0 {
		return op.End(domain.ErrAccountNotFound)
	}

	return op.End(nil)
}
