package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tasktracker/internal/adapter/database"
	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	tel "tasktracker/internal/core/telemetry"
)

const accountColumns = "id, uuid, username, email, password_hash, first_name, last_name, is_active, last_login_at, created_at, updated_at"

type AccountRepository struct {
	db        *sqlite.DB
	scanner   *sqlite.Scanner
	telemetry port.Telemetry
}

func NewAccountRepository(db *sqlite.DB, telemetry port.Telemetry) port.AccountRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &AccountRepository{
		db:        db,
		scanner:   sqlite.NewScanner(),
		telemetry: telemetry,
	}
}

func (ar *AccountRepository) GetByID(ctx context.Context, id int) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "GetByID", "account", map[string]interface{}{
		"db.system":  "sqlite",
		"account.id": id,
	})

	account, err := ar.getOne(ctx, op, sq.Eq{"id": id})
	return account, op.End(err)
}

func (ar *AccountRepository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "GetByUsername", "account", map[string]interface{}{
		"db.system": "sqlite",
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

	rows, err := ar.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Account{}, err
	}
	defer rows.Close()

	var account domain.Account
	if err := ar.scanner.ScanRowToStruct(rows, &account); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		slog.Error("Error scanning account", "error", err)
		return domain.Account{}, err
	}

	return account, nil
}

func (ar *AccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "ExistsByUsernameOrEmail", "account", map[string]interface{}{
		"db.system": "sqlite",
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
	if err := ar.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, op.End(err)
	}

	return count > 0, op.End(nil)
}

func (ar *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "Create", "account", map[string]interface{}{
		"db.system":    "sqlite",
		"db.operation": "INSERT",
		"account.uuid": account.UUID.String(),
	})

	query, args, err := ar.db.QueryBuilder.Insert("accounts").
		Columns("uuid", "username", "email", "password_hash", "first_name", "last_name", "is_active", "last_login_at", "created_at", "updated_at").
		Values(account.UUID.String(), account.Username, account.Email, account.PasswordHash, account.FirstName, account.LastName, account.IsActive, utcOrNil(account.LastLoginAt), account.CreatedAt.UTC(), account.UpdatedAt.UTC()).
		ToSql()

	if err != nil {
		return domain.Account{}, op.End(err)
	}

	op.Query(query, args)

	result, err := ar.db.ExecContext(ctx, query, args...)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return domain.Account{}, op.End(domain.ErrDuplicateAccount)
		}

		slog.Error("Insert account failed", "error", err, "uuid", account.UUID)
		return domain.Account{}, op.End(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Account{}, op.End(err)
	}

	account.ID = int(id)

	return account, op.End(nil)
}

func (ar *AccountRepository) Update(ctx context.Context, account domain.Account) (domain.Account, error) {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "Update", "account", map[string]interface{}{
		"db.system":    "sqlite",
		"db.operation": "UPDATE",
		"account.id":   account.ID,
	})

	query, args, err := ar.db.QueryBuilder.Update("accounts").
		Set("email", account.Email).
		Set("password_hash", account.PasswordHash).
		Set("first_name", account.FirstName).
		Set("last_name", account.LastName).
		Set("is_active", account.IsActive).
		Set("last_login_at", utcOrNil(account.LastLoginAt)).
		Set("updated_at", account.UpdatedAt.UTC()).
		Where(sq.Eq{"id": account.ID}).
		ToSql()

	if err != nil {
		return domain.Account{}, op.End(err)
	}

	op.Query(query, args)

	result, err := ar.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Account{}, op.End(fmt.Errorf("update account %d: %w", account.ID, err))
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return domain.Account{}, op.End(domain.ErrAccountNotFound)
	}

	return account, op.End(nil)
}

// DeleteByID removes the account; tasks and refresh tokens go with it
// through ON DELETE CASCADE.
func (ar *AccountRepository) DeleteByID(ctx context.Context, id int) error {
	ctx, op := database.StartOperation(ctx, ar.telemetry, "DeleteByID", "account", map[string]interface{}{
		"db.system":    "sqlite",
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

	result, err := ar.db.ExecContext(ctx, query, args...)
	if err != nil {
		return op.End(err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return op.End(domain.ErrAccountNotFound)
	}

	return op.End(nil)
}
