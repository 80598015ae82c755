package port

import (
	"context"

	"tasktracker/internal/core/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int) (domain.Account, error)
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	Update(ctx context.Context, account domain.Account) (domain.Account, error)
	DeleteByID(ctx context.Context, id int) error
}

type AccountService interface {
	GetProfile(ctx context.Context, accountID int) (domain.Account, error)
	Deactivate(ctx context.Context, accountID int) error
	Activate(ctx context.Context, accountID int) error
	Delete(ctx context.Context, accountID int) error
}
