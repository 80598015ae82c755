package repository_test

import (
	"context"
	"testing"
	"time"

	. "tasktracker/pkg/test"

	"tasktracker/internal/adapter/database/sqlite"
	"tasktracker/internal/adapter/database/sqlite/repository"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/port"
	"tasktracker/internal/core/telemetry"
	"tasktracker/pkg/test/factory"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AccountRepositoryTestSuite struct {
	suite.Suite
	db        *sqlite.DB
	repo      port.AccountRepository
	taskRepo  port.TaskStore
	tokenRepo port.RefreshTokenRepository
}

func (s *AccountRepositoryTestSuite) SetupTest() {
	s.db = InitTestDB()
	probe := telemetry.NewNoOpProbe()

	s.repo = repository.NewAccountRepository(s.db, probe)
	s.taskRepo = repository.NewTaskRepository(s.db, probe)
	s.tokenRepo = repository.NewRefreshTokenRepository(s.db, probe)
}

func (s *AccountRepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func TestAccountRepositoryTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(AccountRepositoryTestSuite))
}

func (s *AccountRepositoryTestSuite) TestRepository_CreateAccount_Success() {
	first := "Ada"

	account, err := s.repo.Create(context.Background(), factory.NewAccount(map[string]any{
		"Username":  "ada",
		"Email":     "Ada@Example.com",
		"FirstName": first,
	}))

	assert.NoError(s.T(), err)
	assert.NotZero(s.T(), account.ID)

	found, err := s.repo.GetByUsername(context.Background(), "ada")

	Expect(err).To(BeNil())
	Expect(found.ID).To(Equal(account.ID))
	Expect(found.UUID).To(Equal(account.UUID))
	Expect(found.Email).To(Equal("ada@example.com"))
	Expect(*found.FirstName).To(Equal("Ada"))
	Expect(found.LastName).To(BeNil())
	Expect(found.IsActive).To(BeTrue())
	Expect(found.LastLoginAt).To(BeNil())
	Expect(found.CreatedAt).To(BeTemporally("~", account.CreatedAt, time.Millisecond))
}

func (s *AccountRepositoryTestSuite) TestRepository_CreateAccount_Duplicate() {
	ctx := context.Background()

	_, err := s.repo.Create(ctx, factory.NewAccount(map[string]any{"Username": "ada"}))
	assert.NoError(s.T(), err)

	_, err = s.repo.Create(ctx, factory.NewAccount(map[string]any{"Username": "ada"}))
	assert.ErrorIs(s.T(), err, domain.ErrDuplicateAccount)
}

func (s *AccountRepositoryTestSuite) TestRepository_ExistsByUsernameOrEmail() {
	ctx := context.Background()

	s.repo.Create(ctx, factory.NewAccount(map[string]any{
		"Username": "ada",
		"Email":    "ada@example.com",
	}))

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, "other", "ADA@example.com")
	Expect(err).To(BeNil())
	Expect(exists).To(BeTrue())

	exists, _ = s.repo.ExistsByUsernameOrEmail(ctx, "ada", "other@example.com")
	Expect(exists).To(BeTrue())

	exists, _ = s.repo.ExistsByUsernameOrEmail(ctx, "other", "other@example.com")
	Expect(exists).To(BeFalse())
}

func (s *AccountRepositoryTestSuite) TestRepository_UsernameLookupsIgnorePadding() {
	ctx := context.Background()

	account, err := s.repo.Create(ctx, factory.NewAccount(map[string]any{"Username": "ada"}))
	Expect(err).To(BeNil())

	found, err := s.repo.GetByUsername(ctx, "  ada\t")
	Expect(err).To(BeNil())
	Expect(found.ID).To(Equal(account.ID))

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, " ada ", "other@example.com")
	Expect(err).To(BeNil())
	Expect(exists).To(BeTrue())
}

func (s *AccountRepositoryTestSuite) TestRepository_GetByID_NotFound() {
	_, err := s.repo.GetByID(context.Background(), 999)

	assert.ErrorIs(s.T(), err, domain.ErrAccountNotFound)
}

func (s *AccountRepositoryTestSuite) TestRepository_Update_PersistsLoginAndStatus() {
	ctx := context.Background()
	account, _ := s.repo.Create(ctx, factory.NewAccount())

	now := time.Now().UTC()
	account.RecordLogin(now)
	account.Deactivate(now)

	_, err := s.repo.Update(ctx, account)
	assert.NoError(s.T(), err)

	found, _ := s.repo.GetByID(ctx, account.ID)

	Expect(found.IsActive).To(BeFalse())
	Expect(*found.LastLoginAt).To(BeTemporally("~", now, time.Millisecond))
}

func (s *AccountRepositoryTestSuite) TestRepository_DeleteByID_Cascades() {
	ctx := context.Background()
	now := time.Now().UTC()

	account, _ := s.repo.Create(ctx, factory.NewAccount())
	s.taskRepo.Create(ctx, factory.NewTask(account.ID))

	token := domain.NewRefreshToken(account.ID, "raw-token-value-123", now.Add(time.Hour), now)
	s.tokenRepo.Save(ctx, *token, domain.MaxActiveSessions, now)

	err := s.repo.DeleteByID(ctx, account.ID)
	assert.NoError(s.T(), err)

	total, _ := s.taskRepo.Count(ctx, account.ID, domain.TaskFilter{})
	Expect(total).To(Equal(0))

	sessions, _ := s.tokenRepo.ListActive(ctx, account.ID, now)
	Expect(sessions).To(BeEmpty())

	err = s.repo.DeleteByID(ctx, account.ID)
	assert.ErrorIs(s.T(), err, domain.ErrAccountNotFound)
}
