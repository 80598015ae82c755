package repository_test

import (
	"context"
	"fmt"
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

type RefreshTokenRepositoryTestSuite struct {
	suite.Suite
	db      *sqlite.DB
	repo    port.RefreshTokenRepository
	account domain.Account
	now     time.Time
}

func (s *RefreshTokenRepositoryTestSuite) SetupTest() {
	s.db = InitTestDB()
	probe := telemetry.NewNoOpProbe()

	s.repo = repository.NewRefreshTokenRepository(s.db, probe)
	s.account, _ = repository.NewAccountRepository(s.db, probe).Create(context.Background(), factory.NewAccount())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RefreshTokenRepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func TestRefreshTokenRepositoryTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(RefreshTokenRepositoryTestSuite))
}

func (s *RefreshTokenRepositoryTestSuite) save(raw string, createdAt time.Time, ttl time.Duration) domain.RefreshToken {
	token := domain.NewRefreshToken(s.account.ID, raw, createdAt.Add(ttl), createdAt)

	saved, err := s.repo.Save(context.Background(), *token, domain.MaxActiveSessions, createdAt)
	s.Require().NoError(err)

	return saved
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Save_FindByHash() {
	saved := s.save("raw-token-abcdefgh", s.now, time.Hour)

	found, err := s.repo.FindByHash(context.Background(), domain.HashToken("raw-token-abcdefgh"))

	Expect(err).To(BeNil())
	Expect(found.ID).To(Equal(saved.ID))
	Expect(found.TokenPreview).To(Equal("raw-toke..."))
	Expect(found.ExpiresAt.Equal(s.now.Add(time.Hour))).To(BeTrue())
	Expect(found.IsRevoked).To(BeFalse())

	_, err = s.repo.FindByHash(context.Background(), domain.HashToken("unknown"))
	assert.ErrorIs(s.T(), err, domain.ErrInvalidOrExpiredToken)
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Save_EvictsOldestAtCap() {
	for i := 0; i < 6; i++ {
		s.save(fmt.Sprintf("token-number-%d", i), s.now.Add(time.Duration(i)*time.Second), 24*time.Hour)
	}

	active, err := s.repo.ListActive(context.Background(), s.account.ID, s.now.Add(10*time.Second))

	Expect(err).To(BeNil())
	Expect(active).To(HaveLen(domain.MaxActiveSessions))
	Expect(active[0].TokenHash).To(Equal(domain.HashToken("token-number-5")))
	Expect(active[4].TokenHash).To(Equal(domain.HashToken("token-number-1")))

	_, err = s.repo.FindByHash(context.Background(), domain.HashToken("token-number-0"))
	assert.ErrorIs(s.T(), err, domain.ErrInvalidOrExpiredToken)
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Save_PurgesExpired() {
	s.save("short-lived-token", s.now, time.Minute)

	later := s.now.Add(time.Hour)
	s.save("fresh-token-value", later, time.Hour)

	_, err := s.repo.FindByHash(context.Background(), domain.HashToken("short-lived-token"))
	assert.ErrorIs(s.T(), err, domain.ErrInvalidOrExpiredToken)

	active, _ := s.repo.ListActive(context.Background(), s.account.ID, later)
	Expect(active).To(HaveLen(1))
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_RevokeByID_Idempotent() {
	ctx := context.Background()
	saved := s.save("revocable-token", s.now, time.Hour)

	Expect(s.repo.RevokeByID(ctx, saved.ID, s.now.Add(time.Minute))).To(Succeed())
	Expect(s.repo.RevokeByID(ctx, saved.ID, s.now.Add(2*time.Minute))).To(Succeed())

	found, _ := s.repo.FindByID(ctx, saved.ID)

	Expect(found.IsRevoked).To(BeTrue())
	Expect(found.RevokedAt.Equal(s.now.Add(time.Minute))).To(BeTrue())
	Expect(found.IsActive(s.now.Add(time.Minute))).To(BeFalse())
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_RevokeAllForAccount_KeepsCurrent() {
	ctx := context.Background()

	s.save("device-one-token", s.now, time.Hour)
	s.save("device-two-token", s.now.Add(time.Second), time.Hour)
	s.save("device-three-token", s.now.Add(2*time.Second), time.Hour)

	n, err := s.repo.RevokeAllForAccount(ctx, s.account.ID, domain.HashToken("device-two-token"), s.now.Add(time.Minute))

	Expect(err).To(BeNil())
	Expect(n).To(Equal(2))

	active, _ := s.repo.ListActive(ctx, s.account.ID, s.now.Add(time.Minute))
	Expect(active).To(HaveLen(1))
	Expect(active[0].TokenHash).To(Equal(domain.HashToken("device-two-token")))

	n, _ = s.repo.RevokeAllForAccount(ctx, s.account.ID, "", s.now.Add(time.Minute))
	Expect(n).To(Equal(1))
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Replace_RevokesOldAndInserts() {
	old := s.save("rotate-me-0001", s.now, time.Hour)
	later := s.now.Add(time.Minute)

	next := domain.NewRefreshToken(s.account.ID, "rotated-0002", later.Add(time.Hour), later)
	saved, err := s.repo.Replace(context.Background(), old.ID, *next, domain.MaxActiveSessions, later)
	s.Require().NoError(err)

	active, err := s.repo.ListActive(context.Background(), s.account.ID, later)
	s.Require().NoError(err)
	Expect(active).To(HaveLen(1))
	Expect(active[0].ID).To(Equal(saved.ID))

	reused, err := s.repo.FindByID(context.Background(), old.ID)
	s.Require().NoError(err)
	Expect(reused.IsActive(later)).To(BeFalse())
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Replace_FailedInsertKeepsOldActive() {
	old := s.save("rotate-me-0001", s.now, time.Hour)
	s.save("already-taken", s.now, time.Hour)
	later := s.now.Add(time.Minute)

	clash := domain.NewRefreshToken(s.account.ID, "already-taken", later.Add(time.Hour), later)
	_, err := s.repo.Replace(context.Background(), old.ID, *clash, domain.MaxActiveSessions, later)
	Expect(err).To(HaveOccurred())

	found, err := s.repo.FindByID(context.Background(), old.ID)
	s.Require().NoError(err)
	Expect(found.IsActive(later)).To(BeTrue())
}

func (s *RefreshTokenRepositoryTestSuite) TestRepository_Replace_InactiveOldStoresNothing() {
	old := s.save("rotate-me-0001", s.now, time.Hour)
	s.Require().NoError(s.repo.RevokeByID(context.Background(), old.ID, s.now))
	later := s.now.Add(time.Minute)

	next := domain.NewRefreshToken(s.account.ID, "never-stored", later.Add(time.Hour), later)
	_, err := s.repo.Replace(context.Background(), old.ID, *next, domain.MaxActiveSessions, later)
	assert.ErrorIs(s.T(), err, domain.ErrInvalidOrExpiredToken)

	_, err = s.repo.FindByHash(context.Background(), domain.HashToken("never-stored"))
	assert.ErrorIs(s.T(), err, domain.ErrInvalidOrExpiredToken)
}
