package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"tasktracker/internal/core/domain"
	"tasktracker/pkg/test/factory"
)

type SessionDirectoryTestSuite struct {
	suite.Suite
	f       *fixture
	account domain.Account
	other   domain.Account
}

func (s *SessionDirectoryTestSuite) SetupTest() {
	s.f = newFixture()

	var err error
	s.account, err = s.f.accounts.Create(context.Background(), factory.NewAccount())
	s.Require().NoError(err)

	s.other, err = s.f.accounts.Create(context.Background(), factory.NewAccount())
	s.Require().NoError(err)
}

func (s *SessionDirectoryTestSuite) TearDownTest() {
	s.f.Close()
}

func TestSessionDirectoryTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(SessionDirectoryTestSuite))
}

func (s *SessionDirectoryTestSuite) open(accountID int, raw string) domain.RefreshToken {
	now := s.f.clock.Now()
	token := domain.NewRefreshToken(accountID, raw, now.Add(time.Hour), now)

	saved, err := s.f.sessions.Open(context.Background(), *token)
	s.Require().NoError(err)

	return saved
}

func (s *SessionDirectoryTestSuite) TestListActive_NewestFirst() {
	for i := 0; i < 3; i++ {
		s.open(s.account.ID, fmt.Sprintf("session-%d-token", i))
		s.f.clock.Advance(time.Second)
	}

	active, err := s.f.sessions.ListActive(context.Background(), s.account.ID)

	Expect(err).To(BeNil())
	Expect(active).To(HaveLen(3))
	Expect(active[0].TokenHash).To(Equal(domain.HashToken("session-2-token")))
	Expect(active[2].TokenHash).To(Equal(domain.HashToken("session-0-token")))
}

func (s *SessionDirectoryTestSuite) TestListActive_SkipsExpired() {
	s.open(s.account.ID, "expiring-token")
	s.f.clock.Advance(2 * time.Hour)
	s.open(s.account.ID, "fresh-token-1")

	active, err := s.f.sessions.ListActive(context.Background(), s.account.ID)

	Expect(err).To(BeNil())
	Expect(active).To(HaveLen(1))
	Expect(active[0].TokenHash).To(Equal(domain.HashToken("fresh-token-1")))
}

func (s *SessionDirectoryTestSuite) TestRevokeByID_Ownership() {
	mine := s.open(s.account.ID, "my-own-token")
	theirs := s.open(s.other.ID, "their-token")

	err := s.f.sessions.RevokeByID(context.Background(), s.account.ID, theirs.ID)
	assert.ErrorIs(s.T(), err, domain.ErrSessionNotOwned)

	Expect(s.f.sessions.RevokeByID(context.Background(), s.account.ID, mine.ID)).To(Succeed())

	// A revoked session is no longer in the active set.
	err = s.f.sessions.RevokeByID(context.Background(), s.account.ID, mine.ID)
	assert.ErrorIs(s.T(), err, domain.ErrSessionNotOwned)

	theirsActive, err := s.f.sessions.ListActive(context.Background(), s.other.ID)
	Expect(err).To(BeNil())
	Expect(theirsActive).To(HaveLen(1))

	Expect(s.f.events.Names()).To(ContainElement("session.revoked"))
}

func (s *SessionDirectoryTestSuite) TestRevokeAllExceptCurrent() {
	for i := 0; i < 4; i++ {
		s.open(s.account.ID, fmt.Sprintf("device-%d-token", i))
	}
	s.open(s.other.ID, "other-device-token")

	n, err := s.f.sessions.RevokeAllExceptCurrent(context.Background(), s.account.ID, "device-2-token")

	Expect(err).To(BeNil())
	Expect(n).To(Equal(3))

	active, _ := s.f.sessions.ListActive(context.Background(), s.account.ID)
	Expect(active).To(HaveLen(1))
	Expect(active[0].TokenHash).To(Equal(domain.HashToken("device-2-token")))

	otherActive, _ := s.f.sessions.ListActive(context.Background(), s.other.ID)
	Expect(otherActive).To(HaveLen(1))
}

func (s *SessionDirectoryTestSuite) TestRevokeAllExceptCurrent_RequiresToken() {
	_, err := s.f.sessions.RevokeAllExceptCurrent(context.Background(), s.account.ID, "")

	Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
}

func (s *SessionDirectoryTestSuite) TestRevokeAll() {
	s.open(s.account.ID, "first-device")
	s.open(s.account.ID, "second-device")

	n, err := s.f.sessions.RevokeAll(context.Background(), s.account.ID)

	Expect(err).To(BeNil())
	Expect(n).To(Equal(2))

	active, _ := s.f.sessions.ListActive(context.Background(), s.account.ID)
	Expect(active).To(BeEmpty())
}
