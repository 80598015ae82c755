package service_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
)

type AccountServiceTestSuite struct {
	suite.Suite
	f       *fixture
	account domain.Account
	refresh string
}

func (s *AccountServiceTestSuite) SetupTest() {
	s.f = newFixture()

	result, err := s.f.auth.Register(context.Background(), request.RegisterRequest{
		Username: "profiled",
		Email:    "profiled@example.com",
		Password: "password123",
	})
	s.Require().NoError(err)

	s.account = result.Account
	s.refresh = result.RefreshToken
}

func (s *AccountServiceTestSuite) TearDownTest() {
	s.f.Close()
}

func TestAccountServiceTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(AccountServiceTestSuite))
}

func (s *AccountServiceTestSuite) TestGetProfile() {
	account, err := s.f.account.GetProfile(context.Background(), s.account.ID)

	Expect(err).To(BeNil())
	Expect(account.Username).To(Equal("profiled"))

	_, err = s.f.account.GetProfile(context.Background(), 9999)
	assert.ErrorIs(s.T(), err, domain.ErrAccountNotFound)
}

func (s *AccountServiceTestSuite) TestDeactivate_RevokesSessionsAndBlocksLogin() {
	Expect(s.f.account.Deactivate(context.Background(), s.account.ID)).To(Succeed())

	active, err := s.f.auth.ValidateRefreshTokenActive(context.Background(), s.refresh)
	Expect(err).To(BeNil())
	Expect(active).To(BeFalse())

	_, err = s.f.auth.Authenticate(context.Background(), request.LoginRequest{Username: "profiled", Password: "password123"})
	assert.ErrorIs(s.T(), err, domain.ErrAccountDeactivated)

	Expect(s.f.account.Activate(context.Background(), s.account.ID)).To(Succeed())

	_, err = s.f.auth.Authenticate(context.Background(), request.LoginRequest{Username: "profiled", Password: "password123"})
	Expect(err).To(BeNil())
}

func (s *AccountServiceTestSuite) TestDelete_Cascades() {
	_, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{Title: "Goes away"})
	s.Require().NoError(err)

	Expect(s.f.account.Delete(context.Background(), s.account.ID)).To(Succeed())

	_, err = s.f.account.GetProfile(context.Background(), s.account.ID)
	assert.ErrorIs(s.T(), err, domain.ErrAccountNotFound)

	total, err := s.f.tasks.Count(context.Background(), s.account.ID, domain.TaskFilter{})
	Expect(err).To(BeNil())
	Expect(total).To(Equal(0))

	active, _ := s.f.auth.ValidateRefreshTokenActive(context.Background(), s.refresh)
	Expect(active).To(BeFalse())

	Expect(s.f.events.Names()).To(ContainElement("account.deleted"))
}
