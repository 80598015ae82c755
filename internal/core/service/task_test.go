package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/model/request"
	"tasktracker/pkg/test/factory"
)

type TaskServiceTestSuite struct {
	suite.Suite
	f       *fixture
	account domain.Account
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.f = newFixture()

	var err error
	s.account, err = s.f.accounts.Create(context.Background(), factory.NewAccount())
	s.Require().NoError(err)
}

func (s *TaskServiceTestSuite) TearDownTest() {
	s.f.Close()
}

func TestTaskServiceTestSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(TaskServiceTestSuite))
}

func ptr[T any](v T) *T {
	return &v
}

func fields(err error) []string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return nil
	}

	out := []string{}
	for _, f := range de.Fields {
		out = append(out, f.Field)
	}
	return out
}

func (s *TaskServiceTestSuite) create(title string) domain.Task {
	task, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{Title: title})
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) TestCreate_Defaults() {
	task, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{
		Title:       "  Write report  ",
		Description: ptr("quarterly"),
		Tags:        ptr("work,urgent"),
	})

	Expect(err).To(BeNil())
	Expect(task.ID).To(BeNumerically(">", 0))
	Expect(task.Title).To(Equal("Write report"))
	Expect(task.Priority).To(Equal(domain.PriorityMedium))
	Expect(task.Category).To(Equal(domain.CategoryGeneral))
	Expect(task.IsCompleted).To(BeFalse())
	Expect(s.f.events.Names()).To(ContainElement("task.created"))
}

func (s *TaskServiceTestSuite) TestCreate_ValidationErrors() {
	_, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{Title: "   "})
	Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
	Expect(fields(err)).To(Equal([]string{"title"}))

	past := s.f.clock.Now().Add(-time.Hour)
	_, err = s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{
		Title:    "Late",
		DueDate:  &past,
		Priority: ptr("Urgent"),
	})
	Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
	Expect(fields(err)).To(ConsistOf("priority", "dueDate"))

	total, _ := s.f.tasks.Count(context.Background(), s.account.ID, domain.TaskFilter{})
	Expect(total).To(Equal(0))
}

func (s *TaskServiceTestSuite) TestMarkComplete_Twice() {
	task := s.create("Once")

	done, err := s.f.task.MarkComplete(context.Background(), s.account.ID, task.UUID)
	Expect(err).To(BeNil())
	Expect(done.IsCompleted).To(BeTrue())
	Expect(done.CompletedAt).NotTo(BeNil())

	_, err = s.f.task.MarkComplete(context.Background(), s.account.ID, task.UUID)
	Expect(domain.KindOf(err)).To(Equal(domain.KindValidation))
	assert.ErrorIs(s.T(), err, domain.ErrTaskAlreadyCompleted)

	reopened, err := s.f.task.MarkIncomplete(context.Background(), s.account.ID, task.UUID)
	Expect(err).To(BeNil())
	Expect(reopened.CompletedAt).To(BeNil())

	_, err = s.f.task.MarkIncomplete(context.Background(), s.account.ID, task.UUID)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotCompleted)
}

func (s *TaskServiceTestSuite) TestUpdate_PartialFields() {
	due := s.f.clock.Now().Add(48 * time.Hour)

	task, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{
		Title:       "Original",
		Description: ptr("keep me?"),
		DueDate:     &due,
	})
	s.Require().NoError(err)

	updated, err := s.f.task.Update(context.Background(), s.account.ID, task.UUID, request.UpdateTaskRequest{
		Title:       domain.Some("Renamed"),
		Description: domain.Null[string](),
		Priority:    domain.Some("high"),
	})

	Expect(err).To(BeNil())
	Expect(updated.Title).To(Equal("Renamed"))
	Expect(updated.Description).To(BeNil())
	Expect(updated.Priority).To(Equal(domain.PriorityHigh))
	Expect(updated.DueDate).NotTo(BeNil())
	Expect(updated.DueDate.Equal(due)).To(BeTrue())

	stored, err := s.f.task.Get(context.Background(), s.account.ID, task.UUID)
	Expect(err).To(BeNil())
	Expect(stored.Title).To(Equal("Renamed"))
	Expect(stored.Description).To(BeNil())
}

func (s *TaskServiceTestSuite) TestUpdate_CompletionRules() {
	task := s.create("Toggle")

	updated, err := s.f.task.Update(context.Background(), s.account.ID, task.UUID, request.UpdateTaskRequest{
		IsCompleted: domain.Some(true),
	})
	Expect(err).To(BeNil())
	Expect(updated.IsCompleted).To(BeTrue())

	_, err = s.f.task.Update(context.Background(), s.account.ID, task.UUID, request.UpdateTaskRequest{
		IsCompleted: domain.Some(true),
	})
	Expect(fields(err)).To(Equal([]string{"isCompleted"}))

	_, err = s.f.task.Update(context.Background(), s.account.ID, task.UUID, request.UpdateTaskRequest{
		Title: domain.Null[string](),
	})
	Expect(fields(err)).To(Equal([]string{"title"}))
}

func (s *TaskServiceTestSuite) TestCrossAccountIsolation() {
	task := s.create("Private")

	other, err := s.f.accounts.Create(context.Background(), factory.NewAccount())
	s.Require().NoError(err)

	_, err = s.f.task.Get(context.Background(), other.ID, task.UUID)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	_, err = s.f.task.Update(context.Background(), other.ID, task.UUID, request.UpdateTaskRequest{Title: domain.Some("Hijack")})
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	_, err = s.f.task.MarkComplete(context.Background(), other.ID, task.UUID)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	err = s.f.task.Delete(context.Background(), other.ID, task.UUID)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	page, err := s.f.task.List(context.Background(), other.ID, domain.TaskQueryInput{Page: 1, PageSize: 10})
	Expect(err).To(BeNil())
	Expect(page.TotalCount).To(Equal(0))
}

func (s *TaskServiceTestSuite) TestList_PaginationInvariant() {
	for i := 0; i < 23; i++ {
		s.create(fmt.Sprintf("Task %02d", i))
	}

	seen := map[uuid.UUID]bool{}

	for page := 1; page <= 3; page++ {
		result, err := s.f.task.List(context.Background(), s.account.ID, domain.TaskQueryInput{
			SortBy:        "title",
			SortDirection: "ASC",
			Page:          page,
			PageSize:      10,
		})
		Expect(err).To(BeNil())

		Expect(result.TotalCount).To(Equal(23))
		Expect(result.TotalPages).To(Equal(3))
		Expect(len(result.Items)).To(BeNumerically("<=", result.PageSize))
		Expect(result.HasPreviousPage).To(Equal(page > 1))
		Expect(result.HasNextPage).To(Equal(page < 3))

		for _, t := range result.Items {
			seen[t.UUID] = true
		}
	}

	Expect(seen).To(HaveLen(23))
}

func (s *TaskServiceTestSuite) TestList_InvalidSort() {
	_, err := s.f.task.List(context.Background(), s.account.ID, domain.TaskQueryInput{SortBy: "password", Page: 1, PageSize: 10})

	Expect(fields(err)).To(Equal([]string{"sortBy"}))
}

func (s *TaskServiceTestSuite) TestDelete() {
	task := s.create("Temporary")

	Expect(s.f.task.Delete(context.Background(), s.account.ID, task.UUID)).To(Succeed())

	_, err := s.f.task.Get(context.Background(), s.account.ID, task.UUID)
	assert.ErrorIs(s.T(), err, domain.ErrTaskNotFound)

	Expect(s.f.events.Names()).To(ContainElement("task.deleted"))
}

func (s *TaskServiceTestSuite) TestStoredPastDueDateLoads() {
	stored, err := s.f.tasks.Create(context.Background(), factory.NewTask(s.account.ID, map[string]any{
		"Title":   "Overdue",
		"DueDate": factory.Overdue(24 * time.Hour),
	}))
	s.Require().NoError(err)

	task, err := s.f.task.Get(context.Background(), s.account.ID, stored.UUID)

	Expect(err).To(BeNil())
	Expect(task.IsOverdue(time.Now())).To(BeTrue())

	page, err := s.f.task.List(context.Background(), s.account.ID, domain.TaskQueryInput{
		Filter:   domain.TaskFilter{IsOverdue: ptr(true)},
		Page:     1,
		PageSize: 10,
	})
	Expect(err).To(BeNil())
	Expect(page.Items).To(HaveLen(1))
}

func (s *TaskServiceTestSuite) TestCreate_AfterAccountDeleted() {
	Expect(s.f.account.Delete(context.Background(), s.account.ID)).To(Succeed())

	_, err := s.f.task.Create(context.Background(), s.account.ID, request.CreateTaskRequest{Title: "Orphan"})

	assert.ErrorIs(s.T(), err, domain.ErrAccountNotFound)
}

func (s *TaskServiceTestSuite) TestList_OverdueUsesServiceClock() {
	_, err := s.f.tasks.Create(context.Background(), factory.NewTask(s.account.ID, map[string]any{
		"Title":   "Due soon",
		"DueDate": s.f.clock.Now().Add(time.Hour),
	}))
	s.Require().NoError(err)

	overdue := domain.TaskQueryInput{
		Filter:   domain.TaskFilter{IsOverdue: ptr(true)},
		Page:     1,
		PageSize: 10,
	}

	page, err := s.f.task.List(context.Background(), s.account.ID, overdue)
	Expect(err).To(BeNil())
	Expect(page.TotalCount).To(Equal(0))

	s.f.clock.Advance(2 * time.Hour)

	page, err = s.f.task.List(context.Background(), s.account.ID, overdue)
	Expect(err).To(BeNil())
	Expect(page.Items).To(HaveLen(1))
	Expect(page.TotalCount).To(Equal(1))
}
