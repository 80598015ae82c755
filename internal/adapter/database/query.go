package database

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tasktracker/internal/core/domain"
)

const TaskColumns = "id, uuid, account_id, title, description, is_completed, completed_at, priority, category, due_date, tags, created_at, updated_at"

var taskSortColumns = map[domain.SortField]string{
	domain.SortByID:          "id",
	domain.SortByTitle:       "LOWER(title)",
	domain.SortByCreatedAt:   "created_at",
	domain.SortByUpdatedAt:   "updated_at",
	domain.SortByPriority:    "priority",
	domain.SortByCategory:    "category",
	domain.SortByDueDate:     "due_date",
	domain.SortByIsCompleted: "is_completed",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a case-insensitive LIKE pattern matching s anywhere.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// TaskFilterPredicates returns the WHERE clauses for filter. The page query
// and the count query both use it so their totals agree.
func TaskFilterPredicates(accountID int, filter domain.TaskFilter) sq.And {
	where := sq.And{sq.Eq{"account_id": accountID}}

	if filter.IsCompleted != nil {
		where = append(where, sq.Eq{"is_completed": *filter.IsCompleted})
	}

	if filter.Priority != nil {
		where = append(where, sq.Eq{"priority": int(*filter.Priority)})
	}

	if filter.Category != nil {
		where = append(where, sq.Eq{"category": int(*filter.Category)})
	}

	if filter.DueDateFrom != nil {
		where = append(where, sq.GtOrEq{"due_date": filter.DueDateFrom.UTC()})
	}

	if filter.DueDateTo != nil {
		where = append(where, sq.LtOrEq{"due_date": filter.DueDateTo.UTC()})
	}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := ContainsPattern(strings.TrimSpace(*filter.Search))
		where = append(where, sq.Or{
			sq.Expr(`LOWER(title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	if filter.Tags != nil && strings.TrimSpace(*filter.Tags) != "" {
		pattern := ContainsPattern(strings.TrimSpace(*filter.Tags))
		where = append(where, sq.Expr(`LOWER(COALESCE(tags, '')) LIKE ? ESCAPE '\'`, pattern))
	}

	if filter.IsOverdue != nil {
		now := filter.ReferenceTime()
		overdue := sq.And{
			sq.NotEq{"due_date": nil},
			sq.Lt{"due_date": now},
			sq.Eq{"is_completed": false},
		}

		if *filter.IsOverdue {
			where = append(where, overdue)
		} else {
			where = append(where, sq.Or{
				sq.Eq{"due_date": nil},
				sq.GtOrEq{"due_date": now},
				sq.Eq{"is_completed": true},
			})
		}
	}

	return where
}

// TaskOrderBy renders the ORDER BY clauses. Tasks without a due date sort
// last in both directions and id breaks every tie.
func TaskOrderBy(field domain.SortField, direction domain.SortDirection) []string {
	column, ok := taskSortColumns[field]
	if !ok {
		column = taskSortColumns[domain.SortByCreatedAt]
	}

	dir := "DESC"
	if direction == domain.SortAsc {
		dir = "ASC"
	}

	var clauses []string

	if field == domain.SortByDueDate {
		clauses = append(clauses, "CASE WHEN due_date IS NULL THEN 1 ELSE 0 END ASC")
	}

	clauses = append(clauses, fmt.Sprintf("%s %s", column, dir))

	if field != domain.SortByID {
		clauses = append(clauses, "id "+dir)
	}

	return clauses
}

// SelectTaskPage builds the page query for query scoped to accountID.
func SelectTaskPage(builder sq.StatementBuilderType, accountID int, query domain.TaskQuery) sq.SelectBuilder {
	return builder.Select(TaskColumns).
		From("tasks").
		Where(TaskFilterPredicates(accountID, query.Filter)).
		OrderBy(TaskOrderBy(query.SortBy, query.SortDirection)...).
		Limit(uint64(query.PageSize)).
		Offset(uint64(query.Offset()))
}

func CountTasks(builder sq.StatementBuilderType, accountID int, filter domain.TaskFilter) sq.SelectBuilder {
	return builder.Select("COUNT(*)").
		From("tasks").
		Where(TaskFilterPredicates(accountID, filter))
}
