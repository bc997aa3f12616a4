package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fastygo/taskboard/domain"
)

const uniqueViolation = "23505"

// conditions accumulates positional arguments while a statement is assembled.
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) arg(value interface{}) string {
	c.args = append(c.args, value)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *conditions) add(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) join(sep string) string {
	return strings.Join(c.clauses, sep)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching value as a literal substring.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}

func nullTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// checkTaskRefs rejects ids Postgres would refuse to cast to uuid.
func checkTaskRefs(id string, categoryID *string) error {
	if id != "" && !isUUID(id) {
		return domain.ErrTaskNotFound
	}
	if categoryID != nil && !isUUID(*categoryID) {
		return domain.ErrCategoryNotFound
	}
	return nil
}

const categoryOwnedQuery = `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`

// ensureCategoryOwned fails unless categoryID is nil or names one of the
// user's own categories.
func ensureCategoryOwned(ctx context.Context, tx pgx.Tx, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	var owned bool
	if err := tx.QueryRow(ctx, categoryOwnedQuery, *categoryID, userID).Scan(&owned); err != nil {
		return err
	}
	if !owned {
		return domain.ErrCategoryNotFound
	}
	return nil
}
