package postgres

import (
	"fmt"
	"time"

	"github.com/fastygo/taskboard/domain"
)

const taskColumns = `
	t.id, t.user_id, t.title, t.description, t.status, t.due_date, t.category_id,
	c.name,
	COALESCE((
		SELECT json_agg(json_build_object('id', tt.id, 'tag_name', tt.tag_name) ORDER BY tt.position)
		FROM task_tags tt
		WHERE tt.task_id = t.id
	), '[]'::json),
	t.created_at, t.updated_at`

// buildTaskListQuery composes the filtered task read. Every active filter
// adds one AND-ed predicate; the owner predicate is always present.
func buildTaskListQuery(userID string, filter domain.TaskFilter, now time.Time) (string, []interface{}) {
	var c conditions
	c.add("t.user_id = " + c.arg(userID))

	if filter.Status != "" {
		c.add("t.status = " + c.arg(string(filter.Status)))
	}
	if filter.CategoryID != "" {
		c.add("t.category_id::text = " + c.arg(filter.CategoryID))
	}
	if filter.Search != "" {
		c.add(fmt.Sprintf(`t.title ILIKE %s ESCAPE '\'`, c.arg(containsPattern(filter.Search))))
	}
	if filter.Overdue {
		c.add("t.due_date < " + c.arg(now))
		c.add(fmt.Sprintf("t.status <> '%s'", domain.StatusCompleted))
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM tasks t
	LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
	WHERE %s
	ORDER BY t.created_at DESC, t.id DESC
	`, taskColumns, c.join("\n\t  AND "))

	return query, c.args
}

// buildTaskPatchQuery composes an UPDATE touching only the patched columns.
func buildTaskPatchQuery(userID, id string, patch domain.TaskPatch) (string, []interface{}) {
	var c conditions

	if patch.Title != nil {
		c.add("title = " + c.arg(*patch.Title))
	}
	switch {
	case patch.ClearDescription:
		c.add("description = NULL")
	case patch.Description != nil:
		c.add("description = " + c.arg(*patch.Description))
	}
	if patch.Status != nil {
		c.add("status = " + c.arg(string(*patch.Status)))
	}
	switch {
	case patch.ClearDueDate:
		c.add("due_date = NULL")
	case patch.DueDate != nil:
		c.add("due_date = " + c.arg(*patch.DueDate))
	}
	switch {
	case patch.ClearCategory:
		c.add("category_id = NULL")
	case patch.CategoryID != nil:
		c.add("category_id = " + c.arg(*patch.CategoryID))
	}
	c.add("updated_at = NOW()")

	set := c.join(",\n\t\t")
	query := fmt.Sprintf(`
	UPDATE tasks
	SET %s
	WHERE id = %s AND user_id = %s
	`, set, c.arg(id), c.arg(userID))

	return query, c.args
}
