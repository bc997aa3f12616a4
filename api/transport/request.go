package transport

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/fastygo/taskboard/domain"
)

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	TTL int `json:"ttl_seconds"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type TaskCreateRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Status      string   `json:"status"`
	DueDate     *string  `json:"due_date"`
	CategoryID  *string  `json:"category_id"`
	Tags        []string `json:"tags"`
}

// Input converts the request into a domain.TaskInput and the raw tag list.
func (r TaskCreateRequest) Input() (domain.TaskInput, []string, error) {
	in := domain.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.Status(r.Status),
		CategoryID:  r.CategoryID,
	}
	if r.DueDate != nil && strings.TrimSpace(*r.DueDate) != "" {
		due, err := ParseDueDate(*r.DueDate)
		if err != nil {
			return in, nil, err
		}
		in.DueDate = &due
	}
	return in, r.Tags, nil
}

// ParseTaskPatch decodes an update body. Absent keys leave a field alone and
// an explicit null clears a nullable one. The returned tags pointer is nil
// when the body has no "tags" key.
func ParseTaskPatch(body []byte) (domain.TaskPatch, *[]string, error) {
	var patch domain.TaskPatch
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return patch, nil, domain.ErrInvalidPayload
	}

	if raw, ok := fields["title"]; ok {
		var title string
		if isNull(raw) || json.Unmarshal(raw, &title) != nil {
			return patch, nil, domain.ErrTitleRequired
		}
		patch.Title = &title
	}
	if raw, ok := fields["status"]; ok {
		var status string
		if isNull(raw) || json.Unmarshal(raw, &status) != nil {
			return patch, nil, domain.ErrInvalidStatus
		}
		s := domain.Status(status)
		patch.Status = &s
	}
	if raw, ok := fields["description"]; ok {
		if isNull(raw) {
			patch.ClearDescription = true
		} else {
			var desc string
			if err := json.Unmarshal(raw, &desc); err != nil {
				return patch, nil, domain.ErrInvalidPayload
			}
			patch.Description = &desc
		}
	}
	if raw, ok := fields["category_id"]; ok {
		if isNull(raw) {
			patch.ClearCategory = true
		} else {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return patch, nil, domain.ErrInvalidPayload
			}
			patch.CategoryID = &id
		}
	}
	if raw, ok := fields["due_date"]; ok {
		var due string
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &due); err != nil {
				return patch, nil, domain.ErrInvalidPayload
			}
		}
		if strings.TrimSpace(due) == "" {
			patch.ClearDueDate = true
		} else {
			parsed, err := ParseDueDate(due)
			if err != nil {
				return patch, nil, err
			}
			patch.DueDate = &parsed
		}
	}

	var tags *[]string
	if raw, ok := fields["tags"]; ok {
		list := []string{}
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &list); err != nil {
				return patch, nil, domain.ErrInvalidPayload
			}
		}
		tags = &list
	}
	return patch, tags, nil
}

var dueDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseDueDate accepts RFC 3339 timestamps and the date-only and
// datetime-local forms browsers submit. Zone-less values are UTC.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewError(domain.ErrCodeInvalid, "invalid due date")
}

// ParseFilter builds a task filter from query values.
func ParseFilter(status, categoryID, search, overdue string) (domain.TaskFilter, error) {
	filter := domain.TaskFilter{
		Status:     domain.Status(status),
		CategoryID: categoryID,
		Search:     search,
		Overdue:    ParseBool(overdue),
	}
	return filter.Normalize()
}

// ParseBool treats "1", "true", "yes" and "on" as true.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
