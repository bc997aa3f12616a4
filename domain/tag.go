package domain

import "strings"

// Tag is a free-text label attached to a task. Duplicate names on one task are allowed.
type Tag struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"tag_name"`
}

// NormalizeTags trims every tag and drops blank entries, keeping order and duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// SplitTags parses a comma-separated tag list.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(raw, ","))
}
