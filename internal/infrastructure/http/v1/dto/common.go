// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import "feedvalidator/internal/metadata"

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

// NewListResponse wraps items, never rendering a null list.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: len(items)}
}

// SchemaFilter narrows the table list.
type SchemaFilter struct {
	Level string `form:"level" binding:"omitempty,oneof=required recommended optional"`
}

// Match reports whether a table passes the filter.
func (f SchemaFilter) Match(t metadata.TableSummary) bool {
	return f.Level == "" || string(t.Level) == f.Level
}
