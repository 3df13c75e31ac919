// Package dto provides request and response types shared by the Pabliki API
// handlers. huma reads their tags to generate OpenAPI documentation.
package dto

import (
	"net/http"

	"github.com/pabliki/pabliki-server/internal/store"
)

// Output wraps a response body for huma.
type Output[T any] struct {
	Body T
}

// PaginationParams defines limit/offset query parameters.
type PaginationParams struct {
	Limit  int `query:"limit" minimum:"0" maximum:"100" doc:"Items per page (default 20)"`
	Offset int `query:"offset" minimum:"0" doc:"Items to skip"`
}

// ListParams converts the query to store params.
func (p PaginationParams) ListParams() store.ListParams {
	return store.ListParams{Limit: p.Limit, Offset: p.Offset}
}

// IDParam is a path parameter for resource IDs.
type IDParam struct {
	ID string `path:"id" doc:"Resource identifier"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}

// Message builds a MessageOutput.
func Message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}

// CookieOutput is a response that also sets a cookie.
type CookieOutput[T any] struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      T
}

// ListResponse is a list with paging information.
type ListResponse[T any] struct {
	Items  []T `json:"items" doc:"List of items"`
	Limit  int `json:"limit" doc:"Items per page"`
	Offset int `json:"offset" doc:"Items skipped"`
}

// NewList builds a ListResponse, never with a nil item slice.
func NewList[T any](items []T, p store.ListParams) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: p.Limit, Offset: p.Offset}
}
