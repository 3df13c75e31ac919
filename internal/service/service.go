// Package service implements the business operations of the Pabliki server.
//
// Services validate requests, enforce ownership, call the store, and then
// fan out side effects: the activity log, per-user live events, the search
// index and metrics. Side effects are best effort; a failed index update or
// activity write is logged and never fails the operation that caused it.
package service

import (
	"errors"
	"fmt"
	"strings"

	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
)

// EventPublisher delivers live events to one user's connected clients.
// *sse.Manager implements it.
type EventPublisher interface {
	Publish(userID string, t sse.EventType, data any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, sse.EventType, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// translate converts a store error into a domain error. what names the
// entity for not-found messages ("link", "tag"...).
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		return fmt.Errorf("%s: %w", what, err)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what).WithCause(err)
	case errors.Is(err, store.ErrEmailExists):
		return domainerrors.Conflict("email is already registered").
			WithDetails(map[string]string{"email": "is already registered"}).
			WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflict(fmt.Sprintf("%s already exists", what)).WithCause(err)
	case errors.Is(err, store.ErrCycle):
		return domainerrors.FieldError("parent_id", storeErr.Message).WithCause(err)
	default:
		// ErrInvalidInput and variants carry a user-facing message.
		return domainerrors.Validation(storeErr.Message).WithCause(err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// normalizeQuery trims a free-text query; queries beyond 200 runes are cut.
func normalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > 200 {
		q = string(r[:200])
	}
	return q
}

// Metric entity labels.
const (
	entityLink       = "link"
	entityTag        = "tag"
	entityCollection = "collection"
	entityNote       = "note"
	entityUser       = "user"
)

// meta builds activity metadata from key/value pairs, dropping empty values.
func meta(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			if v == "" {
				continue
			}
		case nil:
			continue
		}
		m[key] = kv[i+1]
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
