package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// NoteService manages notes on links.
type NoteService struct {
	store     store.Store
	validator *validation.Validator
	events    EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewNoteService creates a new note service.
func NewNoteService(
	store store.Store,
	validator *validation.Validator,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		store:     store,
		validator: validator,
		events:    publisherOrNoop(events),
		metrics:   m,
		logger:    logger,
	}
}

// NoteRequest is the body of a new or edited note.
type NoteRequest struct {
	Content string `json:"content" validate:"required,notblank,max=10000"`
}

// ForLink returns the notes on one of the user's links, newest first.
func (s *NoteService) ForLink(ctx context.Context, userID, linkID string) ([]*domain.Note, error) {
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return nil, translate(err, entityLink)
	}
	notes, err := s.store.ListNotesForLink(ctx, linkID)
	return notes, translate(err, entityNote)
}

// List returns the user's notes across all links.
func (s *NoteService) List(ctx context.Context, userID string, params store.ListParams) ([]*domain.NoteWithLink, error) {
	params.Normalize(store.DefaultLimit)
	notes, err := s.store.ListNotes(ctx, userID, params)
	return notes, translate(err, entityNote)
}

// Search matches note content by substring.
func (s *NoteService) Search(ctx context.Context, userID, query string, params store.ListParams) ([]*domain.NoteWithLink, error) {
	query = normalizeQuery(query)
	if query == "" {
		return s.List(ctx, userID, params)
	}
	params.Normalize(store.DefaultLimit)
	notes, err := s.store.SearchNotes(ctx, userID, query, params)
	return notes, translate(err, entityNote)
}

// owned loads a note after checking it belongs to the user. Notes of other
// users are reported as missing.
func (s *NoteService) owned(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	ok, err := s.store.NoteBelongsTo(ctx, noteID, userID)
	if err != nil {
		return nil, translate(err, entityNote)
	}
	if !ok {
		return nil, translate(store.ErrNotFound, entityNote)
	}
	note, err := s.store.GetNote(ctx, noteID)
	return note, translate(err, entityNote)
}

// Get returns one note.
func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	return s.owned(ctx, userID, noteID)
}

// Create writes a note on one of the user's links.
func (s *NoteService) Create(ctx context.Context, userID, linkID string, req NoteRequest) (*domain.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	noteID, err := id.Generate(id.PrefixNote)
	if err != nil {
		return nil, err
	}
	note := &domain.Note{
		Timestamps: domain.Timestamps{ID: noteID},
		LinkID:     linkID,
		UserID:     userID,
		Content:    strings.TrimSpace(req.Content),
	}
	note.InitTimestamps()
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, translate(err, entityLink)
	}
	s.events.Publish(userID, sse.EventNoteCreated, note)
	s.metrics.EntityMutated(entityNote, metrics.OpCreate)
	return note, nil
}

// Update replaces a note's content.
func (s *NoteService) Update(ctx context.Context, userID, noteID string, req NoteRequest) (*domain.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	note.Content = strings.TrimSpace(req.Content)
	note.Touch()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, translate(err, entityNote)
	}
	s.events.Publish(userID, sse.EventNoteUpdated, note)
	s.metrics.EntityMutated(entityNote, metrics.OpUpdate)
	return note, nil
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	note, err := s.owned(ctx, userID, noteID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return translate(err, entityNote)
	}
	s.events.Publish(userID, sse.EventNoteDeleted, sse.IDPayload{ID: noteID, LinkID: note.LinkID})
	s.metrics.EntityMutated(entityNote, metrics.OpDelete)
	return nil
}
