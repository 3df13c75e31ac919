package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/store"
)

func (s *Server) registerNoteRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Description: "Returns notes across all links, newest first, optionally filtered by content",
		Tags:        []string{"Notes"},
		Security:    bearer,
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Tags:        []string{"Notes"},
		Security:    bearer,
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Update note",
		Tags:        []string{"Notes"},
		Security:    bearer,
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteNote",
		Method:      http.MethodDelete,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Delete note",
		Tags:        []string{"Notes"},
		Security:    bearer,
	}, s.handleDeleteNote)
}

// ListNotesInput contains parameters for listing notes.
type ListNotesInput struct {
	dto.PaginationParams
	Query string `query:"q" doc:"Substring filter on the content"`
}

// UpdateNoteInput wraps the note update for huma.
type UpdateNoteInput struct {
	ID   string `path:"id" doc:"Note ID"`
	Body service.NoteRequest
}

func (s *Server) handleListNotes(ctx context.Context, input *ListNotesInput) (*dto.Output[dto.ListResponse[*domain.NoteWithLink]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	params := input.ListParams()
	params.Normalize(store.DefaultLimit)
	notes, err := s.services.Note.Search(ctx, userID, input.Query, params)
	if err != nil {
		return nil, err
	}
	return &dto.Output[dto.ListResponse[*domain.NoteWithLink]]{Body: dto.NewList(notes, params)}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Note], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	note, err := s.services.Note.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Note]{Body: note}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*dto.Output[*domain.Note], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	note, err := s.services.Note.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Note]{Body: note}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Note.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("note deleted"), nil
}
