package api

import (
	"github.com/pabliki/pabliki-server/internal/backup"
	"github.com/pabliki/pabliki-server/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Auth        *service.AuthService
	Session     *service.SessionService
	Preferences *service.PreferencesService
	Link        *service.LinkService
	Tag         *service.TagService
	Collection  *service.CollectionService
	Note        *service.NoteService
	Search      *service.SearchService
	Activity    *service.ActivityService
	Export      *backup.Exporter
}
