package providers

import (
	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/api"
	"github.com/pabliki/pabliki-server/internal/auth"
	"github.com/pabliki/pabliki-server/internal/backup"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// ProvideActivityService provides the activity log service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewActivityService(storeHandle.Store, log.Logger), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSessionService(storeHandle.Store, tokens, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	v := do.MustInvoke[*validation.Validator](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAuthService(storeHandle.Store, tokens, sessions, v, m, log.Logger), nil
}

// ProvidePreferencesService provides the preferences service.
func ProvidePreferencesService(i do.Injector) (*service.PreferencesService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	return service.NewPreferencesService(storeHandle.Store, v), nil
}

// ProvideSearchService provides the search service. It falls back to the
// store when the index handle is empty.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSearchService(searchHandle.Index, storeHandle.Store, v, activity, m, log.Logger), nil
}

// ProvideLinkService provides the link service.
func ProvideLinkService(i do.Injector) (*service.LinkService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	previews := do.MustInvoke[*PreviewHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A nil *Fetcher must not become a non-nil interface.
	var fetcher service.PreviewFetcher
	if previews.Fetcher != nil {
		fetcher = previews.Fetcher
	}

	links := service.NewLinkService(storeHandle.Store, v, activity, sseHandle.Manager, fetcher, m, log.Logger)
	links.SetIndexer(searchService)
	return links, nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	tags := service.NewTagService(storeHandle.Store, v, activity, sseHandle.Manager, m, log.Logger)
	tags.SetIndexer(searchService)
	return tags, nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	collections := service.NewCollectionService(storeHandle.Store, v, activity, sseHandle.Manager, m, log.Logger)
	collections.SetIndexer(searchService)
	return collections, nil
}

// ProvideNoteService provides the note service.
func ProvideNoteService(i do.Injector) (*service.NoteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewNoteService(storeHandle.Store, v, sseHandle.Manager, m, log.Logger), nil
}

// ProvideServices groups every service for the API server.
func ProvideServices(i do.Injector) (*api.Services, error) {
	return &api.Services{
		Auth:        do.MustInvoke[*service.AuthService](i),
		Session:     do.MustInvoke[*service.SessionService](i),
		Preferences: do.MustInvoke[*service.PreferencesService](i),
		Link:        do.MustInvoke[*service.LinkService](i),
		Tag:         do.MustInvoke[*service.TagService](i),
		Collection:  do.MustInvoke[*service.CollectionService](i),
		Note:        do.MustInvoke[*service.NoteService](i),
		Search:      do.MustInvoke[*service.SearchService](i),
		Activity:    do.MustInvoke[*service.ActivityService](i),
		Export:      do.MustInvoke[*backup.Exporter](i),
	}, nil
}

// ProvideExporter provides the library exporter.
func ProvideExporter(i do.Injector) (*backup.Exporter, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return backup.NewExporter(storeHandle.Store, Version, log.Logger), nil
}
