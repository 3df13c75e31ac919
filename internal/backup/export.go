// Package backup exports a user's library as a zip of JSONL files.
package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pabliki/pabliki-server/internal/backup/stream"
	"github.com/pabliki/pabliki-server/internal/store"
)

// searchHistoryLimit caps exported search history entries.
const searchHistoryLimit = 1000

// Exporter writes export archives.
type Exporter struct {
	store   store.Store
	version string
	now     func() time.Time
	logger  *slog.Logger
}

// NewExporter creates an Exporter. version is recorded in each manifest.
func NewExporter(s store.Store, version string, logger *slog.Logger) *Exporter {
	return &Exporter{store: s, version: version, now: time.Now, logger: logger}
}

// Export writes the user's data to w as a zip archive. Links carry their tags,
// collections and notes. The manifest is written last, so a truncated archive
// has no manifest.
func (e *Exporter) Export(ctx context.Context, userID string, w io.Writer) (*Manifest, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     e.now().UTC(),
		ServerVersion: e.version,
		UserID:        userID,
	}

	zw := zip.NewWriter(w)

	if err := stream.WriteJSON(zw, UserFile, user); err != nil {
		return nil, err
	}
	prefs, err := e.store.GetViewPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	if err := stream.WriteJSON(zw, PreferencesFile, prefs); err != nil {
		return nil, err
	}

	if err := e.exportLinks(ctx, zw, userID, &manifest.Counts); err != nil {
		return nil, err
	}
	if err := e.exportTags(ctx, zw, userID, &manifest.Counts); err != nil {
		return nil, err
	}
	if err := e.exportCollections(ctx, zw, userID, &manifest.Counts); err != nil {
		return nil, err
	}
	if err := e.exportSearchHistory(ctx, zw, userID, &manifest.Counts); err != nil {
		return nil, err
	}

	if err := stream.WriteJSON(zw, ManifestFile, manifest); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	e.logger.Info("library exported",
		"user_id", userID,
		"links", manifest.Counts.Links,
		"tags", manifest.Counts.Tags,
		"collections", manifest.Counts.Collections,
		"notes", manifest.Counts.Notes)

	return manifest, nil
}

func (e *Exporter) exportLinks(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	w, err := stream.NewWriter(zw, LinksFile)
	if err != nil {
		return err
	}
	rel := store.LinkRelations{Tags: true, Collections: true, Notes: true}
	params := store.LinkListParams{
		ListParams:    store.ListParams{Limit: store.MaxLimit},
		SortBy:        store.SortCreatedAt,
		SortDirection: "asc",
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := e.store.ListLinks(ctx, userID, params)
		if err != nil {
			return fmt.Errorf("list links: %w", err)
		}
		for _, l := range page.Items {
			full, err := e.store.GetLink(ctx, userID, l.ID, rel)
			if err != nil {
				return fmt.Errorf("get link %s: %w", l.ID, err)
			}
			if err := w.Write(full); err != nil {
				return err
			}
			counts.Notes += len(full.Notes)
		}
		if !page.HasMore() || len(page.Items) == 0 {
			break
		}
		params.Offset += len(page.Items)
	}
	counts.Links = w.Count()
	return nil
}

func (e *Exporter) exportTags(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	tags, err := e.store.ListTags(ctx, userID)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	w, err := stream.NewWriter(zw, TagsFile)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if err := w.Write(t); err != nil {
			return err
		}
	}
	counts.Tags = w.Count()
	return nil
}

func (e *Exporter) exportCollections(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	collections, err := e.store.ListCollections(ctx, userID)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	w, err := stream.NewWriter(zw, CollectionsFile)
	if err != nil {
		return err
	}
	for _, c := range collections {
		if err := w.Write(c); err != nil {
			return err
		}
	}
	counts.Collections = w.Count()
	return nil
}

func (e *Exporter) exportSearchHistory(ctx context.Context, zw *zip.Writer, userID string, counts *EntityCounts) error {
	entries, err := e.store.ListRecentSearches(ctx, userID, searchHistoryLimit)
	if err != nil {
		return fmt.Errorf("list search history: %w", err)
	}
	w, err := stream.NewWriter(zw, SearchHistoryFile)
	if err != nil {
		return err
	}
	for _, s := range entries {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	counts.SearchHistory = w.Count()
	return nil
}
