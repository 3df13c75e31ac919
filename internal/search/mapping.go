package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for link documents.
//
// Text uses the standard analyzer (Unicode tokenization, lowercase) rather
// than a stemming one: saved pages are in Russian, English and Spanish.
// Ids, slugs and the owner are keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()

	text := func(store, vectors bool) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = store
		f.IncludeTermVectors = vectors
		return f
	}
	kw := func(store bool) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = store
		return f
	}

	doc.AddFieldMappingsAt("title", text(true, true))
	doc.AddFieldMappingsAt("description", text(true, true))
	// Page bodies can be large; searchable only.
	doc.AddFieldMappingsAt("content", text(false, false))
	doc.AddFieldMappingsAt("site_name", text(true, false))
	doc.AddFieldMappingsAt("url", text(true, false))

	doc.AddFieldMappingsAt("id", kw(true))
	doc.AddFieldMappingsAt("user_id", kw(false))
	doc.AddFieldMappingsAt("tags", kw(true))
	doc.AddFieldMappingsAt("tag_ids", kw(false))
	doc.AddFieldMappingsAt("collections", kw(false))

	archived := bleve.NewBooleanFieldMapping()
	doc.AddFieldMappingsAt("is_archived", archived)
	favorite := bleve.NewBooleanFieldMapping()
	doc.AddFieldMappingsAt("is_favorite", favorite)

	created := bleve.NewNumericFieldMapping()
	created.Store = true
	doc.AddFieldMappingsAt("created_at", created)

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
