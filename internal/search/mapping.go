package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for post documents.
//
// Captions get English stemming and term vectors for highlighting. Category
// and creator are keywords so filters match exactly, and created_at is numeric
// for recency sorting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	captionFieldMapping := bleve.NewTextFieldMapping()
	captionFieldMapping.Analyzer = en.AnalyzerName
	captionFieldMapping.Store = true
	captionFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("caption", captionFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	creatorFieldMapping := bleve.NewTextFieldMapping()
	creatorFieldMapping.Analyzer = keyword.Name
	creatorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("creator", creatorFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
