package recorder

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// SearchHit is one recorded reply matching a query.
type SearchHit struct {
	CallID   int64
	RunID    string
	Function string
	Score    float64
}

// SearchIndex provides keyword search over recorded model replies.
type SearchIndex struct {
	index bleve.Index
	path  string
}

// NewSearchIndex creates or opens the index next to dbPath.
// A corrupted index is deleted and recreated.
func NewSearchIndex(dbPath string) (*SearchIndex, error) {
	indexPath := dbPath + ".bleve"

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
		log.Println("📚 Search index created")
	} else if err != nil {
		log.Printf("⚠️  Search index appears corrupted (error: %v), recreating...", err)
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
		log.Println("✅ Search index recreated")
	}

	return &SearchIndex{index: index, path: indexPath}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	callMapping := bleve.NewDocumentMapping()

	for _, name := range []string{"run_id", "function", "model"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.Index = true
		callMapping.AddFieldMappingsAt(name, f)
	}

	for _, name := range []string{"content", "arguments", "prompt"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		f.Index = true
		callMapping.AddFieldMappingsAt(name, f)
	}

	indexMapping.DefaultMapping = callMapping
	return indexMapping
}

// IndexCall indexes the reply of one recorded call.
func (s *SearchIndex) IndexCall(callID int64, rec engine.CallRecord) error {
	doc := map[string]interface{}{
		"run_id":  rec.RunID,
		"model":   rec.Model,
		"content": rec.Response.Assistant.Content,
	}
	if call := rec.Response.Assistant.Call; call != nil {
		doc["function"] = call.Name
		doc["arguments"] = call.Arguments
	}
	// First user turn only; later ones are corrective instructions.
	for _, t := range rec.Request {
		if t.Role == engine.RoleUser {
			doc["prompt"] = t.Content
			break
		}
	}
	return s.index.Index(strconv.FormatInt(callID, 10), doc)
}

// Search returns the top k calls matching query, optionally within one run.
func (s *SearchIndex) Search(query, runID string, k int) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}

	match := bleve.NewMatchQuery(query)
	searchRequest := bleve.NewSearchRequest(match)
	if runID != "" {
		runQuery := bleve.NewTermQuery(runID)
		runQuery.SetField("run_id")
		searchRequest = bleve.NewSearchRequest(bleve.NewConjunctionQuery(match, runQuery))
	}
	searchRequest.Size = k
	searchRequest.Fields = []string{"run_id", "function"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		h := SearchHit{CallID: id, Score: hit.Score}
		if v, ok := hit.Fields["run_id"].(string); ok {
			h.RunID = v
		}
		if v, ok := hit.Fields["function"].(string); ok {
			h.Function = v
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	return s.index.Close()
}

// Path returns the filesystem path of the index.
func (s *SearchIndex) Path() string {
	return s.path
}
